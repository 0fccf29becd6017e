// Package runner provides the concurrent rate-limited dispatch engine.
//
// A [Runner] spawns a fixed pool of workers that each pull a unit of work,
// wait for admission from a shared pacer, send one hit through the configured
// [Sender], and record the outcome. The pool runs in one of two modes:
//
//   - Finite: a total hit count is divided as evenly as possible across
//     workers with [DivideWork]; the run ends when every share is consumed.
//   - Continuous: workers loop until the configured duration elapses or the
//     run is cancelled.
//
// # Usage
//
//	opts := runner.Options{
//		Concurrency: 10,
//		Total:       500,
//		Rate:        100,
//		Sender:      sender,
//		Collector:   collector,
//	}
//	r := runner.New(opts)
//	result := r.Run(ctx)
//
// # Lifecycle
//
// Runs move through Idle → Running → Draining → Terminated. Any of the
// termination triggers (signal context, duration deadline, work exhausted,
// explicit [Runner.Stop]) performs the Running→Draining transition exactly
// once; concurrent triggers are safe. Run returns only after every worker has
// exited, so no recording happens after it returns.
//
// Per-hit errors are contained in the worker loop and become statistics; they
// never abort the pool. A status outside {200, 201, 202}, a timeout, or a
// transport error each count as one failed hit.
package runner
