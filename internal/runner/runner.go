package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/webtraffic/hitgen/internal/metrics"
	"github.com/webtraffic/hitgen/internal/pacing"
)

// State tracks a run's lifecycle. Transitions are strictly
// Idle → Running → Draining → Terminated; Terminated is absorbing.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// Result captures the final accounting of a run.
type Result struct {
	Sent      int64
	Successes int64
	Failures  int64
	Duration  time.Duration
}

// Runner drives a pool of workers that send paced hits and record outcomes.
// A Runner executes exactly one run.
type Runner struct {
	opt   Options
	pacer pacing.Pacer

	state  int32
	mu     sync.Mutex
	cancel context.CancelFunc
}

func New(opt Options) *Runner {
	opt.normalize()
	pacer := opt.PacerFactory(opt.Pacing, opt.Rate)
	return &Runner{opt: opt, pacer: pacer}
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	return State(atomic.LoadInt32(&r.state))
}

// Collector exposes the run's accounting for reporters.
func (r *Runner) Collector() *metrics.Collector {
	return r.opt.Collector
}

// Stop requests termination. It is safe to call from any goroutine and any
// number of times; only the first call during a run transitions the state.
func (r *Runner) Stop() {
	r.beginDrain()
}

func (r *Runner) beginDrain() {
	if !atomic.CompareAndSwapInt32(&r.state, int32(StateRunning), int32(StateDraining)) {
		return
	}
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run starts the worker pool and blocks until the run terminates: duration
// elapsed, total reached, or ctx cancelled. All workers have exited by the
// time Run returns, so no further recording occurs afterward.
func (r *Runner) Run(ctx context.Context) Result {
	if !atomic.CompareAndSwapInt32(&r.state, int32(StateIdle), int32(StateRunning)) {
		return Result{}
	}
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	if r.opt.Duration > 0 {
		deadlineCtx, deadlineCancel := context.WithTimeout(ctx, r.opt.Duration)
		ctx = deadlineCtx
		defer deadlineCancel()
	}

	bounded := r.opt.Total > 0
	shares := DivideWork(r.opt.Total, r.opt.Concurrency)

	var wg sync.WaitGroup
	wg.Add(r.opt.Concurrency)
	for i := 0; i < r.opt.Concurrency; i++ {
		quota := 0
		if bounded {
			quota = shares[i]
		}
		go func(quota int) {
			defer wg.Done()
			r.work(ctx, quota, bounded)
		}(quota)
	}

	// Workers announce completion through a closed channel; the controller
	// blocks on it instead of polling.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		r.beginDrain()
		<-done
	case <-done:
		r.beginDrain()
	}
	atomic.StoreInt32(&r.state, int32(StateTerminated))

	snap := r.opt.Collector.Snapshot()
	return Result{
		Sent:      snap.Sent,
		Successes: snap.Successes,
		Failures:  snap.Failures,
		Duration:  time.Since(start),
	}
}

// work is one worker's loop: check cancellation, wait for admission, send one
// hit, record, repeat until the quota is exhausted or the run is cancelled.
func (r *Runner) work(ctx context.Context, quota int, bounded bool) {
	for i := 0; !bounded || i < quota; i++ {
		if ctx.Err() != nil {
			return
		}
		if err := r.pacer.Wait(ctx); err != nil {
			return
		}
		r.hit(ctx)
	}
}

func (r *Runner) hit(ctx context.Context) {
	if r.opt.Sender == nil {
		return
	}

	start := time.Now()
	status, err := r.opt.Sender.Send(ctx)
	latency := time.Since(start)

	// A request aborted by run shutdown is not an outcome, whether the run
	// context was cancelled (Stop, signal) or its duration deadline fired.
	// A per-request client timeout never cancels the run context, so it
	// still records as a failure below.
	if cause := ctx.Err(); cause != nil && err != nil &&
		(errors.Is(err, context.Canceled) || errors.Is(err, cause)) {
		return
	}

	success := err == nil && IsSuccess(status)
	if err == nil && !success {
		err = &HTTPError{StatusCode: status}
	}
	if err != nil && r.opt.Logger != nil {
		r.opt.Logger.LogFailure(err)
	}
	r.opt.Collector.Record(success, latency, status, err)
}
