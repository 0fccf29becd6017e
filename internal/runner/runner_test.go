package runner_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/webtraffic/hitgen/internal/metrics"
	"github.com/webtraffic/hitgen/internal/pacing"
	"github.com/webtraffic/hitgen/internal/runner"
)

// fakeSender simulates the HTTP sender with a fixed status, optional error,
// and fixed latency.
type fakeSender struct {
	status  int
	err     error
	latency time.Duration
	calls   int64
}

func (f *fakeSender) Send(ctx context.Context) (int, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.latency > 0 {
		select {
		case <-time.After(f.latency):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return f.status, f.err
}

// nopPacer admits immediately, for tests that are not about pacing.
type nopPacer struct{}

func (nopPacer) Wait(ctx context.Context) error { return ctx.Err() }

func unpaced(pacing.Model, int) pacing.Pacer { return nopPacer{} }

func TestRunnerFiniteTotal(t *testing.T) {
	sender := &fakeSender{status: 200, latency: time.Millisecond}
	r := runner.New(runner.Options{
		Concurrency:  4,
		Total:        25,
		Sender:       sender,
		PacerFactory: unpaced,
	})

	res := r.Run(context.Background())
	if res.Sent != 25 {
		t.Fatalf("expected sent 25, got %d", res.Sent)
	}
	if res.Successes != 25 || res.Failures != 0 {
		t.Fatalf("expected 25/0, got %d/%d", res.Successes, res.Failures)
	}
	if atomic.LoadInt64(&sender.calls) != 25 {
		t.Fatalf("expected sender called 25 times, got %d", sender.calls)
	}
	if r.State() != runner.StateTerminated {
		t.Fatalf("expected terminated state, got %s", r.State())
	}
}

func TestDivideWork(t *testing.T) {
	shares := runner.DivideWork(100, 7)
	if len(shares) != 7 {
		t.Fatalf("expected 7 shares, got %d", len(shares))
	}
	big, small, sum := 0, 0, 0
	for _, s := range shares {
		sum += s
		switch s {
		case 15:
			big++
		case 14:
			small++
		default:
			t.Fatalf("unexpected share %d", s)
		}
	}
	if big != 2 || small != 5 {
		t.Fatalf("expected 2x15 and 5x14, got %dx15 and %dx14", big, small)
	}
	if sum != 100 {
		t.Fatalf("shares must sum to 100, got %d", sum)
	}
}

func TestDivideWorkFewerUnitsThanWorkers(t *testing.T) {
	shares := runner.DivideWork(3, 5)
	sum := 0
	for i, s := range shares {
		sum += s
		if i < 3 && s != 1 {
			t.Errorf("worker %d should get 1 unit, got %d", i, s)
		}
		if i >= 3 && s != 0 {
			t.Errorf("worker %d should get 0 units, got %d", i, s)
		}
	}
	if sum != 3 {
		t.Fatalf("shares must sum to 3, got %d", sum)
	}
	if runner.DivideWork(10, 0) != nil {
		t.Error("zero workers should yield nil shares")
	}
}

func TestRunnerHonorsDuration(t *testing.T) {
	sender := &fakeSender{status: 200, latency: 5 * time.Millisecond}
	r := runner.New(runner.Options{
		Concurrency:  10,
		Duration:     50 * time.Millisecond,
		Sender:       sender,
		PacerFactory: unpaced,
	})

	start := time.Now()
	res := r.Run(context.Background())
	elapsed := time.Since(start)

	if elapsed < 50*time.Millisecond || elapsed > 500*time.Millisecond {
		t.Fatalf("duration enforcement off: %s", elapsed)
	}
	if res.Sent <= 0 {
		t.Fatal("expected some hits executed")
	}
	if res.Successes+res.Failures != res.Sent {
		t.Fatalf("count invariant violated: %d + %d != %d", res.Successes, res.Failures, res.Sent)
	}
}

// stalledSender blocks until the run is cancelled, like a request against a
// hung target that is cut off mid-flight at shutdown.
type stalledSender struct{}

func (stalledSender) Send(ctx context.Context) (int, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestRunnerAbortedHitsNotRecorded(t *testing.T) {
	// Duration deadline: in-flight hits are cut off by DeadlineExceeded.
	r := runner.New(runner.Options{
		Concurrency:  3,
		Duration:     50 * time.Millisecond,
		Sender:       stalledSender{},
		PacerFactory: unpaced,
	})
	res := r.Run(context.Background())
	if res.Sent != 0 || res.Failures != 0 {
		t.Fatalf("deadline abort recorded as outcome: sent=%d failures=%d", res.Sent, res.Failures)
	}

	// Stop: the same abort surfaces as Canceled and must match.
	r = runner.New(runner.Options{
		Concurrency:  3,
		Sender:       stalledSender{},
		PacerFactory: unpaced,
	})
	done := make(chan runner.Result, 1)
	go func() { done <- r.Run(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	r.Stop()

	select {
	case res = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after Stop")
	}
	if res.Sent != 0 || res.Failures != 0 {
		t.Fatalf("stop abort recorded as outcome: sent=%d failures=%d", res.Sent, res.Failures)
	}
}

func TestRunnerAllFailuresStillTerminates(t *testing.T) {
	sender := &fakeSender{err: errors.New("connection refused")}
	r := runner.New(runner.Options{
		Concurrency:  5,
		Total:        40,
		Sender:       sender,
		PacerFactory: unpaced,
	})

	done := make(chan runner.Result, 1)
	go func() { done <- r.Run(context.Background()) }()

	select {
	case res := <-done:
		if res.Failures != res.Sent || res.Sent != 40 {
			t.Fatalf("expected 40 failures, got sent=%d failures=%d", res.Sent, res.Failures)
		}
		if res.Successes != 0 {
			t.Fatalf("expected 0 successes, got %d", res.Successes)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not terminate with an always-failing sender")
	}
}

func TestRunnerStatusClassification(t *testing.T) {
	for _, tc := range []struct {
		status  int
		success bool
	}{
		{200, true}, {201, true}, {202, true},
		{204, false}, {301, false}, {404, false}, {500, false},
	} {
		sender := &fakeSender{status: tc.status}
		r := runner.New(runner.Options{
			Concurrency:  1,
			Total:        1,
			Sender:       sender,
			PacerFactory: unpaced,
		})
		res := r.Run(context.Background())
		if got := res.Successes == 1; got != tc.success {
			t.Errorf("status %d: success=%v, want %v", tc.status, got, tc.success)
		}
	}
}

func TestRunnerStopIdempotent(t *testing.T) {
	sender := &fakeSender{status: 200, latency: time.Millisecond}
	r := runner.New(runner.Options{
		Concurrency:  4,
		Sender:       sender,
		PacerFactory: unpaced,
	})

	done := make(chan runner.Result, 1)
	go func() { done <- r.Run(context.Background()) }()

	// Give workers a moment to start, then stop from several goroutines at once.
	time.Sleep(20 * time.Millisecond)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Stop()
		}()
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after Stop")
	}
	if r.State() != runner.StateTerminated {
		t.Fatalf("expected terminated, got %s", r.State())
	}

	// A Runner executes exactly one run.
	if res := r.Run(context.Background()); res.Sent != 0 || res.Duration != 0 {
		t.Fatalf("second Run should be a no-op, got %+v", res)
	}
}

func TestRunnerExternalCancellation(t *testing.T) {
	sender := &fakeSender{status: 200, latency: time.Millisecond}
	r := runner.New(runner.Options{
		Concurrency:  3,
		Sender:       sender,
		PacerFactory: unpaced,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not observe external cancellation")
	}
}

func TestRunnerPacedEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("timing-sensitive")
	}

	collector := metrics.NewCollector(100)
	sender := &fakeSender{status: 200, latency: time.Millisecond}
	r := runner.New(runner.Options{
		Concurrency: 10,
		Total:       100,
		Rate:        50,
		Sender:      sender,
		Collector:   collector,
	})

	start := time.Now()
	res := r.Run(context.Background())
	elapsed := time.Since(start)

	if res.Sent != 100 || res.Successes != 100 || res.Failures != 0 {
		t.Fatalf("expected 100 clean hits, got %+v", res)
	}
	// The bucket starts full (50 tokens), so ~50 hits burst through and the
	// remaining ~50 arrive at 50/s: roughly one second overall.
	if elapsed < 600*time.Millisecond || elapsed > 4*time.Second {
		t.Fatalf("pacing off: 100 hits at 50/s took %s", elapsed)
	}

	snap := collector.Snapshot()
	if snap.Sent != 100 {
		t.Fatalf("collector disagreement: %d", snap.Sent)
	}
}

func TestRunnerRecordsHTTPErrorsForBadStatus(t *testing.T) {
	collector := metrics.NewCollector(0)
	sender := &fakeSender{status: 503}
	r := runner.New(runner.Options{
		Concurrency:  2,
		Total:        10,
		Sender:       sender,
		Collector:    collector,
		PacerFactory: unpaced,
	})
	r.Run(context.Background())

	snap := collector.Snapshot()
	if snap.StatusCounts[503] != 10 {
		t.Fatalf("expected 10 hits recorded with status 503, got %d", snap.StatusCounts[503])
	}
	if len(snap.Errors) == 0 {
		t.Fatal("expected an error breakdown entry for HTTP failures")
	}
}
