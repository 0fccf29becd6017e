package pacing

import (
	"context"
	"testing"
	"time"
)

// fakeClock advances only when told, making refill deterministic.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestBucket(capacity float64) (*TokenBucket, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := &TokenBucket{
		capacity: capacity,
		tokens:   capacity,
		last:     clock.t,
		now:      clock.now,
	}
	return b, clock
}

// TestBucketFirstAdmitImmediate ensures a fresh bucket admits without waiting.
func TestBucketFirstAdmitImmediate(t *testing.T) {
	b, _ := newTestBucket(1)
	wait, ok := b.Admit()
	if !ok || wait != 0 {
		t.Fatalf("fresh bucket should admit immediately, got wait=%s ok=%v", wait, ok)
	}
}

// TestBucketDrainThenWait drains the bucket and checks the computed wait.
func TestBucketDrainThenWait(t *testing.T) {
	b, _ := newTestBucket(10)

	// Full bucket holds exactly capacity tokens.
	for i := 0; i < 10; i++ {
		if _, ok := b.Admit(); !ok {
			t.Fatalf("admit %d should succeed on a full bucket", i)
		}
	}

	wait, ok := b.Admit()
	if ok {
		t.Fatal("drained bucket should not admit")
	}
	// Zero tokens left: wait = (1 - 0) / 10 = 100ms.
	if wait != 100*time.Millisecond {
		t.Fatalf("expected 100ms wait, got %s", wait)
	}

	// Tokens were zeroed, so the next immediate call must also wait 100ms.
	wait, ok = b.Admit()
	if ok || wait != 100*time.Millisecond {
		t.Fatalf("expected second 100ms wait, got wait=%s ok=%v", wait, ok)
	}
}

// TestBucketRefillClampedToCapacity verifies tokens never exceed capacity.
func TestBucketRefillClampedToCapacity(t *testing.T) {
	b, clock := newTestBucket(5)

	// A long idle period must not accumulate more than capacity tokens.
	clock.advance(time.Hour)

	for i := 0; i < 5; i++ {
		if _, ok := b.Admit(); !ok {
			t.Fatalf("admit %d should succeed after refill", i)
		}
	}
	if _, ok := b.Admit(); ok {
		t.Fatal("sixth admit should wait: refill must clamp at capacity")
	}
}

// TestBucketPartialRefill checks proportional refill over elapsed time.
func TestBucketPartialRefill(t *testing.T) {
	b, clock := newTestBucket(10)

	for i := 0; i < 10; i++ {
		b.Admit()
	}

	// 50ms at 10/s refills half a token: wait = (1 - 0.5) / 10 = 50ms.
	clock.advance(50 * time.Millisecond)
	wait, ok := b.Admit()
	if ok {
		t.Fatal("half a token should not admit")
	}
	if wait != 50*time.Millisecond {
		t.Fatalf("expected 50ms wait, got %s", wait)
	}

	// 100ms refills a full token.
	clock.advance(100 * time.Millisecond)
	if _, ok := b.Admit(); !ok {
		t.Fatal("full token after 100ms should admit")
	}
}

// TestBucketNonPositiveCapacity verifies the constructor clamp.
func TestBucketNonPositiveCapacity(t *testing.T) {
	for _, capacity := range []float64{0, -5} {
		b := NewTokenBucket(capacity)
		if b.Capacity() != fallbackCapacity {
			t.Errorf("capacity %g: expected clamp to %d, got %g", capacity, fallbackCapacity, b.Capacity())
		}
		if _, ok := b.Admit(); !ok {
			t.Errorf("capacity %g: clamped bucket should still admit", capacity)
		}
	}
}

// TestBucketSustainedRateConverges drives the bucket with a virtual clock that
// always sleeps the returned wait and checks the admitted rate matches capacity.
func TestBucketSustainedRateConverges(t *testing.T) {
	const capacity = 50.0
	b, clock := newTestBucket(capacity)
	start := clock.t

	admitted := 0
	for clock.t.Sub(start) < 10*time.Second {
		wait, ok := b.Admit()
		if ok {
			admitted++
			continue
		}
		clock.advance(wait)
	}

	// One bucket of burst is allowed on top of the steady rate.
	elapsed := clock.t.Sub(start).Seconds()
	expected := capacity*elapsed + capacity
	if float64(admitted) > expected*1.01 || float64(admitted) < capacity*elapsed*0.95 {
		t.Fatalf("admitted %d over %.1fs at capacity %.0f", admitted, elapsed, capacity)
	}
}

// TestBucketWaitCancellable ensures Wait returns promptly on cancellation.
func TestBucketWaitCancellable(t *testing.T) {
	b := NewTokenBucket(0.001) // ~1000s between admissions once drained
	b.tokens = 0

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- b.Wait(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not honor cancellation")
	}
}

// TestSmoothPacerCapsRate checks the rate.Limiter-backed pacer restricts throughput.
func TestSmoothPacerCapsRate(t *testing.T) {
	p := NewSmooth(100)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	admitted := 0
	for {
		if err := p.Wait(ctx); err != nil {
			break
		}
		admitted++
	}

	// Burst of 100 plus ~10 steady admissions, with slack.
	if admitted > 140 {
		t.Fatalf("smooth pacer admitted %d in 100ms at 100/s", admitted)
	}
}

func TestNewSelectsModel(t *testing.T) {
	if _, ok := New(ModelBucket, 10).(*TokenBucket); !ok {
		t.Error("ModelBucket should produce a TokenBucket")
	}
	if _, ok := New(ModelSmooth, 10).(*smooth); !ok {
		t.Error("ModelSmooth should produce a smooth pacer")
	}
}
