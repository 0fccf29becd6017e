// Package pacing governs the aggregate request rate shared by all workers.
package pacing

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// fallbackCapacity bounds the bucket when constructed with a non-positive
// rate. Config validation rejects such rates before a run starts; the clamp
// only keeps the arithmetic safe.
const fallbackCapacity = 1000

// Pacer admits requests at a governed rate. Wait blocks until the caller may
// proceed or the context is cancelled.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Model selects the pacing implementation.
type Model string

const (
	ModelBucket Model = "bucket"
	ModelSmooth Model = "smooth"
)

// New returns a Pacer for the given model and rate.
func New(model Model, rps int) Pacer {
	switch model {
	case ModelSmooth:
		return NewSmooth(rps)
	default:
		return NewTokenBucket(float64(rps))
	}
}

// TokenBucket is a mutex-guarded token bucket. Tokens accumulate at capacity
// per second up to capacity and one token is spent per admitted request.
type TokenBucket struct {
	mu       sync.Mutex
	capacity float64
	tokens   float64
	last     time.Time
	now      func() time.Time // injectable for tests
}

// NewTokenBucket creates a bucket that admits capacity requests per second.
// The bucket starts full, so a fresh bucket admits immediately.
func NewTokenBucket(capacity float64) *TokenBucket {
	if capacity <= 0 {
		capacity = fallbackCapacity
	}
	b := &TokenBucket{
		capacity: capacity,
		tokens:   capacity,
		now:      time.Now,
	}
	b.last = b.now()
	return b
}

// Admit refills the bucket for the elapsed time and either consumes a token,
// returning (0, true), or returns the duration the caller must wait before
// proceeding. When a wait is returned the remaining fraction of a token is
// spent, so the caller proceeds after sleeping without calling Admit again.
func (b *TokenBucket) Admit() (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	elapsed := now.Sub(b.last).Seconds()
	b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.capacity)
	b.last = now

	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		return 0, true
	}

	wait := time.Duration((1.0 - b.tokens) / b.capacity * float64(time.Second))
	b.tokens = 0
	return wait, false
}

// Wait blocks until a request may proceed, honoring ctx cancellation while
// sleeping out the bucket-mandated delay.
func (b *TokenBucket) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	wait, ok := b.Admit()
	if ok {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Capacity returns the configured rate ceiling.
func (b *TokenBucket) Capacity() float64 {
	return b.capacity
}

// smooth delegates pacing to a rate.Limiter, which spreads admissions
// uniformly instead of allowing bucket-sized bursts.
type smooth struct {
	limiter *rate.Limiter
}

// NewSmooth returns a uniformly spaced pacer for rps requests per second.
func NewSmooth(rps int) Pacer {
	if rps <= 0 {
		rps = fallbackCapacity
	}
	return &smooth{limiter: rate.NewLimiter(rate.Limit(rps), rps)}
}

func (s *smooth) Wait(ctx context.Context) error {
	if s == nil || s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}
