package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/webtraffic/hitgen/internal/metrics"
	"github.com/webtraffic/hitgen/internal/pacing"
)

// Sender executes a single hit against the target and reports the HTTP status.
// A non-nil error means the request never produced a response (connection
// refused, DNS failure, timeout).
type Sender interface {
	Send(ctx context.Context) (int, error)
}

// FailureLogger logs failed hits.
type FailureLogger interface {
	LogFailure(err error)
}

// Options configure the Runner.
type Options struct {
	Concurrency  int                // number of worker goroutines
	Total        int                // total hits to send (0 means unlimited until duration/cancel)
	Duration     time.Duration      // overall time limit (0 means no duration cap)
	Rate         int                // requests per second pacing target
	Pacing       pacing.Model       // bucket (default) or smooth
	Sender       Sender             // hit executor (required)
	Collector    *metrics.Collector // outcome accounting (created if nil)
	Logger       FailureLogger      // optional per-failure logging
	PacerFactory func(model pacing.Model, rps int) pacing.Pacer // optional injection for tests
}

func (o *Options) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.Total < 0 {
		o.Total = 0
	}
	if o.Collector == nil {
		o.Collector = metrics.NewCollector(o.Total)
	}
	if o.PacerFactory == nil {
		o.PacerFactory = pacing.New
	}
}

// HTTPError marks a hit that completed with a non-success status.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// IsSuccess reports whether status counts as a successful hit.
func IsSuccess(status int) bool {
	switch status {
	case 200, 201, 202:
		return true
	}
	return false
}

// DivideWork splits total hits across workers as evenly as possible: the
// first total%workers workers receive one extra hit. The shares always sum to
// total.
func DivideWork(total, workers int) []int {
	if workers <= 0 {
		return nil
	}
	shares := make([]int, workers)
	if total <= 0 {
		return shares
	}
	base := total / workers
	extra := total % workers
	for i := range shares {
		shares[i] = base
		if i < extra {
			shares[i]++
		}
	}
	return shares
}
