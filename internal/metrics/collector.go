package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// RecentWindow is the number of latest latencies kept for the rolling average
// shown by live progress displays.
const RecentWindow = 100

// Collector records per-hit outcomes in a thread-safe manner. All mutation and
// observation happens under one mutex so snapshots are consistent
// point-in-time views.
type Collector struct {
	mu          sync.Mutex
	totalTarget int64
	sent        int64
	successes   int64
	failures    int64

	// recent is a fixed-capacity ring of the latest latencies.
	recent [RecentWindow]time.Duration
	next   int
	filled int

	hist         *hdrhistogram.Histogram
	minLatency   time.Duration
	maxLatency   time.Duration
	sumLatency   time.Duration
	statusCounts map[int]int64
	errorsByType map[string]int64

	start time.Time
	now   func() time.Time
}

// Snapshot is a consistent view of the collector at one instant.
type Snapshot struct {
	Sent        int64 `json:"sent"`
	Successes   int64 `json:"successes"`
	Failures    int64 `json:"failures"`
	TotalTarget int64 `json:"total_target,omitempty"`

	Elapsed           time.Duration `json:"-"`
	RatePerSec        float64       `json:"rate_per_sec"`
	RecentMeanLatency time.Duration `json:"-"`
	Percent           float64       `json:"percent,omitempty"`

	MinLatency  time.Duration `json:"-"`
	MaxLatency  time.Duration `json:"-"`
	MeanLatency time.Duration `json:"-"`
	P50Latency  time.Duration `json:"-"`
	P90Latency  time.Duration `json:"-"`
	P99Latency  time.Duration `json:"-"`

	// JSON-friendly fields for the machine-readable report.
	ElapsedSeconds      float64        `json:"elapsed_seconds"`
	RecentMeanLatencyMs float64        `json:"recent_mean_latency_ms"`
	MinLatencyMs        float64        `json:"min_latency_ms"`
	MaxLatencyMs        float64        `json:"max_latency_ms"`
	MeanLatencyMs       float64        `json:"mean_latency_ms"`
	P50LatencyMs        float64        `json:"p50_latency_ms"`
	P90LatencyMs        float64        `json:"p90_latency_ms"`
	P99LatencyMs        float64        `json:"p99_latency_ms"`
	StatusCounts        map[int]int64  `json:"status_counts,omitempty"`
	Errors              map[string]int `json:"errors,omitempty"`
}

// NewCollector creates a collector. totalTarget is the expected number of hits
// for bounded runs, or 0 when the run is unbounded.
func NewCollector(totalTarget int) *Collector {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	c := &Collector{
		totalTarget:  int64(totalTarget),
		hist:         h,
		statusCounts: make(map[int]int64),
		errorsByType: make(map[string]int64),
		now:          time.Now,
	}
	c.start = c.now()
	return c
}

// Start pins the wall-clock start of the run. Reporters may be constructed
// before the workers begin, so the actual start is marked explicitly for
// accurate rate computation.
func (c *Collector) Start() {
	c.mu.Lock()
	c.start = c.now()
	c.mu.Unlock()
}

// Record accounts one completed hit. The sent count always equals
// successes+failures because all three move inside the same critical section.
func (c *Collector) Record(success bool, latency time.Duration, status int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sent++
	if success {
		c.successes++
	} else {
		c.failures++
	}

	c.recent[c.next] = latency
	c.next = (c.next + 1) % RecentWindow
	if c.filled < RecentWindow {
		c.filled++
	}

	if latency > 0 {
		us := latency.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)
	}
	c.sumLatency += latency
	if c.minLatency == 0 || latency < c.minLatency {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}

	if status > 0 {
		c.statusCounts[status]++
	}
	if err != nil {
		errorType := fmt.Sprintf("%T", err)
		if len(errorType) > 30 {
			errorType = errorType[len(errorType)-30:]
		}
		c.errorsByType[errorType]++
	}
}

// Snapshot computes the current aggregated view. It has no side effects beyond
// reading the clock and is safe to call at any time from any goroutine.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := c.now().Sub(c.start)

	snap := Snapshot{
		Sent:        c.sent,
		Successes:   c.successes,
		Failures:    c.failures,
		TotalTarget: c.totalTarget,
		Elapsed:     elapsed,
		MinLatency:  c.minLatency,
		MaxLatency:  c.maxLatency,
	}

	if elapsed > 0 && c.sent > 0 {
		snap.RatePerSec = float64(c.sent) / elapsed.Seconds()
	}
	if c.totalTarget > 0 {
		snap.Percent = float64(c.sent) / float64(c.totalTarget) * 100
	}

	if c.filled > 0 {
		var sum time.Duration
		for i := 0; i < c.filled; i++ {
			sum += c.recent[i]
		}
		snap.RecentMeanLatency = sum / time.Duration(c.filled)
	}

	if c.sent > 0 {
		snap.MeanLatency = time.Duration(int64(c.sumLatency) / c.sent)
	}
	if c.hist.TotalCount() > 0 {
		snap.P50Latency = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		snap.P90Latency = time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond
		snap.P99Latency = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	snap.ElapsedSeconds = elapsed.Seconds()
	snap.RecentMeanLatencyMs = float64(snap.RecentMeanLatency) / float64(time.Millisecond)
	snap.MinLatencyMs = float64(snap.MinLatency) / float64(time.Millisecond)
	snap.MaxLatencyMs = float64(snap.MaxLatency) / float64(time.Millisecond)
	snap.MeanLatencyMs = float64(snap.MeanLatency) / float64(time.Millisecond)
	snap.P50LatencyMs = float64(snap.P50Latency) / float64(time.Millisecond)
	snap.P90LatencyMs = float64(snap.P90Latency) / float64(time.Millisecond)
	snap.P99LatencyMs = float64(snap.P99Latency) / float64(time.Millisecond)

	if len(c.statusCounts) > 0 {
		snap.StatusCounts = make(map[int]int64, len(c.statusCounts))
		for code, n := range c.statusCounts {
			snap.StatusCounts[code] = n
		}
	}
	if len(c.errorsByType) > 0 {
		snap.Errors = make(map[string]int, len(c.errorsByType))
		for k, v := range c.errorsByType {
			snap.Errors[k] = int(v)
		}
	}

	return snap
}

// recentLatencies returns a copy of the rolling window, oldest first.
func (c *Collector) recentLatencies() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]time.Duration, 0, c.filled)
	if c.filled < RecentWindow {
		for i := 0; i < c.filled; i++ {
			out = append(out, c.recent[i])
		}
		return out
	}
	for i := 0; i < RecentWindow; i++ {
		out = append(out, c.recent[(c.next+i)%RecentWindow])
	}
	return out
}
