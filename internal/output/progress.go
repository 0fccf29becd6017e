// Package output renders live progress and final reports for a run.
package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/webtraffic/hitgen/internal/metrics"
)

// ProgressReporter displays real-time progress updates on one rewritten line.
type ProgressReporter struct {
	collector *metrics.Collector
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
}

// NewProgressReporter creates a progress reporter that updates at the given
// interval.
func NewProgressReporter(collector *metrics.Collector, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates and waits for the display goroutine to exit.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, "\r"+FormatProgress(p.collector.Snapshot()))
		case <-p.done:
			return
		}
	}
}

// FormatProgress renders one status line from a snapshot.
func FormatProgress(snap metrics.Snapshot) string {
	line := fmt.Sprintf("%6.1fs | sent %d", snap.ElapsedSeconds, snap.Sent)
	if snap.TotalTarget > 0 {
		line = fmt.Sprintf("%6.1fs | sent %d/%d (%.1f%%)",
			snap.ElapsedSeconds, snap.Sent, snap.TotalTarget, snap.Percent)
	}
	line += fmt.Sprintf(" | ok %d | failed %d | %.1f/s",
		snap.Successes, snap.Failures, snap.RatePerSec)
	if snap.RecentMeanLatency > 0 {
		line += fmt.Sprintf(" | %.0fms", snap.RecentMeanLatencyMs)
	}
	return line
}
