package metrics

import (
	"testing"
	"time"
)

// TestRollingWindowEviction fills the ring past capacity and checks the
// oldest entry is gone while order is preserved.
func TestRollingWindowEviction(t *testing.T) {
	c := NewCollector(0)

	for i := 1; i <= RecentWindow+1; i++ {
		c.Record(true, time.Duration(i)*time.Millisecond, 200, nil)
	}

	window := c.recentLatencies()
	if len(window) != RecentWindow {
		t.Fatalf("window size %d, want %d", len(window), RecentWindow)
	}
	// Entry 1ms was evicted; window now spans 2ms..101ms oldest-first.
	if window[0] != 2*time.Millisecond {
		t.Errorf("oldest entry should be 2ms, got %s", window[0])
	}
	if window[len(window)-1] != time.Duration(RecentWindow+1)*time.Millisecond {
		t.Errorf("newest entry should be %dms, got %s", RecentWindow+1, window[len(window)-1])
	}

	// The evicted value must not contribute to the rolling mean.
	var sum time.Duration
	for _, d := range window {
		sum += d
	}
	want := sum / time.Duration(len(window))
	if got := c.Snapshot().RecentMeanLatency; got != want {
		t.Errorf("recent mean %s, want %s", got, want)
	}
}

func TestRollingWindowPartialFill(t *testing.T) {
	c := NewCollector(0)
	c.Record(true, 4*time.Millisecond, 200, nil)
	c.Record(true, 8*time.Millisecond, 200, nil)

	window := c.recentLatencies()
	if len(window) != 2 {
		t.Fatalf("window size %d, want 2", len(window))
	}
	if c.Snapshot().RecentMeanLatency != 6*time.Millisecond {
		t.Errorf("expected mean 6ms over partial window")
	}
}
