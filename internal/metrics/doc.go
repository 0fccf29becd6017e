// Package metrics provides thread-safe accounting for traffic generation runs.
//
// The central [Collector] type aggregates hit outcomes from all workers:
//
//	collector := metrics.NewCollector(total)
//	collector.Start() // mark run start for accurate rate calculation
//
//	// From any worker goroutine:
//	collector.Record(success, latency, statusCode, err)
//
//	// From the reporting loop:
//	snap := collector.Snapshot()
//
// A [Snapshot] carries the exact counters (sent always equals
// successes+failures), the run rate, the rolling mean over the last
// [RecentWindow] latencies, and latency percentiles backed by an HDR
// histogram. Snapshots are consistent: every field is computed under the same
// critical section that guards recording.
package metrics
