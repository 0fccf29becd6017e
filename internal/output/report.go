package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/webtraffic/hitgen/internal/metrics"
)

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, snap metrics.Snapshot) {
	fmt.Fprintln(w, "\n--- Traffic Results ---")
	fmt.Fprintf(w, "Elapsed:           %.1fs\n", snap.ElapsedSeconds)
	fmt.Fprintf(w, "Total Hits:        %d\n", snap.Sent)
	fmt.Fprintf(w, "Successful:        %d\n", snap.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", snap.Failures)
	if snap.Sent > 0 {
		fmt.Fprintf(w, "Success Rate:      %.1f%%\n", float64(snap.Successes)/float64(snap.Sent)*100)
	}
	fmt.Fprintf(w, "Avg Rate:          %.1f/sec\n", snap.RatePerSec)
	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %s\n", snap.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", snap.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", snap.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", snap.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", snap.P90Latency)
	fmt.Fprintf(w, "  P99:             %s\n", snap.P99Latency)

	if len(snap.StatusCounts) > 0 {
		fmt.Fprintln(w, "\nStatus Codes:")
		codes := make([]int, 0, len(snap.StatusCounts))
		for code := range snap.StatusCounts {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			fmt.Fprintf(w, "  %d: %d\n", code, snap.StatusCounts[code])
		}
	}

	if len(snap.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		names := make([]string, 0, len(snap.Errors))
		for name := range snap.Errors {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			return snap.Errors[names[i]] > snap.Errors[names[j]]
		})
		for _, name := range names {
			fmt.Fprintf(w, "  %s: %d\n", metrics.FriendlyErrorName(name), snap.Errors[name])
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, snap metrics.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
