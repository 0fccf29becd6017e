// Package threshold evaluates pass/fail checks against run metrics.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/webtraffic/hitgen/internal/metrics"
)

// Check is a single assertion over the final run metrics, e.g.
// "latency:p99 < 500" or "failed:rate < 0.01".
type Check struct {
	Metric    string  // "latency", "failed", "hits"
	Aggregate string  // "p50", "p90", "p99", "mean", "min", "max", "rate", "count"
	Operator  string  // "<", "<=", ">", ">=", "=="
	Value     float64
	Raw       string // original string for display
}

// Result is the outcome of one evaluated check.
type Result struct {
	Check   Check
	Actual  float64
	Pass    bool
	Message string
}

var checkPattern = regexp.MustCompile(`^([a-z]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Parse parses a check string. Supported forms:
//   - "latency:p99 < 500"    latency percentile in ms (p50, p90, p99, mean, min, max)
//   - "failed:rate < 0.01"   failure rate as a decimal, or "failed:count"
//   - "hits:rate > 100"      achieved hits per second, or "hits:count"
func Parse(s string) (Check, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Check{}, fmt.Errorf("empty check")
	}

	matches := checkPattern.FindStringSubmatch(s)
	if matches == nil {
		return Check{}, fmt.Errorf("invalid check %q (expected metric:aggregate operator value, e.g. %q)", s, "latency:p99 < 500")
	}

	c := Check{
		Metric:    matches[1],
		Aggregate: matches[2],
		Operator:  matches[3],
		Raw:       s,
	}

	value, err := strconv.ParseFloat(matches[4], 64)
	if err != nil {
		return Check{}, fmt.Errorf("invalid check value %q: %w", matches[4], err)
	}
	c.Value = value

	if !validAggregates[c.Metric][c.Aggregate] {
		return Check{}, fmt.Errorf("unsupported check %s:%s", c.Metric, c.Aggregate)
	}
	switch c.Operator {
	case "<", "<=", ">", ">=", "==":
	default:
		return Check{}, fmt.Errorf("unsupported operator %q", c.Operator)
	}

	return c, nil
}

var validAggregates = map[string]map[string]bool{
	"latency": {"p50": true, "p90": true, "p99": true, "mean": true, "min": true, "max": true},
	"failed":  {"rate": true, "count": true},
	"hits":    {"rate": true, "count": true},
}

// ParseAll parses every check string, collecting all errors.
func ParseAll(raw []string) ([]Check, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	checks := make([]Check, 0, len(raw))
	var problems []string
	for i, s := range raw {
		c, err := Parse(s)
		if err != nil {
			problems = append(problems, fmt.Sprintf("check[%d]: %v", i, err))
			continue
		}
		checks = append(checks, c)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return checks, nil
}

// Evaluate runs every check against the snapshot.
func Evaluate(checks []Check, snap metrics.Snapshot) []Result {
	if len(checks) == 0 {
		return nil
	}
	results := make([]Result, 0, len(checks))
	for _, c := range checks {
		results = append(results, evaluateOne(c, snap))
	}
	return results
}

// AllPassed reports whether no result failed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func evaluateOne(c Check, snap metrics.Snapshot) Result {
	actual := extract(c, snap)
	pass := compare(actual, c.Operator, c.Value)
	status := "PASS"
	if !pass {
		status = "FAIL"
	}
	return Result{
		Check:   c,
		Actual:  actual,
		Pass:    pass,
		Message: fmt.Sprintf("%s %s (actual %.2f)", status, c.Raw, actual),
	}
}

func extract(c Check, snap metrics.Snapshot) float64 {
	switch c.Metric {
	case "latency":
		switch c.Aggregate {
		case "p50":
			return snap.P50LatencyMs
		case "p90":
			return snap.P90LatencyMs
		case "p99":
			return snap.P99LatencyMs
		case "mean":
			return snap.MeanLatencyMs
		case "min":
			return snap.MinLatencyMs
		case "max":
			return snap.MaxLatencyMs
		}
	case "failed":
		switch c.Aggregate {
		case "count":
			return float64(snap.Failures)
		case "rate":
			if snap.Sent == 0 {
				return 0
			}
			return float64(snap.Failures) / float64(snap.Sent)
		}
	case "hits":
		switch c.Aggregate {
		case "count":
			return float64(snap.Sent)
		case "rate":
			return snap.RatePerSec
		}
	}
	return 0
}

func compare(actual float64, operator string, expected float64) bool {
	const epsilon = 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	}
	return false
}
