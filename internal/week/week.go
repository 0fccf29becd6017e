// Package week models the simulated week of varying daily traffic volumes.
package week

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Days lists the weekday keys in plan order.
var Days = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

var fullNames = map[string]string{
	"mon": "Monday",
	"tue": "Tuesday",
	"wed": "Wednesday",
	"thu": "Thursday",
	"fri": "Friday",
	"sat": "Saturday",
	"sun": "Sunday",
}

// defaultHits is the stock traffic shape used when no plan file is given.
var defaultHits = map[string]int{
	"mon": 1569,
	"tue": 1232,
	"wed": 2542,
	"thu": 540,
	"fri": 7984,
	"sat": 2345,
	"sun": 1234,
}

// ValidDay reports whether day is one of mon..sun.
func ValidDay(day string) bool {
	_, ok := fullNames[strings.ToLower(strings.TrimSpace(day))]
	return ok
}

// FullName returns the display name for a day key, or the key itself when
// unknown.
func FullName(day string) string {
	if name, ok := fullNames[strings.ToLower(strings.TrimSpace(day))]; ok {
		return name
	}
	return day
}

// DateFor maps a weekday to its most recent calendar occurrence not after
// now, formatted YYYY-MM-DD. Today's weekday maps to today.
func DateFor(day string, now time.Time) (string, error) {
	day = strings.ToLower(strings.TrimSpace(day))
	idx := -1
	for i, d := range Days {
		if d == day {
			idx = i
			break
		}
	}
	if idx == -1 {
		return "", fmt.Errorf("invalid day %q", day)
	}

	// Days is Monday-first; time.Weekday is Sunday-first.
	today := (int(now.Weekday()) + 6) % 7
	diff := idx - today
	if diff > 0 {
		diff -= 7
	}
	return now.AddDate(0, 0, diff).Format("2006-01-02"), nil
}

// DayHits pairs a weekday with its hit volume.
type DayHits struct {
	Day  string
	Hits int
}

// Plan is an ordered sequence of daily volumes to simulate.
type Plan []DayHits

// TotalHits sums the plan's volumes.
func (p Plan) TotalHits() int {
	total := 0
	for _, d := range p {
		total += d.Hits
	}
	return total
}

// DefaultPlan returns the full week with stock volumes.
func DefaultPlan() Plan {
	plan := make(Plan, 0, len(Days))
	for _, d := range Days {
		plan = append(plan, DayHits{Day: d, Hits: defaultHits[d]})
	}
	return plan
}

// PlanFor builds a plan for the given days with stock volumes, preserving the
// requested order.
func PlanFor(days []string) (Plan, error) {
	if len(days) == 0 {
		return DefaultPlan(), nil
	}
	plan := make(Plan, 0, len(days))
	for _, day := range days {
		key := strings.ToLower(strings.TrimSpace(day))
		hits, ok := defaultHits[key]
		if !ok {
			return nil, fmt.Errorf("invalid day %q", day)
		}
		plan = append(plan, DayHits{Day: key, Hits: hits})
	}
	return plan, nil
}

// ParseDays splits a comma-separated day list and validates each entry.
func ParseDays(list string) ([]string, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	parts := strings.Split(list, ",")
	days := make([]string, 0, len(parts))
	for _, p := range parts {
		day := strings.ToLower(strings.TrimSpace(p))
		if !ValidDay(day) {
			return nil, fmt.Errorf("invalid day %q (use mon..sun)", p)
		}
		days = append(days, day)
	}
	return days, nil
}

// LoadPlan reads a YAML mapping of weekday to hit count. Days absent from the
// file are skipped; the result is ordered mon..sun.
func LoadPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read week plan: %w", err)
	}

	var raw map[string]int
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse week plan: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("week plan %s is empty", path)
	}

	byDay := make(map[string]int, len(raw))
	for day, hits := range raw {
		key := strings.ToLower(strings.TrimSpace(day))
		if !ValidDay(key) {
			return nil, fmt.Errorf("week plan: invalid day %q", day)
		}
		if hits <= 0 {
			return nil, fmt.Errorf("week plan: hits for %s must be > 0, got %d", key, hits)
		}
		byDay[key] = hits
	}

	plan := make(Plan, 0, len(byDay))
	for _, d := range Days {
		if hits, ok := byDay[d]; ok {
			plan = append(plan, DayHits{Day: d, Hits: hits})
		}
	}
	return plan, nil
}
