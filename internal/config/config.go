package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/webtraffic/hitgen/internal/pacing"
	"github.com/webtraffic/hitgen/internal/threshold"
	"github.com/webtraffic/hitgen/internal/week"
)

// Config is the immutable run configuration. It is read-only after Load and
// shared by reference across all components.
type Config struct {
	TargetURL string        `mapstructure:"target"`
	Rate      int           `mapstructure:"rate"`
	Workers   int           `mapstructure:"workers"`
	Total     int           `mapstructure:"total"`
	Duration  time.Duration `mapstructure:"duration"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Pacing    pacing.Model  `mapstructure:"pacing"`

	// Date stamps hits in single-run mode; week mode derives dates per day.
	Date     string   `mapstructure:"date"`
	Week     bool     `mapstructure:"week"`
	Days     []string `mapstructure:"days"`
	WeekFile string   `mapstructure:"week_file"`

	// Checks are pass/fail assertions evaluated against the final metrics.
	Checks []string `mapstructure:"checks"`

	JSONOutput bool   `mapstructure:"json_output"`
	Dashboard  bool   `mapstructure:"dashboard"`
	LogErrors  bool   `mapstructure:"log_errors"`
	ConfigFile string `mapstructure:"-"`

	Tracing TracingConfig `mapstructure:"tracing"`
}

// TracingConfig controls optional OpenTelemetry export.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Propagate   bool    `mapstructure:"propagate"`
}

// Enabled reports whether a tracing exporter should be initialized.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// ValidationError aggregates every configuration issue found.
type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate checks the configuration before any worker starts. A non-positive
// rate is an error: pacing cannot be disabled, only tuned.
func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.TargetURL) == "" {
		issues = append(issues, "target is required (use --help for usage information)")
	}
	if c.Workers < 1 {
		issues = append(issues, "workers must be >= 1")
	}
	if c.Rate <= 0 {
		issues = append(issues, "rate must be > 0")
	}
	if c.Total < 0 {
		issues = append(issues, "total must be >= 0")
	}
	if c.Duration < 0 {
		issues = append(issues, "duration must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}

	switch c.Pacing {
	case pacing.ModelBucket, pacing.ModelSmooth:
	default:
		issues = append(issues, fmt.Sprintf("pacing must be %q or %q", pacing.ModelBucket, pacing.ModelSmooth))
	}

	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}

	if c.Date != "" {
		if _, err := time.Parse("2006-01-02", c.Date); err != nil {
			issues = append(issues, fmt.Sprintf("date must be YYYY-MM-DD: %q", c.Date))
		}
		if c.Week {
			issues = append(issues, "date and week are mutually exclusive")
		}
	}

	for _, day := range c.Days {
		if !week.ValidDay(day) {
			issues = append(issues, fmt.Sprintf("invalid day %q (use mon..sun)", day))
		}
	}
	if len(c.Days) > 0 && !c.Week {
		issues = append(issues, "days requires week mode")
	}
	if c.WeekFile != "" && !c.Week {
		issues = append(issues, "week-file requires week mode")
	}
	if c.Week && (c.Total > 0 || c.Duration > 0) {
		issues = append(issues, "week mode derives totals from the plan; total and duration do not apply")
	}
	if c.Week && c.Dashboard {
		issues = append(issues, "dashboard is not available in week mode")
	}

	if _, err := threshold.ParseAll(c.Checks); err != nil {
		issues = append(issues, err.Error())
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, "tracing sample_rate must be between 0.0 and 1.0")
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}
