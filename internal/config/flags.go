package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/webtraffic/hitgen/internal/pacing"
	"github.com/webtraffic/hitgen/internal/week"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "hitgen",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Target and load control
	flags.String("target", "", "Target URL to send hits to")
	flags.IntP("rate", "r", 500, "Target requests per second")
	flags.IntP("workers", "w", 50, "Number of concurrent workers")
	flags.IntP("total", "t", 0, "Total hits to send (0 means unlimited)")
	flags.DurationP("duration", "d", 0, "How long to run (e.g. 30s, 1m; 0 means unlimited)")
	flags.Duration("timeout", 10*time.Second, "Per-request timeout")
	flags.String("pacing", string(pacing.ModelBucket), "Pacing model: 'bucket' or 'smooth'")

	// Week simulation
	flags.String("date", "", "Stamp hits with this date (YYYY-MM-DD)")
	flags.Bool("week", false, "Simulate a week of traffic, one day at a time")
	flags.String("day", "", "Days to simulate in week mode, e.g. mon,tue (default: all)")
	flags.String("week-file", "", "YAML file mapping weekday to hit count for week mode")

	// Pass/fail checks
	flags.StringSlice("check", nil, "Pass/fail check on final metrics, repeatable (e.g. 'latency:p99 < 500')")

	// Output
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("dashboard", false, "Show live terminal dashboard")
	flags.Bool("log-errors", false, "Log each failed hit to stderr")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing
	flags.String("trace-endpoint", "", "OTLP endpoint for trace export (empty disables tracing)")
	flags.String("trace-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.Bool("trace-insecure", false, "Disable TLS for OTLP export")
	flags.Float64("trace-sample-rate", 1.0, "Trace sampling rate between 0.0 and 1.0")

	flags.BoolP("help", "h", false, "Show help")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config,
// overriding values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("target") {
		val, err := fs.GetString("target")
		if err != nil {
			return err
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}
	if fs.Changed("rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("workers") {
		val, err := fs.GetInt("workers")
		if err != nil {
			return err
		}
		cfg.Workers = val
	}
	if fs.Changed("total") {
		val, err := fs.GetInt("total")
		if err != nil {
			return err
		}
		cfg.Total = val
	}
	if fs.Changed("duration") {
		val, err := fs.GetDuration("duration")
		if err != nil {
			return err
		}
		cfg.Duration = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("pacing") {
		val, err := fs.GetString("pacing")
		if err != nil {
			return err
		}
		cfg.Pacing = pacing.Model(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("date") {
		val, err := fs.GetString("date")
		if err != nil {
			return err
		}
		cfg.Date = strings.TrimSpace(val)
	}
	if fs.Changed("week") {
		val, err := fs.GetBool("week")
		if err != nil {
			return err
		}
		cfg.Week = val
	}
	if fs.Changed("day") {
		val, err := fs.GetString("day")
		if err != nil {
			return err
		}
		days, err := week.ParseDays(val)
		if err != nil {
			return err
		}
		cfg.Days = days
	}
	if fs.Changed("week-file") {
		val, err := fs.GetString("week-file")
		if err != nil {
			return err
		}
		cfg.WeekFile = strings.TrimSpace(val)
	}
	if fs.Changed("check") {
		val, err := fs.GetStringSlice("check")
		if err != nil {
			return err
		}
		cfg.Checks = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("log-errors") {
		val, err := fs.GetBool("log-errors")
		if err != nil {
			return err
		}
		cfg.LogErrors = val
	}
	if fs.Changed("trace-endpoint") {
		val, err := fs.GetString("trace-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("trace-protocol") {
		val, err := fs.GetString("trace-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("trace-insecure") {
		val, err := fs.GetBool("trace-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("trace-sample-rate") {
		val, err := fs.GetFloat64("trace-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}

	return nil
}
