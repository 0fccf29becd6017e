package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/webtraffic/hitgen/internal/config"
	"github.com/webtraffic/hitgen/internal/dashboard"
	"github.com/webtraffic/hitgen/internal/httpclient"
	"github.com/webtraffic/hitgen/internal/metrics"
	"github.com/webtraffic/hitgen/internal/output"
	"github.com/webtraffic/hitgen/internal/runner"
	"github.com/webtraffic/hitgen/internal/threshold"
	"github.com/webtraffic/hitgen/internal/tracing"
	"github.com/webtraffic/hitgen/internal/week"
)

const (
	progressInterval = 200 * time.Millisecond
	shutdownTimeout  = 5 * time.Second
)

type stderrFailureLogger struct {
	mu sync.Mutex
}

func (l *stderrFailureLogger) LogFailure(err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(os.Stderr, "[hitgen] hit failed: %v\n", err)
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "[hitgen] tracing shutdown: %v\n", err)
		}
	}()

	client := httpclient.NewClient(cfg.Timeout)

	if cfg.Week {
		return runWeek(ctx, cfg, client, provider)
	}
	return runSingle(ctx, cfg, client, provider)
}

func runSingle(ctx context.Context, cfg *config.Config, client *http.Client, provider *tracing.Provider) error {
	target, err := httpclient.BuildTarget(cfg.TargetURL, cfg.Date)
	if err != nil {
		return err
	}

	sender := httpclient.NewHitSender(client, target, provider)
	collector := metrics.NewCollector(cfg.Total)

	r := runner.New(runner.Options{
		Concurrency: cfg.Workers,
		Total:       cfg.Total,
		Duration:    cfg.Duration,
		Rate:        cfg.Rate,
		Pacing:      cfg.Pacing,
		Sender:      sender,
		Collector:   collector,
		Logger:      failureLogger(cfg),
	})

	if cfg.Dashboard {
		dash, err := dashboard.New(collector, dashboard.RunInfo{
			TargetURL: target,
			Rate:      cfg.Rate,
			Workers:   cfg.Workers,
			Total:     cfg.Total,
			Duration:  cfg.Duration,
		}, r.Stop)
		if err != nil {
			return err
		}
		dash.Start()
		defer dash.Stop()
	}

	var progress *output.ProgressReporter
	if !cfg.JSONOutput && !cfg.Dashboard {
		fmt.Fprintf(os.Stdout, "Hitting %s with %d workers at %d/s\n", target, cfg.Workers, cfg.Rate)
		progress = output.NewProgressReporter(collector, progressInterval, os.Stdout)
		progress.Start()
	}

	collector.Start()
	result := r.Run(ctx)
	snap := collector.Snapshot()

	if progress != nil {
		progress.Stop()
		fmt.Fprintln(os.Stdout)
	}

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, snap); err != nil {
			return err
		}
	} else {
		output.PrintReport(os.Stdout, snap)
	}

	if result.Failures > 0 && !cfg.JSONOutput {
		fmt.Fprintf(os.Stdout, "%d of %d hits failed\n", result.Failures, result.Sent)
	}

	// An all-failure run is still a completed run; only failing checks (or
	// configuration problems) produce a non-zero exit.
	return evaluateChecks(cfg, snap)
}

// evaluateChecks runs the configured pass/fail checks against the final
// metrics. Results go to stderr so JSON output stays machine readable.
func evaluateChecks(cfg *config.Config, snap metrics.Snapshot) error {
	checks, err := threshold.ParseAll(cfg.Checks)
	if err != nil {
		return err
	}
	results := threshold.Evaluate(checks, snap)
	if len(results) == 0 {
		return nil
	}

	out := os.Stdout
	if cfg.JSONOutput {
		out = os.Stderr
	}
	fmt.Fprintln(out, "\nChecks:")
	failed := 0
	for _, r := range results {
		fmt.Fprintf(out, "  %s\n", r.Message)
		if !r.Pass {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(results))
	}
	return nil
}

func runWeek(ctx context.Context, cfg *config.Config, client *http.Client, provider *tracing.Provider) error {
	plan, err := weekPlan(cfg)
	if err != nil {
		return err
	}

	logger := failureLogger(cfg)
	now := time.Now()
	var grand runner.Result
	var checkErr error

	for _, day := range plan {
		if ctx.Err() != nil {
			break
		}

		date, err := week.DateFor(day.Day, now)
		if err != nil {
			return err
		}
		target, err := httpclient.BuildTarget(cfg.TargetURL, date)
		if err != nil {
			return err
		}

		if !cfg.JSONOutput {
			fmt.Fprintf(os.Stdout, "\n=== %s (%s): %d hits ===\n", week.FullName(day.Day), date, day.Hits)
		}

		sender := httpclient.NewHitSender(client, target, provider)
		collector := metrics.NewCollector(day.Hits)

		r := runner.New(runner.Options{
			Concurrency: cfg.Workers,
			Total:       day.Hits,
			Rate:        cfg.Rate,
			Pacing:      cfg.Pacing,
			Sender:      sender,
			Collector:   collector,
			Logger:      logger,
		})

		var progress *output.ProgressReporter
		if !cfg.JSONOutput {
			progress = output.NewProgressReporter(collector, progressInterval, os.Stdout)
			progress.Start()
		}

		collector.Start()
		result := r.Run(ctx)
		snap := collector.Snapshot()

		if progress != nil {
			progress.Stop()
			fmt.Fprintln(os.Stdout)
		}

		if cfg.JSONOutput {
			if err := output.PrintJSONReport(os.Stdout, snap); err != nil {
				return err
			}
		} else {
			output.PrintReport(os.Stdout, snap)
		}

		if err := evaluateChecks(cfg, snap); err != nil {
			checkErr = err
		}

		grand.Sent += result.Sent
		grand.Successes += result.Successes
		grand.Failures += result.Failures
		grand.Duration += result.Duration
	}

	if !cfg.JSONOutput {
		fmt.Fprintf(os.Stdout, "\n=== Week total: %d hits (%d ok, %d failed) in %s ===\n",
			grand.Sent, grand.Successes, grand.Failures, grand.Duration.Round(time.Second))
	}

	return checkErr
}

// weekPlan resolves the simulation plan: explicit file, selected days, or the
// stock full week.
func weekPlan(cfg *config.Config) (week.Plan, error) {
	if cfg.WeekFile != "" {
		return week.LoadPlan(cfg.WeekFile)
	}
	return week.PlanFor(cfg.Days)
}

func failureLogger(cfg *config.Config) runner.FailureLogger {
	if !cfg.LogErrors {
		return nil
	}
	return &stderrFailureLogger{}
}
