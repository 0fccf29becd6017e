package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/webtraffic/hitgen/internal/pacing"
	"github.com/webtraffic/hitgen/internal/week"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and an optional config file to produce a
// Config. Flags override file values.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	settings := cfgViper.AllSettings()

	cfg := &Config{
		Rate:       500,
		Workers:    50,
		Timeout:    10 * time.Second,
		Pacing:     pacing.ModelBucket,
		ConfigFile: configPath,
		Tracing: TracingConfig{
			Protocol:   "grpc",
			SampleRate: 1.0,
		},
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.TargetURL = strings.TrimSpace(cfg.TargetURL)

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "target"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("target: %w", err)
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		cfg.Rate = val
	}

	if raw, ok := lookupSetting(settings, "workers"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("workers: %w", err)
		}
		cfg.Workers = val
	}

	if raw, ok := lookupSetting(settings, "total"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("total: %w", err)
		}
		cfg.Total = val
	}

	if raw, ok := lookupSetting(settings, "duration"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		cfg.Duration = dur
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	if raw, ok := lookupSetting(settings, "pacing"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("pacing: %w", err)
		}
		if val != "" {
			cfg.Pacing = pacing.Model(strings.ToLower(strings.TrimSpace(val)))
		}
	}

	if raw, ok := lookupSetting(settings, "date"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("date: %w", err)
		}
		cfg.Date = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "week"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("week: %w", err)
		}
		cfg.Week = val
	}

	if raw, ok := lookupSetting(settings, "day", "days"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("days: %w", err)
		}
		days, err := week.ParseDays(val)
		if err != nil {
			return err
		}
		cfg.Days = days
	}

	if raw, ok := lookupSetting(settings, "weekfile", "week_file", "week-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("weekFile: %w", err)
		}
		cfg.WeekFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "checks", "check"); ok {
		vals, err := asStringList(raw)
		if err != nil {
			return fmt.Errorf("checks: %w", err)
		}
		cfg.Checks = vals
	}

	if raw, ok := lookupSetting(settings, "jsonoutput", "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("jsonOutput: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "dashboard"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		cfg.Dashboard = val
	}

	if raw, ok := lookupSetting(settings, "logerrors", "log_errors", "log-errors"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("logErrors: %w", err)
		}
		cfg.LogErrors = val
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		if err := applyTracingSettings(&cfg.Tracing, raw); err != nil {
			return err
		}
	}

	return nil
}

func applyTracingSettings(cfg *TracingConfig, raw interface{}) error {
	section, ok := raw.(map[string]interface{})
	if !ok {
		return fmt.Errorf("tracing: expected a mapping, got %T", raw)
	}

	if raw, ok := lookupSetting(section, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("tracing.endpoint: %w", err)
		}
		cfg.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(section, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("tracing.protocol: %w", err)
		}
		cfg.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(section, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("tracing.serviceName: %w", err)
		}
		cfg.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(section, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("tracing.insecure: %w", err)
		}
		cfg.Insecure = val
	}
	if raw, ok := lookupSetting(section, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("tracing.sampleRate: %w", err)
		}
		cfg.SampleRate = val
	}
	if raw, ok := lookupSetting(section, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("tracing.propagate: %w", err)
		}
		cfg.Propagate = val
	}

	return nil
}
