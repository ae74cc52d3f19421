package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full server configuration, loaded from config.yaml and
// CASEPULSE_* environment variables.
type Config struct {
	Port               int      `mapstructure:"port"`
	DatabaseDriver     string   `mapstructure:"database_driver"` // sqlite or postgres
	DatabasePath       string   `mapstructure:"database_path"`   // SQLite file path
	DatabaseURL        string   `mapstructure:"database_url"`    // Postgres DSN; used when driver is postgres
	LogLevel           string   `mapstructure:"log_level"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	RequestTimeoutSec  int      `mapstructure:"request_timeout_sec"`  // HTTP read/write; 0 = use server default
	ShutdownTimeoutSec int      `mapstructure:"shutdown_timeout_sec"` // Graceful shutdown wait

	Detection DetectionConfig `mapstructure:"detection"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// DetectionConfig carries the tunable knobs of the detection engine.
// Values materialize into an immutable detect.Config at startup.
type DetectionConfig struct {
	SpikeFactor        float64 `mapstructure:"spike_factor"`         // current must exceed baseline × factor
	MinBaselineCount   int     `mapstructure:"min_baseline_count"`   // groups below this baseline are skipped
	MinCaseCount       int     `mapstructure:"min_case_count"`       // keyword detectors need at least this many matches
	MaxSampleCases     int     `mapstructure:"max_sample_cases"`     // sample case IDs kept per finding
	DetectorTimeoutSec int     `mapstructure:"detector_timeout_sec"` // per-detector deadline; exceeded = failed run

	// DefaultThresholds maps window name (hourly/daily/weekly) to the
	// default volume threshold for every business unit.
	DefaultThresholds map[string]int `mapstructure:"default_thresholds"`
	// ThresholdOverrides maps business unit → window name → threshold.
	ThresholdOverrides map[string]map[string]int `mapstructure:"threshold_overrides"`

	UrgencyKeywords           []string `mapstructure:"urgency_keywords"`
	MisclassificationKeywords []string `mapstructure:"misclassification_keywords"`
}

// SchedulerConfig controls the periodic detection runs.
type SchedulerConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RunOnStart        bool `mapstructure:"run_on_start"`
	HourlyIntervalMin int  `mapstructure:"hourly_interval_min"`
	DailyIntervalMin  int  `mapstructure:"daily_interval_min"`
	WeeklyIntervalMin int  `mapstructure:"weekly_interval_min"`
}

// KafkaConfig controls the post-ingestion trigger consumer.
// Empty broker list disables the consumer.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	ServiceName  string  `mapstructure:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"` // empty = tracing disabled
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/casepulse/")
	viper.AddConfigPath("$HOME/.casepulse")
	viper.AddConfigPath(".")

	// Defaults
	viper.SetDefault("port", 8080)
	viper.SetDefault("database_driver", "sqlite")
	viper.SetDefault("database_path", "./casepulse.db")
	viper.SetDefault("database_url", "")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("allowed_origins", []string{"*"})
	viper.SetDefault("request_timeout_sec", 30)
	viper.SetDefault("shutdown_timeout_sec", 15)

	viper.SetDefault("detection.spike_factor", 1.5)
	viper.SetDefault("detection.min_baseline_count", 5)
	viper.SetDefault("detection.min_case_count", 1)
	viper.SetDefault("detection.max_sample_cases", 5)
	viper.SetDefault("detection.detector_timeout_sec", 30)
	viper.SetDefault("detection.default_thresholds", map[string]int{
		"hourly": 50,
		"daily":  100,
		"weekly": 500,
	})
	viper.SetDefault("detection.threshold_overrides", map[string]map[string]int{})
	viper.SetDefault("detection.urgency_keywords", []string{
		"urgent", "immediately", "asap", "emergency", "critical",
		"lawsuit", "attorney", "lawyer", "legal action",
		"death", "fatality", "injury", "hospital",
		"escalate", "escalation",
	})
	viper.SetDefault("detection.misclassification_keywords", []string{
		"urgent", "immediately", "asap", "emergency", "critical",
		"lawsuit", "attorney", "lawyer", "legal action",
		"death", "fatality", "injury", "hospital",
		"escalate", "escalation", "complaint", "supervisor",
		"manager", "refund", "unacceptable", "furious",
	})

	viper.SetDefault("scheduler.enabled", true)
	viper.SetDefault("scheduler.run_on_start", false)
	viper.SetDefault("scheduler.hourly_interval_min", 60)
	viper.SetDefault("scheduler.daily_interval_min", 1440)
	viper.SetDefault("scheduler.weekly_interval_min", 10080)

	viper.SetDefault("kafka.brokers", []string{})
	viper.SetDefault("kafka.topic", "case-ingestion")
	viper.SetDefault("kafka.group_id", "casepulse-detection")

	viper.SetDefault("tracing.service_name", "casepulse-backend")
	viper.SetDefault("tracing.otlp_endpoint", "")
	viper.SetDefault("tracing.sampling_rate", 1.0)

	// Environment variables, e.g. CASEPULSE_DETECTION_SPIKE_FACTOR
	viper.SetEnvPrefix("CASEPULSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; using defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Env vars deliver list values as a single comma-separated string
	cfg.AllowedOrigins = splitAll(cfg.AllowedOrigins)
	cfg.Kafka.Brokers = splitAll(cfg.Kafka.Brokers)
	cfg.Detection.UrgencyKeywords = splitAll(cfg.Detection.UrgencyKeywords)
	cfg.Detection.MisclassificationKeywords = splitAll(cfg.Detection.MisclassificationKeywords)

	return &cfg, nil
}

// splitAll expands comma-separated entries inside a string slice.
func splitAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
