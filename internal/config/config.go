// Package config loads the nested TOML configuration for the acquisition
// pipeline, following the default->file->env override chain established by
// the rest of the stack.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config is the top-level application configuration.
type Config struct {
	Environment string         `toml:"environment" validate:"oneof=development production"`
	Logging     LoggingConfig  `toml:"logging" validate:"required"`
	Storage     StorageConfig  `toml:"storage" validate:"required"`
	Fetcher     FetcherConfig  `toml:"fetcher" validate:"required"`
	Extractor   ExtractorConfig `toml:"extractor" validate:"required"`
	Cache       CacheConfig    `toml:"cache" validate:"required"`
	Orchestrator OrchestratorConfig `toml:"orchestrator" validate:"required"`
	ReverseCrawler ReverseCrawlerConfig `toml:"reverse_crawler" validate:"required"`
	Strategy    StrategyConfig `toml:"strategy" validate:"required"`
	ResourceMonitor ResourceMonitorConfig `toml:"resource_monitor" validate:"required"`
}

// LoggingConfig controls the arbor-backed structured logger.
type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Format     string   `toml:"format" validate:"oneof=json text"`
	Output     []string `toml:"output" validate:"required,dive,oneof=stdout file"` // "stdout", "file"
	TimeFormat string   `toml:"time_format" validate:"required"`
}

// StorageConfig configures the badgerhold-backed persistent store.
type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig is the Badger database location and lifecycle policy.
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// FetcherConfig parameterizes the single-URL GET contract from §4.1.
type FetcherConfig struct {
	UserAgent       string        `toml:"user_agent" validate:"required"`
	RequestTimeout  time.Duration `toml:"request_timeout" validate:"gt=0"`
	MaxRetries      int           `toml:"max_retries" validate:"gte=0"`
	BaseBackoff     time.Duration `toml:"base_backoff" validate:"gte=0"`
	MaxBackoff      time.Duration `toml:"max_backoff" validate:"gte=0"`
	JitterFraction  float64       `toml:"jitter_fraction" validate:"gte=0,lte=1"` // ±25% default
	MaxRedirects    int           `toml:"max_redirects" validate:"gte=0"`
	MaxBodyBytes    int64         `toml:"max_body_bytes" validate:"gt=0"`
	PerHostCap      int           `toml:"per_host_cap" validate:"gte=1"`
	PerHostDelay    time.Duration `toml:"per_host_delay" validate:"gte=0"`
	CancelGrace     time.Duration `toml:"cancel_grace" validate:"gte=0"`
}

// ExtractorConfig locates operator rule definitions and bounds CPU work.
type ExtractorConfig struct {
	RulesDir     string        `toml:"rules_dir" validate:"required"`
	CPUBudget    time.Duration `toml:"cpu_budget" validate:"gt=0"`
	MaxHeadings  int           `toml:"max_headings_per_level" validate:"gte=1"`
}

// CacheConfig configures the two-tier (in-process + Redis) cache from §4.8.
type CacheConfig struct {
	Memory MemoryCacheConfig `toml:"memory" validate:"required"`
	Redis  RedisCacheConfig  `toml:"redis" validate:"required"`
	TTL    CacheTTLConfig    `toml:"ttl" validate:"required"`
}

// MemoryCacheConfig sizes the in-process L1 tier.
type MemoryCacheConfig struct {
	MaxEntries      int           `toml:"max_entries" validate:"gt=0"`
	SweepInterval   time.Duration `toml:"sweep_interval" validate:"gt=0"`
}

// RedisCacheConfig addresses the shared L2 tier.
type RedisCacheConfig struct {
	Addr     string `toml:"addr" validate:"required_if=Enabled true"`
	Password string `toml:"password"`
	DB       int    `toml:"db" validate:"gte=0"`
	Enabled  bool   `toml:"enabled"`
}

// CacheTTLConfig holds the normative TTL table from §6.
type CacheTTLConfig struct {
	Default        time.Duration `toml:"default" validate:"gt=0"`
	FoundData      time.Duration `toml:"found_data" validate:"gt=0"`
	NotFound       time.Duration `toml:"not_found" validate:"gt=0"`
	ReferenceDNOs  time.Duration `toml:"reference_dnos" validate:"gt=0"`
	DashboardStats time.Duration `toml:"dashboard_stats" validate:"gt=0"`
	SessionTokens  time.Duration `toml:"session_tokens" validate:"gt=0"`
}

// OrchestratorConfig bounds the queue/worker pool and session sweeps.
type OrchestratorConfig struct {
	MaxWorkers       int           `toml:"max_workers" validate:"gte=1"`
	CommandChanSize  int           `toml:"command_chan_size" validate:"gt=0"`
	ReportChanSize   int           `toml:"report_chan_size" validate:"gt=0"`
	SweepSchedule    string        `toml:"sweep_schedule"` // cron expression, empty disables the sweep
	ArtifactMaxAge   time.Duration `toml:"artifact_max_age" validate:"gte=0"`
	PerJobWallClock  time.Duration `toml:"per_job_wall_clock" validate:"gte=0"` // 0 = none
	CancelGrace      time.Duration `toml:"cancel_grace" validate:"gte=0"`
}

// ReverseCrawlerConfig holds the cut-offs from §4.4.
type ReverseCrawlerConfig struct {
	MaxReverseDepth            int           `toml:"max_reverse_depth" validate:"gte=1"`
	MaxURLsPerPattern          int           `toml:"max_urls_per_pattern" validate:"gte=1"`
	RequestDelay               time.Duration `toml:"request_delay" validate:"gte=0"`
	PatternConfidenceThreshold float64       `toml:"pattern_confidence_threshold" validate:"gte=0,lte=1"`
	AggressiveArchiveDiscovery bool          `toml:"aggressive_archive_discovery"`
}

// StrategyConfig parameterizes the Strategy Engine's plan assembly.
type StrategyConfig struct {
	DirectPathConfidenceFloor float64       `toml:"direct_path_confidence_floor" validate:"gte=0,lte=1"`
	AttemptTimeBudget         time.Duration `toml:"attempt_time_budget" validate:"gt=0"`
	AttemptRequestBudget      int           `toml:"attempt_request_budget" validate:"gte=1"`
	ReverseCrawlTimeBudget    time.Duration `toml:"reverse_crawl_time_budget" validate:"gt=0"`
	ReverseCrawlRequestBudget int           `toml:"reverse_crawl_request_budget" validate:"gte=1"`
}

// ResourceMonitorConfig bounds worker admission per §4.5. MaxWorkers and
// PerHostCap mirror OrchestratorConfig.MaxWorkers and FetcherConfig.PerHostCap
// (the Resource Monitor is the component that actually enforces the caps
// those configs only declare), kept as its own copy since the Monitor is
// independently configurable per the component table in §2.
type ResourceMonitorConfig struct {
	MaxWorkers     int   `toml:"max_workers" validate:"gte=1"`
	PerHostCap     int   `toml:"per_host_cap" validate:"gte=1"`
	MemCeilingMB   int64 `toml:"mem_ceiling_mb" validate:"gte=0"` // 0 = no ceiling
}

// NewDefaultConfig returns a Config with the defaults named throughout §4-6.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05.000",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/dno-gatherer",
			},
		},
		Fetcher: FetcherConfig{
			UserAgent:      "DNO-Data-Gatherer/1.0",
			RequestTimeout: 30 * time.Second,
			MaxRetries:     3,
			BaseBackoff:    500 * time.Millisecond,
			MaxBackoff:     20 * time.Second,
			JitterFraction: 0.25,
			MaxRedirects:   5,
			MaxBodyBytes:   20 * 1024 * 1024,
			PerHostCap:     2,
			PerHostDelay:   1 * time.Second,
			CancelGrace:    2 * time.Second,
		},
		Extractor: ExtractorConfig{
			RulesDir:    "./rules",
			CPUBudget:   10 * time.Second,
			MaxHeadings: 5,
		},
		Cache: CacheConfig{
			Memory: MemoryCacheConfig{
				MaxEntries:    10000,
				SweepInterval: 30 * time.Second,
			},
			Redis: RedisCacheConfig{
				Addr:    "localhost:6379",
				DB:      0,
				Enabled: true,
			},
			TTL: CacheTTLConfig{
				Default:        3600 * time.Second,
				FoundData:      86400 * time.Second,
				NotFound:       3600 * time.Second,
				ReferenceDNOs:  14400 * time.Second,
				DashboardStats: 900 * time.Second,
				SessionTokens:  3600 * time.Second,
			},
		},
		Orchestrator: OrchestratorConfig{
			MaxWorkers:      10,
			CommandChanSize: 64,
			ReportChanSize:  256,
			SweepSchedule:   "0 */10 * * * *",
			ArtifactMaxAge:  90 * 24 * time.Hour,
			CancelGrace:     2 * time.Second,
		},
		ReverseCrawler: ReverseCrawlerConfig{
			MaxReverseDepth:            5,
			MaxURLsPerPattern:          100,
			RequestDelay:               1 * time.Second,
			PatternConfidenceThreshold: 0.7,
			AggressiveArchiveDiscovery: false,
		},
		Strategy: StrategyConfig{
			DirectPathConfidenceFloor: 0.7,
			AttemptTimeBudget:         30 * time.Second,
			AttemptRequestBudget:      5,
			ReverseCrawlTimeBudget:    3 * time.Minute,
			ReverseCrawlRequestBudget: 100,
		},
		ResourceMonitor: ResourceMonitorConfig{
			MaxWorkers:   10,
			PerHostCap:   2,
			MemCeilingMB: 0,
		},
	}
}

// LoadFromFiles merges defaults with each TOML file in order, later files
// overriding earlier ones, then applies environment overrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	cfg := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the merged configuration against the struct tags above
// using go-playground/validator, catching a malformed or incomplete TOML
// file before it reaches the rest of the stack.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Orchestrator.SweepSchedule == "" {
		return nil
	}
	return ValidateSweepSchedule(c.Orchestrator.SweepSchedule)
}

func applyEnvOverrides(cfg *Config) {
	if env := os.Getenv("DNOG_ENV"); env != "" {
		cfg.Environment = env
	}
	if level := os.Getenv("DNOG_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if path := os.Getenv("DNOG_BADGER_PATH"); path != "" {
		cfg.Storage.Badger.Path = path
	}
	if addr := os.Getenv("DNOG_REDIS_ADDR"); addr != "" {
		cfg.Cache.Redis.Addr = addr
	}
	if pw := os.Getenv("DNOG_REDIS_PASSWORD"); pw != "" {
		cfg.Cache.Redis.Password = pw
	}
	if workers := os.Getenv("DNOG_MAX_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil {
			cfg.Orchestrator.MaxWorkers = w
		}
	}
	if ua := os.Getenv("DNOG_FETCHER_USER_AGENT"); ua != "" {
		cfg.Fetcher.UserAgent = ua
	}
}

// IsProduction reports whether the environment is set to production.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ValidateSweepSchedule checks that SweepSchedule parses as a six-field cron
// expression (seconds field included, matching the parser that
// cron.New(cron.WithSeconds()) uses in the orchestrator).
func ValidateSweepSchedule(schedule string) error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule: %w", err)
	}
	return nil
}
