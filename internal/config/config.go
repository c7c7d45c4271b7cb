// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Oracle  OracleConfig  `mapstructure:"oracle" yaml:"oracle"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	Report  ReportConfig  `mapstructure:"report" yaml:"report"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	ViewportWidth     int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight    int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	NavigationRetries int           `mapstructure:"navigation_retries" yaml:"navigation_retries"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	ScreenshotDir     string        `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
	// ElementSampleSize caps how many elements per kind land in an observation.
	ElementSampleSize int `mapstructure:"element_sample_size" yaml:"element_sample_size"`
}

// OracleConfig defines the connection and retry policy for the inference
// service.
type OracleConfig struct {
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`

	// Transient errors (rate limit, service unavailable) are retried with a
	// linear backoff of attempt*TransientBaseDelay.
	TransientMaxAttempts int           `mapstructure:"transient_max_attempts" yaml:"transient_max_attempts"`
	TransientBaseDelay   time.Duration `mapstructure:"transient_base_delay" yaml:"transient_base_delay"`
	// Quota exhaustion gets a short bounded retry budget before propagating
	// as fatal.
	FatalMaxAttempts int           `mapstructure:"fatal_max_attempts" yaml:"fatal_max_attempts"`
	FatalDelay       time.Duration `mapstructure:"fatal_delay" yaml:"fatal_delay"`
	// Everything else gets a brief fixed retry.
	GenericMaxAttempts int           `mapstructure:"generic_max_attempts" yaml:"generic_max_attempts"`
	GenericDelay       time.Duration `mapstructure:"generic_delay" yaml:"generic_delay"`

	// RequestsPerMinute throttles outbound calls regardless of retry class.
	RequestsPerMinute float64 `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// SessionConfig tunes the control loop and its termination policy.
type SessionConfig struct {
	MaxIterations        int           `mapstructure:"max_iterations" yaml:"max_iterations"`
	MaxDuration          time.Duration `mapstructure:"max_duration" yaml:"max_duration"`
	StagnationThreshold  int           `mapstructure:"stagnation_threshold" yaml:"stagnation_threshold"`
	FailureRateThreshold float64       `mapstructure:"failure_rate_threshold" yaml:"failure_rate_threshold"`
	FailureMinSamples    int           `mapstructure:"failure_min_samples" yaml:"failure_min_samples"`
	// ContextWindow is the number of most recent turns transmitted per
	// oracle call, bounding payload size regardless of session length.
	ContextWindow int `mapstructure:"context_window" yaml:"context_window"`
	// DefaultWait is the pause applied when the oracle asks to wait without
	// naming a duration.
	DefaultWait time.Duration `mapstructure:"default_wait" yaml:"default_wait"`
}

// ReportConfig controls where the final report lands.
type ReportConfig struct {
	Output string `mapstructure:"output" yaml:"output"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "webpilot")
	v.SetDefault("logger.log_file", "webpilot.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 720)
	v.SetDefault("browser.navigation_timeout", "20s")
	v.SetDefault("browser.navigation_retries", 3)
	v.SetDefault("browser.post_load_wait", "2s")
	v.SetDefault("browser.screenshot_dir", "test_screenshots")
	v.SetDefault("browser.element_sample_size", 5)

	// -- Oracle --
	v.SetDefault("oracle.model", "gemini-2.5-flash")
	v.SetDefault("oracle.api_timeout", "90s")
	v.SetDefault("oracle.temperature", 0.2)
	v.SetDefault("oracle.max_tokens", 4096)
	v.SetDefault("oracle.transient_max_attempts", 3)
	v.SetDefault("oracle.transient_base_delay", "3s")
	v.SetDefault("oracle.fatal_max_attempts", 2)
	v.SetDefault("oracle.fatal_delay", "5s")
	v.SetDefault("oracle.generic_max_attempts", 2)
	v.SetDefault("oracle.generic_delay", "1s")
	v.SetDefault("oracle.requests_per_minute", 30.0)

	// -- Session --
	v.SetDefault("session.max_iterations", 10)
	v.SetDefault("session.max_duration", "10m")
	v.SetDefault("session.stagnation_threshold", 3)
	v.SetDefault("session.failure_rate_threshold", 0.6)
	v.SetDefault("session.failure_min_samples", 4)
	v.SetDefault("session.context_window", 3)
	v.SetDefault("session.default_wait", "2s")

	// -- Report --
	v.SetDefault("report.output", "")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind the env var for the API key so it never has to live in a file.
	v.BindEnv("oracle.api_key", "GEMINI_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Session.MaxIterations <= 0 {
		return fmt.Errorf("session.max_iterations must be a positive integer")
	}
	if c.Session.MaxDuration <= 0 {
		return fmt.Errorf("session.max_duration must be a positive duration")
	}
	if c.Session.StagnationThreshold <= 0 {
		return fmt.Errorf("session.stagnation_threshold must be a positive integer")
	}
	if c.Session.FailureRateThreshold <= 0 || c.Session.FailureRateThreshold > 1.0 {
		return fmt.Errorf("session.failure_rate_threshold must be in (0, 1]")
	}
	if c.Session.ContextWindow <= 0 {
		return fmt.Errorf("session.context_window must be a positive integer")
	}
	if c.Browser.NavigationRetries <= 0 {
		return fmt.Errorf("browser.navigation_retries must be a positive integer")
	}
	if c.Oracle.TransientMaxAttempts <= 0 {
		return fmt.Errorf("oracle.transient_max_attempts must be a positive integer")
	}
	return nil
}
