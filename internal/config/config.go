// Package config provides configuration structures and loading logic for tracecheck.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Flush strategies accepted by JaegerConfig.FlushStrategy.
const (
	StrategyFixed = "fixed"
	StrategyPoll  = "poll"
)

// Config is the immutable snapshot of everything a verification run needs.
// It is loaded once and passed by value to the components that use it.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Service ServiceConfig `mapstructure:"service"`
	Jaeger  JaegerConfig  `mapstructure:"jaeger"`
	History HistoryConfig `mapstructure:"history"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// AppConfig defines process-level settings.
type AppConfig struct {
	LogLevel    string `mapstructure:"log_level"`
	HTTPTimeout string `mapstructure:"http_timeout"`
}

// ServiceConfig locates the order-processing service that receives the stimulus.
type ServiceConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// JaegerConfig defines connection settings for the Jaeger query API and how long
// to wait for spans to become queryable.
type JaegerConfig struct {
	QueryHost       string `mapstructure:"query_host"`
	APIPort         int    `mapstructure:"api_port"`
	ServiceName     string `mapstructure:"service_name"`
	FlushIntervalMs int    `mapstructure:"flush_interval"`
	FlushStrategy   string `mapstructure:"flush_strategy"`
	PollTimeout     string `mapstructure:"poll_timeout"`
	PollInterval    string `mapstructure:"poll_interval"`
}

// HistoryConfig points at the SQLite file that keeps past run results.
type HistoryConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// envBindings maps config keys onto the environment variable names the demo
// environment already exports.
var envBindings = map[string]string{
	"app.log_level":         "LOG_LEVEL",
	"app.http_timeout":      "HTTP_TIMEOUT",
	"service.host":          "EXAMPLE_HOST",
	"service.port":          "EXAMPLE_PORT",
	"jaeger.query_host":     "JAEGER_QUERY_HOST",
	"jaeger.api_port":       "JAEGER_API_PORT",
	"jaeger.service_name":   "SERVICE_NAME",
	"jaeger.flush_interval": "JAEGER_FLUSH_INTERVAL",
	"jaeger.flush_strategy": "FLUSH_STRATEGY",
	"jaeger.poll_timeout":   "JAEGER_POLL_TIMEOUT",
	"jaeger.poll_interval":  "JAEGER_POLL_INTERVAL",
	"history.db_path":       "HISTORY_DB_PATH",
	"metrics.textfile":      "METRICS_TEXTFILE",
}

// ServiceURL returns the base URL of the order-processing service.
func (c *ServiceConfig) ServiceURL() string {
	return "http://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// QueryURL returns the base URL of the Jaeger query API.
func (c *JaegerConfig) QueryURL() string {
	return "http://" + net.JoinHostPort(c.QueryHost, strconv.Itoa(c.APIPort))
}

// FlushInterval returns the fixed wait applied before querying traces.
func (c *JaegerConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMs) * time.Millisecond
}

// GetPollTimeoutDuration parses the poll timeout, falling back to 10s.
func (c *JaegerConfig) GetPollTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.PollTimeout)
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

// GetPollIntervalDuration parses the initial poll interval, falling back to 200ms.
func (c *JaegerConfig) GetPollIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.PollInterval)
	if d <= 0 {
		return 200 * time.Millisecond
	}
	return d
}

// Strategy returns the normalised flush strategy name.
func (c *JaegerConfig) Strategy() string {
	return strings.ToLower(strings.TrimSpace(c.FlushStrategy))
}

// GetHTTPTimeoutDuration returns the HTTP client timeout. Zero means no timeout
// beyond the client default.
func (c *AppConfig) GetHTTPTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.HTTPTimeout)
	if d < 0 {
		return 0
	}
	return d
}

// SlogLevel maps the configured log level onto a slog.Level.
func (c *AppConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate reports settings that would make a run meaningless.
func (c *Config) Validate() error {
	if c.Service.Host == "" {
		return fmt.Errorf("service host must not be empty")
	}
	if c.Service.Port <= 0 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid service port: %d", c.Service.Port)
	}
	if c.Jaeger.QueryHost == "" {
		return fmt.Errorf("jaeger query host must not be empty")
	}
	if c.Jaeger.APIPort <= 0 || c.Jaeger.APIPort > 65535 {
		return fmt.Errorf("invalid jaeger api port: %d", c.Jaeger.APIPort)
	}
	if c.Jaeger.ServiceName == "" {
		return fmt.Errorf("service name must not be empty")
	}
	if c.Jaeger.FlushIntervalMs < 0 {
		return fmt.Errorf("flush interval must not be negative: %d", c.Jaeger.FlushIntervalMs)
	}
	switch c.Jaeger.Strategy() {
	case StrategyFixed, StrategyPoll:
	default:
		return fmt.Errorf("unknown flush strategy %q, valid strategies: %s, %s", c.Jaeger.FlushStrategy, StrategyFixed, StrategyPoll)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.http_timeout", "0s")
	v.SetDefault("service.host", "localhost")
	v.SetDefault("service.port", 8080)
	v.SetDefault("jaeger.query_host", "localhost")
	v.SetDefault("jaeger.api_port", 16686)
	v.SetDefault("jaeger.service_name", "order-processing")
	v.SetDefault("jaeger.flush_interval", 1000)
	v.SetDefault("jaeger.flush_strategy", StrategyFixed)
	v.SetDefault("jaeger.poll_timeout", "10s")
	v.SetDefault("jaeger.poll_interval", "200ms")
	v.SetDefault("history.db_path", "")
	v.SetDefault("metrics.textfile", "")
}

// Load loads configuration from config.yaml or environment variables
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/tracecheck")

	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
