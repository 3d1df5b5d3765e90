// Package config loads the console configuration from defaults, an optional
// YAML file and CONSOLE_* environment variables, and validates the result.
package config

import "time"

// Config is the complete process configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"log"`
	Backend   BackendConfig   `mapstructure:"backend"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Console   ConsoleConfig   `mapstructure:"console"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// BackendConfig points at the proxy that talks to the Telegram Bot API.
// The URL is read once at startup.
type BackendConfig struct {
	URL     string        `mapstructure:"url"     validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"min=1s,max=10m"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"             validate:"required,hostname_port"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"      validate:"min=1m"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s,max=5m"`
}

type ConsoleConfig struct {
	Concurrency   string `mapstructure:"concurrency"    validate:"required,oneof=parallel exclusive"`
	DefaultMethod string `mapstructure:"default_method" validate:"required"`
	DefaultParams string `mapstructure:"default_params" validate:"required,json"`
	ActivityLimit int    `mapstructure:"activity_limit" validate:"min=0,max=100"`
}

type DatabaseConfig struct {
	Path              string        `mapstructure:"path"               validate:"required"`
	ActivityRetention time.Duration `mapstructure:"activity_retention" validate:"min=1h"`
}

// GeminiConfig enables params drafting. An empty APIKey disables it.
type GeminiConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"       validate:"required_with=APIKey"`
	Temperature float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	Timeout     time.Duration `mapstructure:"timeout"     validate:"min=1s,max=10m"`
}

// Enabled reports whether drafting is configured.
func (g GeminiConfig) Enabled() bool {
	return g.APIKey != ""
}

type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}
