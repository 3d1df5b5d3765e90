package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	apperrors "github.com/edgard/botconsole/internal/errors"
)

// EnvPrefix is prepended to every environment override, e.g. CONSOLE_BACKEND_URL.
const EnvPrefix = "CONSOLE"

// Default values for configuration
const (
	DefaultLogLevel = "info"

	DefaultBackendURL     = "http://localhost:8000"
	DefaultBackendTimeout = 30 * time.Second

	DefaultHTTPAddr        = "127.0.0.1:8080"
	DefaultSessionTTL      = 12 * time.Hour
	DefaultShutdownTimeout = 10 * time.Second

	DefaultConcurrency   = "parallel"
	DefaultMethod        = "getMe"
	DefaultParams        = "{}"
	DefaultActivityLimit = 10

	DefaultDBPath            = "console.db"
	DefaultActivityRetention = 30 * 24 * time.Hour

	DefaultGeminiModel       = "gemini-2.0-flash"
	DefaultGeminiTemperature = 0.2
	DefaultGeminiTimeout     = 30 * time.Second
)

// Scheduled task names and their default cron schedules (with seconds).
const (
	TaskSessionSweep   = "session_sweep"
	TaskActivityPrune  = "activity_prune"
	TaskSQLMaintenance = "sql_maintenance"
)

var defaultTasks = map[string]string{
	TaskSessionSweep:   "0 * * * * *",
	TaskActivityPrune:  "0 0 3 * * *",
	TaskSQLMaintenance: "0 0 4 * * 0",
}

// LoadConfig reads configuration in this order, later sources winning:
//  1. built-in defaults
//  2. the YAML file at path, if it exists
//  3. CONSOLE_* environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, apperrors.NewConfigError("failed to read config file", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewConfigError("failed to stat config file", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to parse config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the struct tags of every section.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperrors.NewConfigError(fmt.Sprintf("invalid value for %s", verrs[0].Namespace()), err)
		}
		return apperrors.NewConfigError("invalid configuration", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", false)

	v.SetDefault("backend.url", DefaultBackendURL)
	v.SetDefault("backend.timeout", DefaultBackendTimeout)

	v.SetDefault("http.addr", DefaultHTTPAddr)
	v.SetDefault("http.session_ttl", DefaultSessionTTL)
	v.SetDefault("http.shutdown_timeout", DefaultShutdownTimeout)

	v.SetDefault("console.concurrency", DefaultConcurrency)
	v.SetDefault("console.default_method", DefaultMethod)
	v.SetDefault("console.default_params", DefaultParams)
	v.SetDefault("console.activity_limit", DefaultActivityLimit)

	v.SetDefault("database.path", DefaultDBPath)
	v.SetDefault("database.activity_retention", DefaultActivityRetention)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", DefaultGeminiModel)
	v.SetDefault("gemini.temperature", DefaultGeminiTemperature)
	v.SetDefault("gemini.timeout", DefaultGeminiTimeout)

	for name, schedule := range defaultTasks {
		v.SetDefault("scheduler.tasks."+name+".enabled", true)
		v.SetDefault("scheduler.tasks."+name+".schedule", schedule)
	}
}
