package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the settings shared by the arbor commands. Values come from, in
// increasing priority: defaults, arbor.yaml, ARBOR_* environment variables and flags.
type Config struct {
	LogLevel    string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat   string `mapstructure:"log_format" validate:"oneof=text json"`
	MaxTicks    uint64 `mapstructure:"max_ticks"`
	Agents      int    `mapstructure:"agents" validate:"gte=1,lte=1000"`
	Interval    string `mapstructure:"interval" validate:"omitempty"`
	RedisAddr   string `mapstructure:"redis_addr" validate:"omitempty,hostname_port"`
	MetricsAddr string `mapstructure:"metrics_addr" validate:"required,hostname_port"`
	Debug       bool   `mapstructure:"debug"`
}

var defaults = map[string]any{
	"log_level":    "warn",
	"log_format":   "text",
	"max_ticks":    10000,
	"agents":       1,
	"interval":     "",
	"redis_addr":   "",
	"metrics_addr": "127.0.0.1:2112",
	"debug":        false,
}

// LoadConfig reads the configuration. path may name a config file explicitly; otherwise
// arbor.yaml is looked up in the working directory and is optional. Flags that were set
// on the command line override everything else; flag names use dashes (max-ticks).
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix("ARBOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("arbor")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if _, known := defaults[key]; known && bindErr == nil {
				bindErr = v.BindPFlag(key, f)
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Level converts LogLevel for slog.
func (c *Config) Level() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn
	}
	return l
}

// LogOptions returns the logger settings for logs written to w.
func (c *Config) LogOptions(w io.Writer) logging.Options {
	return logging.Options{Level: c.Level(), Format: logging.Format(c.LogFormat), Writer: w}
}
