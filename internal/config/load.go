package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "HANDOFF"

// ErrValidation is wrapped by every error Load returns for invalid values.
var ErrValidation = errors.New("config validation failed")

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config.yaml in the working directory
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// HANDOFF_PRODUCER_PERIOD maps to producer.period
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags and the rules that span more than one field.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	for _, name := range cfg.Producer.Batch {
		if len(name) > cfg.Task.MaxNameLength {
			return fmt.Errorf("%w: producer.batch name %q is longer than task.max_name_length (%d)",
				ErrValidation, name, cfg.Task.MaxNameLength)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.log_level", "info")
	v.SetDefault("producer.period", "30s")
	v.SetDefault("producer.initial_delay", "0s")
	v.SetDefault("producer.batch", []string{"cleanroom", "washdish", "buyfood"})
	v.SetDefault("task.max_name_length", 9)
	v.SetDefault("admin.enabled", false)
	v.SetDefault("admin.port", 9090)
	v.SetDefault("shutdown.timeout", "10s")
	v.SetDefault("events.history_size", 1024)
}
