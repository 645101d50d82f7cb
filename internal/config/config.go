package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Producer ProducerConfig `mapstructure:"producer" validate:"required"`
	Task     TaskConfig     `mapstructure:"task" validate:"required"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Shutdown ShutdownConfig `mapstructure:"shutdown" validate:"required"`
	Events   EventsConfig   `mapstructure:"events" validate:"required"`
}

// ServerConfig contains process-wide settings.
type ServerConfig struct {
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// ProducerConfig controls what the producer pushes and how often.
type ProducerConfig struct {
	// Period is the sleep between producer cycles
	Period time.Duration `mapstructure:"period" validate:"gt=0s"`

	// InitialDelay postpones the first cycle after startup
	InitialDelay time.Duration `mapstructure:"initial_delay" validate:"gte=0s"`

	// Batch lists the task names produced every cycle, in push order
	Batch []string `mapstructure:"batch" validate:"required,min=1,dive,required"`
}

// TaskConfig bounds the tasks themselves.
type TaskConfig struct {
	MaxNameLength int `mapstructure:"max_name_length" validate:"required,gt=0,lte=255"`
}

// AdminConfig contains settings for the optional admin HTTP server.
type AdminConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port" validate:"gt=0,lt=65536"`
}

// ShutdownConfig bounds how long a graceful shutdown may take.
type ShutdownConfig struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0s"`
}

// EventsConfig sizes the in-memory processed task history.
type EventsConfig struct {
	HistorySize int `mapstructure:"history_size" validate:"gt=0"`
}
