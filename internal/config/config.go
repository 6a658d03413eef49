package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFile         string        `mapstructure:"log_file"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
// Persistence is optional: with an empty URL the server runs without the
// session history endpoints writing anywhere.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// LLMConfig contains the remote text-generation settings: the credential
// pool, the model, and the tunables of the rotation and retry machinery.
type LLMConfig struct {
	// APIKeys is the comma-separated credential pool. At least one key is
	// required.
	APIKeys string `mapstructure:"api_keys" validate:"required"`

	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	Model   string `mapstructure:"model" validate:"required"`

	MaxAttempts      int           `mapstructure:"max_attempts" validate:"gt=0"`
	MaxRetries       int           `mapstructure:"max_retries" validate:"gte=0"`
	BaseDelay        time.Duration `mapstructure:"base_delay" validate:"gt=0"`
	MaxDelay         time.Duration `mapstructure:"max_delay" validate:"gt=0"`
	InterCallDelay   time.Duration `mapstructure:"inter_call_delay" validate:"gte=0"`
	MinKeySpacing    time.Duration `mapstructure:"min_key_spacing" validate:"gte=0"`
	DisableThreshold int           `mapstructure:"disable_threshold" validate:"gt=0"`
	ReactivateAfter  time.Duration `mapstructure:"reactivate_after" validate:"gt=0"`
	QuotaWindow      time.Duration `mapstructure:"quota_window" validate:"gt=0"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
}
