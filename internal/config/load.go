package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Built-in development credential pool used when READPULSE_LLM_API_KEYS is
// not set. These are placeholders for local runs against a mock endpoint;
// production deployments must supply real keys.
var defaultAPIKeys = []string{
	"dev-key-0000000000000001",
	"dev-key-0000000000000002",
	"dev-key-0000000000000003",
	"dev-key-0000000000000004",
	"dev-key-0000000000000005",
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("READPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine: env vars and defaults carry the load.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// APIKeyList splits the comma-separated credential pool, dropping empty
// entries.
func (c LLMConfig) APIKeyList() []string {
	var keys []string
	for _, k := range strings.Split(c.APIKeys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_file", "")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.url", "")

	v.SetDefault("llm.api_keys", strings.Join(defaultAPIKeys, ","))
	v.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.max_attempts", 5)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.base_delay", time.Second)
	v.SetDefault("llm.max_delay", 10*time.Second)
	v.SetDefault("llm.inter_call_delay", 300*time.Millisecond)
	v.SetDefault("llm.min_key_spacing", time.Second)
	v.SetDefault("llm.disable_threshold", 3)
	v.SetDefault("llm.reactivate_after", 5*time.Minute)
	v.SetDefault("llm.quota_window", time.Hour)
	v.SetDefault("llm.request_timeout", 30*time.Second)
}
