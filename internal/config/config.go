package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	API      APIConfig
	CheckIn  CheckInConfig
	Chat     ChatConfig
	OpenAI   OpenAIConfig
	Storage  StorageConfig
	Logging  LoggingConfig
	UserName string
}

// APIConfig holds backend gateway configuration
type APIConfig struct {
	BaseURL string
	Timeout time.Duration

	// Declared to match the backend contract; the gateway request path does
	// not consume these (see DESIGN.md).
	MaxRetries int
	RetryDelay time.Duration
}

// CheckInConfig holds daily check-in pacing configuration
type CheckInConfig struct {
	GreetingDelay time.Duration
	QuestionDelay time.Duration
}

// ChatConfig holds community chat polling configuration
type ChatConfig struct {
	PollInterval time.Duration
}

// OpenAIConfig holds the direct LLM analyzer configuration
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// StorageConfig holds the local session store configuration
type StorageConfig struct {
	Path string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load reads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Gateway defaults
	v.SetDefault("api.baseurl", "http://localhost:5000/api")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.maxretries", 3)
	v.SetDefault("api.retrydelay", time.Second)

	// Check-in pacing defaults
	v.SetDefault("checkin.greetingdelay", 1500*time.Millisecond)
	v.SetDefault("checkin.questiondelay", 800*time.Millisecond)

	// Chat defaults
	v.SetDefault("chat.pollinterval", 4*time.Second)

	// OpenAI defaults
	v.SetDefault("openai.model", "gpt-3.5-turbo")

	// Storage defaults
	v.SetDefault("storage.path", "./companion.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("api.baseurl", "COMPANION_API_URL", "API_URL")
	v.BindEnv("api.timeout", "COMPANION_API_TIMEOUT")

	v.BindEnv("chat.pollinterval", "COMPANION_POLL_INTERVAL")

	v.BindEnv("openai.apikey", "OPENAI_API_KEY")
	v.BindEnv("openai.model", "OPENAI_MODEL")

	v.BindEnv("storage.path", "COMPANION_STORE_PATH")

	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.baseurl is required")
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}

	if c.Chat.PollInterval <= 0 {
		return fmt.Errorf("chat.pollinterval must be positive")
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}

	return nil
}
