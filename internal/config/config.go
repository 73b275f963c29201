package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the optional YAML overlay applied between defaults and env vars
const ConfigFileEnv = "STRATEGY_CONFIG_FILE"

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `json:"server" yaml:"server"`
	AI      AIConfig      `json:"ai" yaml:"ai"`
	Storage StorageConfig `json:"storage" yaml:"storage"`
	Redis   RedisConfig   `json:"redis" yaml:"redis"`
	Session SessionConfig `json:"session" yaml:"session"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port              int      `json:"port" yaml:"port"`
	Host              string   `json:"host" yaml:"host"`
	ReadTimeout       int      `json:"read_timeout_seconds" yaml:"read_timeout_seconds"`
	WriteTimeout      int      `json:"write_timeout_seconds" yaml:"write_timeout_seconds"`
	GenerationTimeout int      `json:"generation_timeout_seconds" yaml:"generation_timeout_seconds"`
	AllowedOrigins    []string `json:"allowed_origins" yaml:"allowed_origins"`
}

// AIConfig configures the chat-completions transport
type AIConfig struct {
	APIKey         string  `json:"-" yaml:"-"` // env only, never serialized
	BaseURL        string  `json:"base_url" yaml:"base_url"`
	Model          string  `json:"model" yaml:"model"`
	RequestTimeout int     `json:"request_timeout_seconds" yaml:"request_timeout_seconds"`
	MaxTokens      int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature    float64 `json:"temperature" yaml:"temperature"`
	// ProxyHoldsKey is set when BaseURL points at a proxy that injects the credential itself
	ProxyHoldsKey bool `json:"proxy_holds_key" yaml:"proxy_holds_key"`
}

// KeyConfigured reports whether model calls can be authenticated
func (c AIConfig) KeyConfigured() bool {
	return c.APIKey != "" || c.ProxyHoldsKey
}

// Timeout returns the request timeout as a duration
func (c AIConfig) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// StorageConfig selects the strategy repository database
type StorageConfig struct {
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"-" yaml:"dsn"`
}

// RedisConfig configures the redis session backend
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"-" yaml:"-"`
	DB       int    `json:"db" yaml:"db"`
}

// SessionConfig configures the wizard view-state store
type SessionConfig struct {
	Backend    string `json:"backend" yaml:"backend"`
	TTLMinutes int    `json:"ttl_minutes" yaml:"ttl_minutes"`
}

// TTL returns the session lifetime as a duration
func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              8080,
			Host:              "localhost",
			ReadTimeout:       30,
			WriteTimeout:      120,
			GenerationTimeout: 90,
			AllowedOrigins:    []string{"*"},
		},
		AI: AIConfig{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o-mini",
			RequestTimeout: 60,
			MaxTokens:      4096,
			Temperature:    0.7,
		},
		Storage: StorageConfig{
			Driver: "sqlite3",
			DSN:    "file:strategies.db?_foreign_keys=on",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Session: SessionConfig{
			Backend:    "memory",
			TTLMinutes: 24 * 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads configuration from defaults, .env, the optional YAML overlay and env vars
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Don't fail if .env doesn't exist
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := DefaultConfig()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := config.ApplyFile(path); err != nil {
			return nil, err
		}
	}

	loadFromEnv(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// ApplyFile overlays the YAML file at path onto the configuration.
// Keys missing from the file keep their current values.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func loadFromEnv(config *Config) {
	loadServerConfig(config)
	loadAIConfig(config)
	loadStorageConfig(config)
	loadRedisConfig(config)
	loadSessionConfig(config)
	loadLoggingConfig(config)
}

func loadServerConfig(config *Config) {
	setInt(&config.Server.Port, "STRATEGY_PORT", "PORT")
	setString(&config.Server.Host, "STRATEGY_HOST")
	setInt(&config.Server.ReadTimeout, "STRATEGY_READ_TIMEOUT_SECONDS")
	setInt(&config.Server.WriteTimeout, "STRATEGY_WRITE_TIMEOUT_SECONDS")
	setInt(&config.Server.GenerationTimeout, "STRATEGY_GENERATION_TIMEOUT_SECONDS")

	if origins := os.Getenv("STRATEGY_ALLOWED_ORIGINS"); origins != "" {
		config.Server.AllowedOrigins = splitList(origins)
	}
}

func loadAIConfig(config *Config) {
	// AI_API_KEY wins over the provider-specific name
	setString(&config.AI.APIKey, "AI_API_KEY", "OPENAI_API_KEY")
	setString(&config.AI.BaseURL, "AI_BASE_URL")
	setString(&config.AI.Model, "AI_MODEL")
	setInt(&config.AI.RequestTimeout, "AI_REQUEST_TIMEOUT_SECONDS")
	setInt(&config.AI.MaxTokens, "AI_MAX_TOKENS")

	if temperature := os.Getenv("AI_TEMPERATURE"); temperature != "" {
		if temp, err := strconv.ParseFloat(temperature, 64); err == nil {
			config.AI.Temperature = temp
		}
	}
	if proxy := os.Getenv("AI_PROXY_HOLDS_KEY"); proxy != "" {
		if p, err := strconv.ParseBool(proxy); err == nil {
			config.AI.ProxyHoldsKey = p
		}
	}
}

func loadStorageConfig(config *Config) {
	setString(&config.Storage.Driver, "STRATEGY_DB_DRIVER")
	setString(&config.Storage.DSN, "STRATEGY_DB_DSN", "DATABASE_URL")
}

func loadRedisConfig(config *Config) {
	setString(&config.Redis.Addr, "REDIS_ADDR")
	setString(&config.Redis.Password, "REDIS_PASSWORD")
	setInt(&config.Redis.DB, "REDIS_DB")
}

func loadSessionConfig(config *Config) {
	setString(&config.Session.Backend, "SESSION_BACKEND")
	setInt(&config.Session.TTLMinutes, "SESSION_TTL_MINUTES")
}

func loadLoggingConfig(config *Config) {
	setString(&config.Logging.Level, "LOG_LEVEL")
	setString(&config.Logging.Format, "LOG_FORMAT")
}

// setString assigns the first non-empty variable among keys
func setString(dst *string, keys ...string) {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			*dst = v
			return
		}
	}
}

// setInt assigns the first parseable variable among keys; malformed values are ignored
func setInt(dst *int, keys ...string) {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
				return
			}
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.GenerationTimeout <= 0 {
		return fmt.Errorf("generation timeout must be positive")
	}

	if c.AI.BaseURL == "" {
		return fmt.Errorf("AI base URL cannot be empty")
	}
	if c.AI.Model == "" {
		return fmt.Errorf("AI model cannot be empty")
	}
	if c.AI.RequestTimeout <= 0 {
		return fmt.Errorf("AI request timeout must be positive")
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("AI temperature must be between 0 and 2")
	}

	switch c.Storage.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.Storage.Driver)
	}
	if c.Storage.DSN == "" {
		return fmt.Errorf("storage DSN cannot be empty")
	}

	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address cannot be empty when the redis session backend is selected")
		}
	default:
		return fmt.Errorf("unsupported session backend: %s", c.Session.Backend)
	}
	if c.Session.TTLMinutes <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported log format: %s", c.Logging.Format)
	}

	return nil
}
