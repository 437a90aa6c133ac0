package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the Planwise service
type Config struct {
	General GeneralConfig `mapstructure:"general"`
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Pricing PricingConfig `mapstructure:"pricing"`
	Chat    ChatConfig    `mapstructure:"chat"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Env     string `mapstructure:"env"`      // dev, prod
	LogMode string `mapstructure:"log_mode"` // development, production
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	SecureCookies  bool          `mapstructure:"secure_cookies"`
}

func (s ServerConfig) Validate() error {
	if strings.TrimSpace(s.JWTSecret) == "" {
		return fmt.Errorf("server.jwt_secret required")
	}
	if s.TokenTTL <= 0 {
		return fmt.Errorf("server.token_ttl must be > 0")
	}
	return nil
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.Port) == "" {
		return fmt.Errorf("storage.postgres.port required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// RedisConfig contains Redis connection settings. Redis is optional: it backs
// the pricing cache and the per-conversation turn lock when configured.
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether a redis host was configured.
func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.Host) != "" }

func (r RedisConfig) Validate() error {
	if !r.Enabled() {
		return nil
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required when host is set")
	}
	return nil
}

// LLMConfig configures the chat completion provider
type LLMConfig struct {
	Driver      string        `mapstructure:"driver"` // openrouter, eino
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Referer     string        `mapstructure:"referer"`   // default HTTP-Referer sent to OpenRouter
	AppTitle    string        `mapstructure:"app_title"` // X-Title sent to OpenRouter
}

func (l LLMConfig) Validate() error {
	switch l.Driver {
	case "openrouter", "eino":
	default:
		return fmt.Errorf("llm.driver must be openrouter or eino, got %q", l.Driver)
	}
	if strings.TrimSpace(l.Model) == "" {
		return fmt.Errorf("llm.model required")
	}
	return nil
}

// PricingConfig configures the SerpAPI pricing lookup
type PricingConfig struct {
	SerpAPIKey string        `mapstructure:"serpapi_key"`
	Endpoint   string        `mapstructure:"endpoint"`
	Limit      int           `mapstructure:"limit"`
	Timeout    time.Duration `mapstructure:"timeout"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
}

func (p PricingConfig) Validate() error {
	if p.Limit <= 0 {
		return fmt.Errorf("pricing.limit must be > 0")
	}
	if strings.TrimSpace(p.Endpoint) == "" {
		return fmt.Errorf("pricing.endpoint required")
	}
	return nil
}

// ChatConfig tunes turn orchestration
type ChatConfig struct {
	HistoryLimit int           `mapstructure:"history_limit"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
}

func (c ChatConfig) Validate() error {
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("chat.history_limit must be > 0")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.env", "dev")
	v.SetDefault("general.log_mode", "development")
	v.SetDefault("server.address", ":10001")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.secure_cookies", false)
	v.SetDefault("server.token_ttl", "24h")
	v.SetDefault("server.allowed_origins", []string{"*"})
	for _, key := range []string{"url", "host", "user", "password", "dbname"} {
		v.SetDefault("storage.postgres."+key, "")
	}
	v.SetDefault("storage.postgres.port", "5432")
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("storage.postgres.timeout", "5s")
	v.SetDefault("storage.redis.host", "")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.timeout", "2s")
	v.SetDefault("llm.driver", "openrouter")
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.model", "google/gemini-2.5-flash")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 0)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.referer", "http://localhost:3000")
	v.SetDefault("llm.app_title", "Planwise")
	v.SetDefault("pricing.endpoint", "https://serpapi.com/search.json")
	v.SetDefault("pricing.limit", 6)
	v.SetDefault("pricing.timeout", "10s")
	v.SetDefault("pricing.cache_ttl", "15m")
	v.SetDefault("chat.history_limit", 20)
	v.SetDefault("chat.lock_ttl", "30s")
}

// LoadConfig loads config from file (or the default search paths when path is
// empty), overlays PLANWISE_* environment variables and validates the result.
func LoadConfig(path string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			v.AddConfigPath(exeDir)
			v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("PLANWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindSecrets(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindSecrets lets the conventional provider variable names stand in for the
// prefixed ones.
func bindSecrets(v *viper.Viper) {
	_ = v.BindEnv("llm.api_key", "PLANWISE_LLM_API_KEY", "OPENROUTER_API_KEY")
	_ = v.BindEnv("pricing.serpapi_key", "PLANWISE_PRICING_SERPAPI_KEY", "SERPAPI_API_KEY")
	_ = v.BindEnv("storage.postgres.url", "PLANWISE_STORAGE_POSTGRES_URL", "DATABASE_URL")
}

// Validate checks the sections every command relies on. Server and postgres
// settings are validated by the commands that need them.
func (c *Config) Validate() error {
	for _, fn := range []func() error{
		c.Storage.Redis.Validate,
		c.LLM.Validate,
		c.Pricing.Validate,
		c.Chat.Validate,
	} {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}
