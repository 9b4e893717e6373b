package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	AI           AIConfig           `mapstructure:"ai"`
	OpenRouter   OpenRouterConfig   `mapstructure:"openrouter"`
	Gemini       GeminiConfig       `mapstructure:"gemini"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Inventory    InventoryConfig    `mapstructure:"inventory"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Auth         AuthConfig         `mapstructure:"auth"`
	LogLevel     string             `mapstructure:"log_level"`
	LogDir       string             `mapstructure:"log_dir"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// AIConfig 模型閘道設定
type AIConfig struct {
	Provider     string        `mapstructure:"provider"` // openrouter | gemini
	Timeout      time.Duration `mapstructure:"timeout"`
	Workers      int           `mapstructure:"workers"`
	MaxQueueSize int           `mapstructure:"max_queue_size"`
}

// OpenRouterConfig OpenRouter 配置
type OpenRouterConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// GeminiConfig Gemini 配置
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"` // 空字串使用 genai 預設端點
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// DatabaseConfig 資料庫設定
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // sqlite | postgres
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	LogQueries   bool   `mapstructure:"log_queries"`
}

// RedisConfig Redis 設定
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ConversationConfig 對話狀態設定
type ConversationConfig struct {
	Store          string        `mapstructure:"store"` // memory | redis
	TTL            time.Duration `mapstructure:"ttl"`
	RevealInterval time.Duration `mapstructure:"reveal_interval"`
}

// InventoryConfig 食材快照與刪除設定
type InventoryConfig struct {
	Broker            string        `mapstructure:"broker"` // memory | redis
	CacheMaxSize      int           `mapstructure:"cache_max_size"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	DeleteConcurrency int           `mapstructure:"delete_concurrency"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// AuthConfig 身分驗證設定
type AuthConfig struct {
	JWTSecret           string `mapstructure:"jwt_secret"`
	Issuer              string `mapstructure:"issuer"`
	AllowHeaderIdentity bool   `mapstructure:"allow_header_identity"` // 開發用：信任 X-User-ID
}

// LoadConfig 載入設定（.env 需由呼叫端先以 godotenv 載入）
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 設定預設值
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	bindings := map[string]string{
		"ai.provider":                "AI_PROVIDER",
		"openrouter.api_key":         "OPENROUTER_API_KEY",
		"openrouter.model":           "OPENROUTER_MODEL",
		"openrouter.max_tokens":      "MODEL_MAX_TOKENS",
		"gemini.api_key":             "GEMINI_API_KEY",
		"gemini.model":               "GEMINI_MODEL",
		"gemini.base_url":            "GEMINI_BASE_URL",
		"database.driver":            "DATABASE_DRIVER",
		"database.dsn":               "DATABASE_DSN",
		"redis.enabled":              "REDIS_ENABLED",
		"redis.addr":                 "REDIS_ADDR",
		"redis.password":             "REDIS_PASSWORD",
		"conversation.store":         "CONVERSATION_STORE",
		"inventory.broker":           "INVENTORY_BROKER",
		"rate_limit.enabled":         "RATE_LIMIT_ENABLED",
		"rate_limit.requests":        "RATE_LIMIT_REQUESTS",
		"rate_limit.window":          "RATE_LIMIT_WINDOW",
		"auth.jwt_secret":            "JWT_SECRET",
		"auth.allow_header_identity": "AUTH_ALLOW_HEADER_IDENTITY",
		"log_level":                  "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	// 設定設定檔名稱和路徑
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// 讀取設定檔（可選）
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 解析設定
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "fridge-chef")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "130s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "120s")
	v.SetDefault("server.max_body_bytes", 1<<20) // 1MB

	// 模型設定
	v.SetDefault("ai.provider", "openrouter")
	v.SetDefault("ai.timeout", "60s")
	v.SetDefault("ai.workers", 4)
	v.SetDefault("ai.max_queue_size", 100)

	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.model", "google/gemini-2.0-flash-001")
	v.SetDefault("openrouter.max_tokens", 1500)
	v.SetDefault("openrouter.temperature", 0.7)

	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.max_tokens", 1500)
	v.SetDefault("gemini.temperature", 0.7)

	// 資料庫設定
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "fridge-chef.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.log_queries", false)

	// Redis 設定
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// 對話設定
	v.SetDefault("conversation.store", "memory")
	v.SetDefault("conversation.ttl", "24h")
	v.SetDefault("conversation.reveal_interval", "15ms")

	// 食材設定
	v.SetDefault("inventory.broker", "memory")
	v.SetDefault("inventory.cache_max_size", 1000)
	v.SetDefault("inventory.cache_ttl", "10m")
	v.SetDefault("inventory.delete_concurrency", 4)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 60)
	v.SetDefault("rate_limit.window", "1m")

	// 身分驗證
	v.SetDefault("auth.issuer", "fridge-chef")
	v.SetDefault("auth.allow_header_identity", false)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "logs")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	switch config.AI.Provider {
	case "openrouter", "gemini":
	default:
		return fmt.Errorf("unknown ai provider %q", config.AI.Provider)
	}
	if config.AI.Workers <= 0 {
		return fmt.Errorf("invalid ai workers")
	}
	if config.AI.MaxQueueSize <= 0 {
		return fmt.Errorf("invalid ai max queue size")
	}

	switch config.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q", config.Database.Driver)
	}

	switch config.Conversation.Store {
	case "memory":
	case "redis":
		if !config.Redis.Enabled {
			return fmt.Errorf("conversation store redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("unknown conversation store %q", config.Conversation.Store)
	}

	switch config.Inventory.Broker {
	case "memory":
	case "redis":
		if !config.Redis.Enabled {
			return fmt.Errorf("inventory broker redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("unknown inventory broker %q", config.Inventory.Broker)
	}

	// 驗證快取設定
	if config.Inventory.CacheMaxSize <= 0 {
		return fmt.Errorf("invalid inventory cache max size")
	}
	if config.Inventory.CacheTTL <= 0 {
		return fmt.Errorf("invalid inventory cache ttl")
	}
	if config.Inventory.DeleteConcurrency <= 0 {
		return fmt.Errorf("invalid inventory delete concurrency")
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit")
	}

	if config.Auth.JWTSecret == "" && !config.Auth.AllowHeaderIdentity {
		return fmt.Errorf("auth.jwt_secret is required unless auth.allow_header_identity is set")
	}

	return nil
}
