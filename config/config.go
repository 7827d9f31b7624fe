// Package config loads scribe's configuration from file and
// environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the research report service.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Search    SearchConfig    `mapstructure:"search"`
	Extract   ExtractConfig   `mapstructure:"extract"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Library   LibraryConfig   `mapstructure:"library"`
}

// ServerConfig contains HTTP server and auth settings.
type ServerConfig struct {
	Listen    string `mapstructure:"listen"`
	JWTSecret string `mapstructure:"jwt_secret"`
	Env       string `mapstructure:"env"`
}

// LLMConfig configures the synthesis model behind the sub-agents.
type LLMConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
}

// EmbeddingConfig configures the embedding service used for ranking.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	Dimension  int    `mapstructure:"dimension"`
	OllamaHost string `mapstructure:"ollama_host"`
}

// SearchConfig configures the provider fallback chain.
type SearchConfig struct {
	NumResults int          `mapstructure:"num_results"`
	Brave      BraveConfig  `mapstructure:"brave"`
	Serper     SerperConfig `mapstructure:"serper"`
}

// BraveConfig holds the Brave web search credentials.
type BraveConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// SerperConfig holds the serper.dev credentials.
type SerperConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// ExtractConfig tunes content extraction.
type ExtractConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// StorageConfig contains storage and persistence settings.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings.
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds a Postgres connection string, preferring the explicit URL.
func (p PostgresConfig) DSN() (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	if p.Host == "" || p.DBName == "" {
		return "", fmt.Errorf("postgres configuration incomplete: host/dbname required")
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port for the Redis client, empty when Redis is not
// configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return r.Host + ":" + port
}

// SchedulerConfig controls the session cleanup pass.
type SchedulerConfig struct {
	CleanupCron   string `mapstructure:"cleanup_cron"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// LibraryConfig controls the in-memory report search index.
type LibraryConfig struct {
	MaxReports int `mapstructure:"max_reports"`
}

// Load reads configuration from scribe_config.json and environment
// variables. A missing config file is fine: defaults plus environment
// cover a full setup. A missing provider key never fails Load; the
// affected provider degrades to always-failing at call time.
func Load(path string) (*Config, error) {
	viper.SetConfigName("scribe_config")
	viper.SetConfigType("json")
	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("SCRIBE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.listen", ":8080")
	viper.SetDefault("server.env", "dev")

	viper.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("llm.model", "llama-3.3-70b-versatile")
	viper.SetDefault("llm.temperature", 0.7)

	viper.SetDefault("embedding.provider", "openai")
	viper.SetDefault("embedding.model", "text-embedding-3-small")

	viper.SetDefault("search.num_results", 3)

	viper.SetDefault("extract.timeout", "10s")
	viper.SetDefault("extract.cache_ttl", "24h")

	viper.SetDefault("storage.postgres.sslmode", "disable")
	viper.SetDefault("storage.redis.db", 0)

	viper.SetDefault("scheduler.cleanup_cron", "@daily")
	viper.SetDefault("scheduler.retention_days", 40)

	viper.SetDefault("library.max_reports", 100)
}

// overrideFromEnv takes secrets and endpoints from the conventional
// environment variables, which win over the config file.
func overrideFromEnv() {
	if key := os.Getenv("SUB_AGENT"); key != "" {
		viper.Set("llm.api_key", key)
	}
	if key := os.Getenv("BRAVE_SEARCH"); key != "" {
		viper.Set("search.brave.api_key", key)
	}
	if key := os.Getenv("SERPER_API_KEY"); key != "" {
		viper.Set("search.serper.api_key", key)
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		viper.Set("embedding.api_key", key)
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		viper.Set("embedding.ollama_host", host)
	}
	if secret := os.Getenv("SCRIBE_JWT_SECRET"); secret != "" {
		viper.Set("server.jwt_secret", secret)
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		viper.Set("storage.postgres.url", url)
	}
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		viper.Set("storage.postgres.host", host)
	}
	if port := os.Getenv("POSTGRES_PORT"); port != "" {
		viper.Set("storage.postgres.port", port)
	}
	if user := os.Getenv("POSTGRES_USER"); user != "" {
		viper.Set("storage.postgres.user", user)
	}
	if pass := os.Getenv("POSTGRES_PASSWORD"); pass != "" {
		viper.Set("storage.postgres.password", pass)
	}
	if db := os.Getenv("POSTGRES_DB"); db != "" {
		viper.Set("storage.postgres.dbname", db)
	}
	if ssl := os.Getenv("POSTGRES_SSLMODE"); ssl != "" {
		viper.Set("storage.postgres.sslmode", ssl)
	}

	if host := os.Getenv("REDIS_HOST"); host != "" {
		viper.Set("storage.redis.host", host)
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		viper.Set("storage.redis.port", port)
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		viper.Set("storage.redis.password", password)
	}
}

// Validate checks value ranges. Presence of credentials is deliberately
// not checked here: a missing key degrades one provider, not the boot.
func (c *Config) Validate() error {
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model must not be empty")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2]")
	}
	if c.Search.NumResults <= 0 {
		return fmt.Errorf("search.num_results must be positive")
	}
	if c.Extract.Timeout < 0 {
		return fmt.Errorf("extract.timeout must not be negative")
	}
	if c.Extract.CacheTTL < 0 {
		return fmt.Errorf("extract.cache_ttl must not be negative")
	}
	if c.Scheduler.RetentionDays <= 0 {
		return fmt.Errorf("scheduler.retention_days must be positive")
	}
	if c.Library.MaxReports <= 0 {
		return fmt.Errorf("library.max_reports must be positive")
	}
	return nil
}
