package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig
	Server     ServerConfig
	Search     SearchConfig
	Ranking    RankingConfig
	Session    SessionConfig
	Engine     EngineConfig
	Embedding  EmbeddingConfig
	Catalogue  CatalogueConfig
	Logging    LoggingConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, used when set
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// SearchConfig holds search-related configuration
type SearchConfig struct {
	DefaultLimit  int
	MaxLimit      int
	DefaultOffset int
	MaxExportRows int
}

// RankingConfig holds ranking weights configuration
type RankingConfig struct {
	WeightText     float64
	WeightCapacity float64
	WeightUrgency  float64
}

// SessionConfig controls conversation state lifetime
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// EngineConfig holds query resolution tunables
type EngineConfig struct {
	ToleranceKW     float64
	DefaultRadiusKM float64
	GazetteerPath   string // empty means the embedded gazetteer
}

// EmbeddingConfig holds the OpenAI-compatible embedding endpoint configuration
type EmbeddingConfig struct {
	APIKey     string
	APIBase    string
	Model      string
	Dimensions int
	ExtraBody  string // JSON string merged into the request as extra_body
	BatchSize  int
	Timeout    int
	Enabled    bool
}

// CatalogueConfig selects the search collaborator backend
type CatalogueConfig struct {
	Backend     string // postgres or memory
	FixturePath string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("POSTGRESQL_URI", getEnv("PG_DSN", ""))),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "fit_installations"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Search: SearchConfig{
			DefaultLimit:  getEnvAsInt("SEARCH_DEFAULT_LIMIT", 20),
			MaxLimit:      getEnvAsInt("SEARCH_MAX_LIMIT", 100),
			DefaultOffset: getEnvAsInt("SEARCH_DEFAULT_OFFSET", 0),
			MaxExportRows: getEnvAsInt("SEARCH_MAX_EXPORT_ROWS", 10000),
		},
		Ranking: RankingConfig{
			WeightText:     getEnvAsFloat("RANK_WEIGHT_TEXT", 0.4),
			WeightCapacity: getEnvAsFloat("RANK_WEIGHT_CAPACITY", 0.35),
			WeightUrgency:  getEnvAsFloat("RANK_WEIGHT_URGENCY", 0.25),
		},
		Session: SessionConfig{
			TTL:           getEnvAsDuration("SESSION_TTL", 30*time.Minute),
			SweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		},
		Engine: EngineConfig{
			ToleranceKW:     getEnvAsFloat("ENGINE_CAPACITY_TOLERANCE_KW", 25),
			DefaultRadiusKM: getEnvAsFloat("ENGINE_DEFAULT_RADIUS_KM", 16.09),
			GazetteerPath:   getEnv("ENGINE_GAZETTEER_PATH", ""),
		},
		Embedding: EmbeddingConfig{
			APIKey:     getEnv("OPENAI_API_KEY", ""),
			APIBase:    getEnv("OPENAI_API_BASE", "https://integrate.api.nvidia.com/v1"),
			Model:      getEnv("OPENAI_EMBEDDING_MODEL", "baai/bge-m3"),
			Dimensions: getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 1024),
			ExtraBody:  getEnv("OPENAI_EMBEDDING_EXTRA_BODY", `{"truncate":"NONE"}`),
			BatchSize:  getEnvAsInt("OPENAI_BATCH_SIZE", 100),
			Timeout:    getEnvAsInt("OPENAI_TIMEOUT", 30),
			Enabled:    getEnv("OPENAI_API_KEY", "") != "",
		},
		Catalogue: CatalogueConfig{
			Backend:     strings.ToLower(getEnv("CATALOGUE_BACKEND", "postgres")),
			FixturePath: getEnv("CATALOGUE_FIXTURE", "data/installations.yaml"),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with
func (c *Config) Validate() error {
	switch c.Catalogue.Backend {
	case "postgres":
	case "memory":
		if c.Catalogue.FixturePath == "" {
			return fmt.Errorf("CATALOGUE_FIXTURE is required for the memory backend")
		}
	default:
		return fmt.Errorf("unknown catalogue backend %q", c.Catalogue.Backend)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("SEARCH_MAX_LIMIT (%d) is below SEARCH_DEFAULT_LIMIT (%d)", c.Search.MaxLimit, c.Search.DefaultLimit)
	}
	if c.Ranking.WeightText < 0 || c.Ranking.WeightCapacity < 0 || c.Ranking.WeightUrgency < 0 {
		return fmt.Errorf("ranking weights must not be negative")
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 100
	}
	return nil
}

// Debug reports whether per-turn debug logging is on
func (c *Config) Debug() bool {
	return c.Logging.Level == "debug"
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil || value <= 0 {
		log.Printf("Warning: Invalid duration value for %s, using default %s", key, defaultValue)
		return defaultValue
	}
	return value
}
