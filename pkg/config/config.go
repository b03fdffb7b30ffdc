package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Gemini    GeminiConfig
	Index     IndexConfig
	Typesense TypesenseConfig
	Qdrant    QdrantConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Batch     BatchConfig
	OTEL      OTELConfig
}

// AppConfig holds process level settings
type AppConfig struct {
	Env      string
	LogLevel string
}

// GeminiConfig holds generative model configuration
type GeminiConfig struct {
	APIKey           string
	Model            string
	EmbeddingModel   string
	Timeout          time.Duration
	MaxRetries       int
	BreakerThreshold int
	CacheTTLSeconds  int
}

// Enabled reports whether a credential is configured
func (c *GeminiConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// IndexConfig selects the similarity index backend
type IndexConfig struct {
	Backend    string
	Collection string
	TopK       int
	Dimensions int
	// ReindexInterval repeats the reindex command; zero runs it once
	ReindexInterval time.Duration
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL            string
	APIKey         string
	EmbeddingModel string
}

// QdrantConfig holds Qdrant configuration
type QdrantConfig struct {
	Host string
	Port int
}

// QdrantAddr returns the Qdrant gRPC address
func (c *QdrantConfig) QdrantAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	Channel  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// StorageConfig holds S3-compatible archive configuration
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether an archive endpoint is configured
func (c *StorageConfig) Enabled() bool {
	return c.Endpoint != ""
}

// BatchConfig holds batch runner defaults
type BatchConfig struct {
	Workers int
	Limit   int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Supported similarity index backends
const (
	IndexBackendTypesense = "typesense"
	IndexBackendQdrant    = "qdrant"
	IndexBackendMemory    = "memory"
)

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Env:      getEnv("APP_ENV", "development"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Gemini: GeminiConfig{
			APIKey:           getEnv("GEMINI_API_KEY", ""),
			Model:            getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			EmbeddingModel:   getEnv("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),
			Timeout:          getEnvAsDuration("GEMINI_TIMEOUT", 30*time.Second),
			MaxRetries:       getEnvAsInt("GEMINI_MAX_RETRIES", 2),
			BreakerThreshold: getEnvAsInt("GEMINI_BREAKER_THRESHOLD", 5),
			CacheTTLSeconds:  getEnvAsInt("GEMINI_CACHE_TTL_SECONDS", 3600),
		},
		Index: IndexConfig{
			Backend:    strings.ToLower(getEnv("INDEX_BACKEND", IndexBackendMemory)),
			Collection: getEnv("INDEX_COLLECTION", "protocolos_medicos"),
			TopK:       getEnvAsInt("INDEX_TOP_K", 3),
			Dimensions: getEnvAsInt("INDEX_DIMENSIONS", 768),

			ReindexInterval: getEnvAsDuration("REINDEX_INTERVAL", 0),
		},
		Typesense: TypesenseConfig{
			URL:            getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:         getEnv("TYPESENSE_API_KEY", "xyz"),
			EmbeddingModel: getEnv("TYPESENSE_EMBEDDING_MODEL", "ts/paraphrase-multilingual-mpnet-base-v2"),
		},
		Qdrant: QdrantConfig{
			Host: getEnv("QDRANT_HOST", "localhost"),
			Port: getEnvAsInt("QDRANT_PORT", 6334),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Channel:  getEnv("REDIS_RECOMMENDATION_CHANNEL", "stayaudit:recommendations"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "auditoria_hospitalar"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Storage: StorageConfig{
			Endpoint:  getEnv("STORAGE_ENDPOINT", ""),
			AccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey: getEnv("STORAGE_SECRET_KEY", ""),
			Bucket:    getEnv("STORAGE_BUCKET", "stayaudit-reports"),
			UseSSL:    getEnvAsBool("STORAGE_USE_SSL", false),
		},
		Batch: BatchConfig{
			Workers: getEnvAsInt("BATCH_WORKERS", 4),
			Limit:   getEnvAsInt("BATCH_LIMIT", 0),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "stayaudit"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can work with
func (c *Config) Validate() error {
	switch c.Index.Backend {
	case IndexBackendTypesense, IndexBackendQdrant, IndexBackendMemory:
	default:
		return fmt.Errorf("unsupported INDEX_BACKEND %q", c.Index.Backend)
	}
	if c.Index.TopK <= 0 {
		return fmt.Errorf("INDEX_TOP_K must be positive, got %d", c.Index.TopK)
	}
	if c.Index.Dimensions <= 0 {
		return fmt.Errorf("INDEX_DIMENSIONS must be positive, got %d", c.Index.Dimensions)
	}
	if c.Index.ReindexInterval < 0 {
		return fmt.Errorf("REINDEX_INTERVAL must not be negative, got %s", c.Index.ReindexInterval)
	}
	if c.Gemini.Timeout <= 0 {
		return fmt.Errorf("GEMINI_TIMEOUT must be positive, got %s", c.Gemini.Timeout)
	}
	if c.Gemini.MaxRetries < 0 {
		return fmt.Errorf("GEMINI_MAX_RETRIES must not be negative, got %d", c.Gemini.MaxRetries)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("BATCH_WORKERS must be positive, got %d", c.Batch.Workers)
	}
	if c.Batch.Limit < 0 {
		return fmt.Errorf("BATCH_LIMIT must not be negative, got %d", c.Batch.Limit)
	}
	if c.OTEL.Enabled && c.OTEL.Endpoint == "" {
		return fmt.Errorf("OTEL_ENDPOINT is required when OTEL_ENABLED is set")
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
