package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/Sivaraj16/medicals/pkg/config"
	"github.com/Sivaraj16/medicals/pkg/database"
)

// Search backends.
const (
	SearchMemory        = "memory"
	SearchElasticsearch = "elasticsearch"
)

// Config holds all configuration for the pharmacy service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"medicals"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"medicals_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"medicals"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINS" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINS" envDefault:"30"`
	SlowQueryThresholdMs  int   `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`

	// Redis (cart sessions, consumer idempotency)
	RedisHost     string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	CartTTL       time.Duration `env:"CART_TTL" envDefault:"2h"`

	// Kafka
	KafkaBrokers          []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaConsumersEnabled bool     `env:"KAFKA_CONSUMERS_ENABLED" envDefault:"false"`
	KafkaDLQEnabled       bool     `env:"KAFKA_DLQ_ENABLED" envDefault:"true"`

	// Search
	SearchBackend      string `env:"SEARCH_BACKEND" envDefault:"memory"`
	ElasticsearchURL   string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex string `env:"ELASTICSEARCH_INDEX" envDefault:"pharmacy_medicines"`

	// Operator auth
	AuthEnabled          bool          `env:"AUTH_ENABLED" envDefault:"false"`
	JWTSecret            string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	JWTAccessTTL         time.Duration `env:"JWT_ACCESS_TTL" envDefault:"12h"`
	OperatorUsername     string        `env:"OPERATOR_USERNAME" envDefault:"operator"`
	OperatorPasswordHash string        `env:"OPERATOR_PASSWORD_HASH"`

	// Domain tuning
	ExpiringWindowDays     int `env:"EXPIRING_WINDOW_DAYS" envDefault:"30"`
	RestockDefaultQuantity int `env:"RESTOCK_DEFAULT_QUANTITY" envDefault:"50"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	PprofAllowedCIDRs  []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load medicals config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.DBMinConns < 0 || c.DBMaxConns < 1 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("invalid pool bounds: min %d, max %d", c.DBMinConns, c.DBMaxConns)
	}
	if c.CartTTL <= 0 {
		return fmt.Errorf("CART_TTL must be positive, got %s", c.CartTTL)
	}
	if c.SearchBackend != SearchMemory && c.SearchBackend != SearchElasticsearch {
		return fmt.Errorf("SEARCH_BACKEND must be %q or %q, got %q", SearchMemory, SearchElasticsearch, c.SearchBackend)
	}
	if c.AuthEnabled {
		if len(c.JWTSecret) < 16 {
			return fmt.Errorf("JWT_SECRET must be at least 16 characters when AUTH_ENABLED")
		}
		if c.OperatorPasswordHash == "" {
			return fmt.Errorf("OPERATOR_PASSWORD_HASH is required when AUTH_ENABLED")
		}
	}
	if c.ExpiringWindowDays < 1 {
		return fmt.Errorf("EXPIRING_WINDOW_DAYS must be >= 1, got %d", c.ExpiringWindowDays)
	}
	if c.RestockDefaultQuantity < 1 {
		return fmt.Errorf("RESTOCK_DEFAULT_QUANTITY must be >= 1, got %d", c.RestockDefaultQuantity)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// Postgres returns the pool settings for database.NewPostgresPool.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// Redis returns the client settings for database.NewRedisClient.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}
