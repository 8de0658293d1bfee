package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the service reads from the environment.
type Config struct {
	Port    string
	BaseURL string

	PostgresURL string

	ClickHouseAddr     string
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseDB       string

	RedisAddr     string
	RedisPassword string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	JWTSecret  string
	SessionTTL time.Duration

	// GeoDBPath points at a local GeoLite2 database. When empty the
	// HTTP locator at GeoAPIURL is used instead.
	GeoDBPath string
	GeoAPIURL string

	// TelegramToken is optional; the bot only starts when it is set.
	TelegramToken string
}

// Load reads the environment (optionally seeded from a .env file) and
// fails on any missing required variable.
func Load() (*Config, error) {
	// .env is a development convenience, not a requirement.
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getenv("PORT", "8080"),
		BaseURL:            getenv("BASE_URL", "http://localhost:8080"),
		PostgresURL:        os.Getenv("DB_URL"),
		ClickHouseAddr:     os.Getenv("CLICKHOUSE_ADDR"),
		ClickHouseUser:     os.Getenv("CLICKHOUSE_USER"),
		ClickHousePassword: os.Getenv("CLICKHOUSE_PASSWORD"),
		ClickHouseDB:       os.Getenv("CLICKHOUSE_DB"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		MinioEndpoint:      os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:     os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:     os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:        getenv("MINIO_BUCKET", "qrs"),
		MinioUseSSL:        os.Getenv("MINIO_USE_SSL") == "true",
		JWTSecret:          os.Getenv("JWT_SECRET"),
		SessionTTL:         24 * time.Hour,
		GeoDBPath:          os.Getenv("GEOIP_DB_PATH"),
		GeoAPIURL:          getenv("GEO_API_URL", "https://ipwho.is"),
		TelegramToken:      os.Getenv("TELEGRAM_API_TOKEN"),
	}

	if ttl := os.Getenv("SESSION_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("parse SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}

	required := map[string]string{
		"DB_URL":              cfg.PostgresURL,
		"CLICKHOUSE_ADDR":     cfg.ClickHouseAddr,
		"CLICKHOUSE_USER":     cfg.ClickHouseUser,
		"CLICKHOUSE_PASSWORD": cfg.ClickHousePassword,
		"CLICKHOUSE_DB":       cfg.ClickHouseDB,
		"REDIS_ADDR":          cfg.RedisAddr,
		"MINIO_ENDPOINT":      cfg.MinioEndpoint,
		"MINIO_ACCESS_KEY":    cfg.MinioAccessKey,
		"MINIO_SECRET_KEY":    cfg.MinioSecretKey,
		"JWT_SECRET":          cfg.JWTSecret,
	}
	for name, val := range required {
		if val == "" {
			return nil, fmt.Errorf("missing required environment variable %s", name)
		}
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
