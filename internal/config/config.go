package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"minischeduler/internal/cache"
	"minischeduler/internal/database"
	"minischeduler/internal/messaging"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	// MonthlyRuleActive lets only pending and accepted reservations occupy a month.
	MonthlyRuleActive = "active"
	// MonthlyRuleAll counts every reservation, refused ones included.
	MonthlyRuleAll = "all"
)

// Config holds the application configuration
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	StorageDriver    string
	ScheduleTimeZone string
	MonthlyRule      string

	MetricsEnabled bool

	Database      database.Config
	NATS          messaging.Config
	Valkey        cache.Config
	Elasticsearch ElasticsearchConfig
}

// Load reads the configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		StorageDriver:    strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres)),
		ScheduleTimeZone: getEnv("SCHEDULE_TIMEZONE", "Asia/Seoul"),
		MonthlyRule:      strings.ToLower(getEnv("MONTHLY_RULE", MonthlyRuleActive)),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "minischeduler"),
			Password:           getEnv("DB_PASSWORD", "minischeduler"),
			DBName:             getEnv("DB_NAME", "minischeduler"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			Enabled:   getEnvBool("NATS_ENABLED", false),
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "minischeduler"),
			ClientID:  getEnv("NATS_CLIENT_ID", "scheduler-api"),
		},

		Valkey: cache.Config{
			Enabled:         getEnvBool("VALKEY_ENABLED", false),
			Addr:            getEnv("VALKEY_ADDR", "localhost:6379"),
			Password:        os.Getenv("VALKEY_PASSWORD"),
			UsersHashKey:    getEnv("VALKEY_USERS_HASH_KEY", "users:auth"),
			SummaryCacheTTL: time.Duration(getEnvInt("SUMMARY_CACHE_TTL_SEC", 30)) * time.Second,
		},

		Elasticsearch: LoadElasticsearchConfig(),
	}
}

// Location resolves the zone in which calendar months are computed.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ScheduleTimeZone)
	if err != nil {
		slog.Warn("Unknown schedule time zone, falling back to UTC", "zone", c.ScheduleTimeZone, "error", err)
		return time.UTC
	}
	return loc
}

// CountRefused reports whether refused reservations still occupy their month.
func (c *Config) CountRefused() bool {
	return c.MonthlyRule == MonthlyRuleAll
}

// getEnv returns the variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the variable parsed as an integer
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
