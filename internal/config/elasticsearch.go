package config

import (
	"os"
	"time"
)

// ElasticsearchConfig holds the settings of the event search index
type ElasticsearchConfig struct {
	Enabled    bool
	URL        string
	Index      string
	Username   string
	Password   string
	MaxRetries int
	Timeout    time.Duration
}

// LoadElasticsearchConfig reads the Elasticsearch settings from the environment
func LoadElasticsearchConfig() ElasticsearchConfig {
	timeout := 10 * time.Second
	if val := os.Getenv("ELASTICSEARCH_TIMEOUT"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			timeout = parsed
		}
	}

	return ElasticsearchConfig{
		Enabled:    getEnvBool("ELASTICSEARCH_ENABLED", false),
		URL:        getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
		Index:      getEnv("ELASTICSEARCH_INDEX", "schedules"),
		Username:   os.Getenv("ELASTICSEARCH_USERNAME"),
		Password:   os.Getenv("ELASTICSEARCH_PASSWORD"),
		MaxRetries: getEnvInt("ELASTICSEARCH_MAX_RETRIES", 3),
		Timeout:    timeout,
	}
}
