package config

import (
	"time"
)

// ElasticsearchConfig configures the sync-run audit index. An empty URL disables it.
type ElasticsearchConfig struct {
	URL        string        `envconfig:"ELASTICSEARCH_URL"`
	Index      string        `envconfig:"ELASTICSEARCH_INDEX" default:"ayo-sync-runs"`
	Username   string        `envconfig:"ELASTICSEARCH_USERNAME"`
	Password   string        `envconfig:"ELASTICSEARCH_PASSWORD"`
	MaxRetries int           `envconfig:"ELASTICSEARCH_MAX_RETRIES" default:"3"`
	Timeout    time.Duration `envconfig:"ELASTICSEARCH_TIMEOUT" default:"30s"`
}

func (c ElasticsearchConfig) Enabled() bool {
	return c.URL != ""
}
