package infra

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Server
	APIPort int `env:"API_PORT" envDefault:"3200"`

	// Pipeline
	TickInterval       time.Duration `env:"TICK_INTERVAL" envDefault:"2s"`
	MaxConcurrent      int           `env:"MAX_CONCURRENT_PROCESSING" envDefault:"5"`
	HandlerTimeout     time.Duration `env:"HANDLER_TIMEOUT" envDefault:"30s"`
	DeliveryTimeout    time.Duration `env:"DELIVERY_TIMEOUT" envDefault:"10s"`
	QueueCapacity      int           `env:"QUEUE_CAPACITY" envDefault:"10000"`
	HighValueThreshold int64         `env:"HIGH_VALUE_THRESHOLD" envDefault:"1000"`
	AnomalyThreshold   int64         `env:"ANOMALY_THRESHOLD" envDefault:"500000"`
	AlertHistory       int           `env:"ALERT_HISTORY" envDefault:"100"`

	// Audit archive (Postgres)
	AuditEnabled bool   `env:"AUDIT_ENABLED" envDefault:"false"`
	DatabaseURL  string `env:"DATABASE_URL"`
	PGHost       string `env:"PGHOST" envDefault:"localhost"`
	PGPort       int    `env:"PGPORT" envDefault:"5432"`
	PGUser       string `env:"PGUSER" envDefault:"francis"`
	PGPassword   string `env:"PGPASSWORD" envDefault:"francis"`
	PGDatabase   string `env:"PGDATABASE" envDefault:"francis"`

	// Kafka
	KafkaEnabled     bool   `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers     string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaMirrorTopic string `env:"KAFKA_MIRROR_TOPIC" envDefault:"francis.events.processed"`
	KafkaIngestTopic string `env:"KAFKA_INGEST_TOPIC" envDefault:"francis.events.ingest"`
	KafkaGroupID     string `env:"KAFKA_GROUP_ID" envDefault:"francis-pipeline"`

	// External services
	PushGatewayURL    string `env:"PUSH_GATEWAY_URL"`
	PushGatewayAPIKey string `env:"PUSH_GATEWAY_API_KEY"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration combinations that cannot run.
func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive, got %s", c.TickInterval)
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_PROCESSING must be positive, got %d", c.MaxConcurrent)
	}
	if c.AuditEnabled && c.DatabaseURL == "" && c.PGHost == "" {
		return fmt.Errorf("AUDIT_ENABLED requires DATABASE_URL or PG* settings")
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}
