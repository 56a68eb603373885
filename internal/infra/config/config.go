package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/framefleet/frame-extraction-worker/internal/domain/entity"
)

type Config struct {
	WorkerIndex int     `env:"WORKER_INDEX" envDefault:"0"`
	ShardCount  int     `env:"SHARD_COUNT"  envDefault:"1"`
	SampleFPS   float64 `env:"SAMPLE_FPS"   envDefault:"0"`

	MinIOEndpoint     string `env:"MINIO_ENDPOINT"      envDefault:"minio:9000"`
	MinIOAccessKey    string `env:"MINIO_ACCESS_KEY"    envDefault:"minioadmin"`
	MinIOSecretKey    string `env:"MINIO_SECRET_KEY"    envDefault:"minioadmin"`
	MinIOUseSSL       bool   `env:"MINIO_USE_SSL"       envDefault:"false"`
	MinIOInputBucket  string `env:"MINIO_INPUT_BUCKET"  envDefault:"videos"`
	MinIOInputPrefix  string `env:"MINIO_INPUT_PREFIX"  envDefault:""`
	MinIOOutputBucket string `env:"MINIO_OUTPUT_BUCKET" envDefault:"frames"`
	MinIOOutputPrefix string `env:"MINIO_OUTPUT_PREFIX" envDefault:""`

	StagingDir string `env:"STAGING_DIR" envDefault:"/tmp/framefleet"`

	PublishMaxRetries  int `env:"PUBLISH_MAX_RETRIES"   envDefault:"5"`
	PublishBaseDelayMs int `env:"PUBLISH_BASE_DELAY_MS" envDefault:"500"`

	// Optional audit sink; empty disables it.
	ReportDatabaseURL string `env:"REPORT_DATABASE_URL" envDefault:""`

	// Optional run-status event; empty RABBITMQ_URL disables it.
	RabbitMQURL              string `env:"RABBITMQ_URL"                envDefault:""`
	RabbitMQExchange         string `env:"RABBITMQ_EXCHANGE"           envDefault:"framefleet.runs"`
	RabbitMQStatusRoutingKey string `env:"RABBITMQ_STATUS_ROUTING_KEY" envDefault:"run.status"`

	MetricsPort  int    `env:"METRICS_PORT"  envDefault:"8083"`
	OTLPEndpoint string `env:"OTLP_ENDPOINT" envDefault:""`
	LogLevel     string `env:"LOG_LEVEL"     envDefault:"info"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the launch-parameter invariants shard assignment depends
// on. Violations are configuration errors: fatal, never retried.
func (c *Config) Validate() error {
	if c.ShardCount <= 0 {
		return fmt.Errorf("%w: SHARD_COUNT must be > 0, got %d", entity.ErrConfiguration, c.ShardCount)
	}
	if c.WorkerIndex < 0 || c.WorkerIndex >= c.ShardCount {
		return fmt.Errorf("%w: WORKER_INDEX %d out of range [0,%d)", entity.ErrConfiguration, c.WorkerIndex, c.ShardCount)
	}
	if c.SampleFPS < 0 {
		return fmt.Errorf("%w: SAMPLE_FPS must be >= 0, got %v", entity.ErrConfiguration, c.SampleFPS)
	}
	if c.PublishMaxRetries < 1 {
		return fmt.Errorf("%w: PUBLISH_MAX_RETRIES must be >= 1, got %d", entity.ErrConfiguration, c.PublishMaxRetries)
	}
	return nil
}
