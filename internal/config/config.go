package config

import (
	"errors"
	"time"
)

// CLI is the kong command-line surface. Every flag can also be supplied via
// its environment variable.
type CLI struct {
	ListenAddress        string `env:"LISTEN_ADDR" default:"0.0.0.0:8080" help:"Listen address e.g. 0.0.0.0:8080"`
	MetricsListenAddress string `env:"METRICS_LISTEN_ADDR" default:"0.0.0.0:9102" help:"Listen address for prometheus metrics"`
	Metrics              bool   `env:"METRICS" help:"Enable prometheus metrics"`
	LogLevel             string `env:"LOG_LEVEL" default:"info" enum:"debug,info,warn,error"`
	ProvidersFile        string `env:"PROVIDERS_FILE" default:"providers.yaml" help:"Path to the provider catalogue"`

	StorageMemory bool   `env:"STORAGE_MEMORY" help:"Keep tiles in process memory instead of S3 (development only)"`
	S3Endpoint    string `env:"S3_ENDPOINT" help:"Custom S3 endpoint e.g. http://minio:9000"`
	S3Region      string `env:"S3_REGION" default:"us-east-1"`
	S3Bucket      string `env:"S3_BUCKET" help:"Bucket tiles are persisted to"`
	S3AccessKey   string `env:"S3_ACCESS_KEY"`
	S3SecretKey   string `env:"S3_SECRET_KEY"`

	RedisAddr     string        `env:"REDIS_ADDR" help:"Optional redis hot tier address; empty disables the tier"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB"`
	HotTTL        time.Duration `env:"HOT_TTL" default:"15m" help:"TTL for tiles in the redis hot tier"`

	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" default:"10s"`
	UserAgent       string        `env:"USER_AGENT" help:"User-Agent sent to upstream providers"`

	PersistQueueSize int `env:"PERSIST_QUEUE_SIZE" default:"256"`
	PersistWorkers   int `env:"PERSIST_WORKERS" default:"4"`
}

func (c *CLI) Validate() error {
	if c.StorageMemory {
		return nil
	}
	if c.S3Bucket == "" || c.S3AccessKey == "" || c.S3SecretKey == "" {
		return errors.New("S3 bucket/access/secret are required unless --storage-memory is set")
	}
	return nil
}
