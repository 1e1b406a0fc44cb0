package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/cloo-solutions/cardsmith/internal/preprocess"
)

const envPrefix = "CARDSMITH"

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL   string        `envconfig:"DATABASE_URL"`
	DBMaxConns    int32         `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMaxConnIdle time.Duration `envconfig:"DB_MAX_CONN_IDLE" default:"5m"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"cardsmith-sources"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	MaxChunkSize       int    `envconfig:"MAX_CHUNK_SIZE" default:"4000"`
	MaxBatchSize       int    `envconfig:"MAX_BATCH_SIZE" default:"3"`
	MaxBatchTokens     int    `envconfig:"MAX_BATCH_TOKENS" default:"6000"`
	CostProvider       string `envconfig:"COST_PROVIDER" default:"standard"`
	PreserveParagraphs bool   `envconfig:"PRESERVE_PARAGRAPHS" default:"false"`

	// KeywordsFile points at a YAML keyword library replacing the built-in one.
	KeywordsFile string `envconfig:"KEYWORDS_FILE"`

	WorkerPollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"5s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// RequireDatabase reports a missing DATABASE_URL for commands that need one.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("required key %s_DATABASE_URL missing value", envPrefix)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}

// TracesSampleRate samples everything in development and a tenth elsewhere.
func (c *Config) TracesSampleRate() float64 {
	if c.Environment == "development" {
		return 1.0
	}
	return 0.1
}

func (c *Config) Pipeline() preprocess.Config {
	return preprocess.Config{
		MaxChunkSize:       c.MaxChunkSize,
		MaxBatchSize:       c.MaxBatchSize,
		MaxBatchTokens:     c.MaxBatchTokens,
		Provider:           c.CostProvider,
		PreserveParagraphs: c.PreserveParagraphs,
	}
}

// KeywordLibrary loads KeywordsFile, or returns the built-in library when
// none is set.
func (c *Config) KeywordLibrary() (*preprocess.KeywordLibrary, error) {
	if c.KeywordsFile == "" {
		return preprocess.DefaultKeywordLibrary(), nil
	}
	lib, err := preprocess.LoadKeywordLibrary(c.KeywordsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load keywords file %s: %w", c.KeywordsFile, err)
	}
	return lib, nil
}

// NewPipeline builds the preprocessing pipeline from the configuration.
func (c *Config) NewPipeline() (*preprocess.Pipeline, error) {
	lib, err := c.KeywordLibrary()
	if err != nil {
		return nil, err
	}
	return preprocess.NewPipeline(c.Pipeline(), lib, preprocess.DefaultCostTable())
}
