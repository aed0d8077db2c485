package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"2"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"docindex-uploads"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	NATSURL string `envconfig:"NATS_URL" default:"nats://localhost:4222"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	EmbedBatchSize      int    `envconfig:"EMBED_BATCH_SIZE" default:"20"`

	ChunkTokens        int  `envconfig:"CHUNK_TOKENS" default:"500"`
	ChunkOverlapTokens int  `envconfig:"CHUNK_OVERLAP_TOKENS" default:"50"`
	AnnotateChunks     bool `envconfig:"ANNOTATE_CHUNKS" default:"true"`

	// Stalled-job sweep: jobs stuck in the initial state longer than
	// StalledJobMaxAgeMinutes are re-dispatched on each poll.
	SweepIntervalSeconds    int `envconfig:"SWEEP_INTERVAL_SECONDS" default:"60"`
	StalledJobMaxAgeMinutes int `envconfig:"STALLED_JOB_MAX_AGE_MINUTES" default:"10"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("DOCINDEX", &cfg); err != nil {
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

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
}
