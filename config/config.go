package config

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	ServerPort int    `env:"SERVER_PORT, default=8080"`
	JWTSecret  string `env:"JWT_SECRET"`
	LogLevel   string `env:"LOG_LEVEL, default=info"`
	LogPretty  bool   `env:"LOG_PRETTY, default=false"`

	Database DatabaseConfig
	MQ       MQConfig
	Storage  StorageConfig
}

type DatabaseConfig struct {
	Host     string `env:"DB_HOST, default=localhost"`
	Port     int    `env:"DB_PORT, default=5432"`
	User     string `env:"DB_USER, default=notekeeper"`
	Password string `env:"DB_PASSWORD, default=notekeeper"`
	DBName   string `env:"DB_NAME, default=notekeeper"`
	UseSSL   bool   `env:"DB_USE_SSL, default=false"`
}

// MQConfig selects the event bus backend. Backend is one of "none",
// "rabbitmq" or "pubsub".
type MQConfig struct {
	Backend       string `env:"MQ_BACKEND, default=none"`
	EventsChannel string `env:"MQ_EVENTS_CHANNEL, default=notekeeper.events"`

	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string `env:"RABBITMQ_URL"`
	PrefetchCount   int    `env:"RABBITMQ_PREFETCH, default=10"`
	QueueDurable    bool   `env:"RABBITMQ_DURABLE, default=true"`
	QueueAutoDelete bool   `env:"RABBITMQ_AUTO_DELETE, default=false"`
}

type PubSubConfig struct {
	ProjectID          string `env:"PUBSUB_PROJECT_ID"`
	CredentialsFile    string `env:"PUBSUB_CREDENTIALS_FILE"`
	SubscriptionSuffix string `env:"PUBSUB_SUBSCRIPTION_SUFFIX, default=-sub"`
}

// StorageConfig selects the object storage backend used for note exports.
// Backend is one of "none", "minio", "gcs" or "s3".
type StorageConfig struct {
	Backend string `env:"STORAGE_BACKEND, default=none"`

	Minio MinioConfig
	GCS   GCSConfig
	S3    S3Config
}

type MinioConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT, default=localhost:9000"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET, default=notekeeper"`
	UseSSL    bool   `env:"MINIO_USE_SSL, default=false"`
}

type GCSConfig struct {
	Bucket          string `env:"GCS_BUCKET"`
	ProjectID       string `env:"GCS_PROJECT_ID"`
	CredentialsFile string `env:"GCS_CREDENTIALS_FILE"`
}

type S3Config struct {
	Bucket    string `env:"S3_BUCKET"`
	Region    string `env:"S3_REGION, default=us-east-1"`
	Endpoint  string `env:"S3_ENDPOINT"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
}

// LoadConfig reads configuration from the environment. In dev mode a local
// .env file is loaded first; variables already set in the environment win.
func LoadConfig() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
