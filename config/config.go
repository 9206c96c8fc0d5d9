package config

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	ShipLedger ShipLedgerConfig `yaml:"shipledger"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// История пишется сюда после каждого коммита чанка.
	HistoryTopicName string `yaml:"history_topic_name"`
	// Внешние системы присылают сюда запросы на смену статуса.
	StatusRequestTopicName string `yaml:"status_request_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type ShipLedgerConfig struct {
	GRPCAddr           string `yaml:"grpc_addr"`
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	ChunkSize              int `yaml:"chunk_size"`
	MaxUploadBytes         int `yaml:"max_upload_bytes"`
	TrackingViewTTLSeconds int `yaml:"tracking_view_ttl_seconds"`

	UploadRateLimitPerMinute int `yaml:"upload_rate_limit_per_minute"`

	// Пусто: CORS-заголовки не отдаются.
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	// Партии в processing старше этого срока закрываются как failed.
	StaleBatchMinutes     int `yaml:"stale_batch_minutes"`
	ReaperIntervalSeconds int `yaml:"reaper_interval_seconds"`

	LogEnv   string `yaml:"log_env"`   // "production" | "development"
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// ConnString собирает DSN для pgxpool.
func (d DatabaseConfig) ConnString() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.DBName, sslMode)
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal YAML")
	}

	return &config, nil
}
