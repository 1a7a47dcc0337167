package utils

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Stream   StreamConfig
	Lock     LockConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

// StreamConfig controls the event publisher and its NATS sink.
// An empty URL selects the in-memory sink (local development without a broker).
type StreamConfig struct {
	URL               string
	QueueSize         int
	MaxRetries        int
	RetryWait         time.Duration
	MaxRetryWait      time.Duration
	SpoolPollInterval time.Duration
	SpoolBatchSize    int
}

// LockConfig controls per-content-key serialization in the aggregator.
type LockConfig struct {
	Timeout time.Duration
	Shards  int
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("NATS_URL", "")
	viper.SetDefault("EVENT_QUEUE_SIZE", 1024)
	viper.SetDefault("EVENT_MAX_RETRIES", 5)
	viper.SetDefault("EVENT_RETRY_WAIT", "100ms")
	viper.SetDefault("EVENT_MAX_RETRY_WAIT", "5s")
	viper.SetDefault("SPOOL_POLL_INTERVAL", "1s")
	viper.SetDefault("SPOOL_BATCH_SIZE", 100)
	viper.SetDefault("KEY_LOCK_TIMEOUT", "5s")
	viper.SetDefault("KEY_LOCK_SHARDS", 64)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Stream: StreamConfig{
			URL:               viper.GetString("NATS_URL"),
			QueueSize:         viper.GetInt("EVENT_QUEUE_SIZE"),
			MaxRetries:        viper.GetInt("EVENT_MAX_RETRIES"),
			RetryWait:         viper.GetDuration("EVENT_RETRY_WAIT"),
			MaxRetryWait:      viper.GetDuration("EVENT_MAX_RETRY_WAIT"),
			SpoolPollInterval: viper.GetDuration("SPOOL_POLL_INTERVAL"),
			SpoolBatchSize:    viper.GetInt("SPOOL_BATCH_SIZE"),
		},
		Lock: LockConfig{
			Timeout: viper.GetDuration("KEY_LOCK_TIMEOUT"),
			Shards:  viper.GetInt("KEY_LOCK_SHARDS"),
		},
	}

	return config, nil
}
