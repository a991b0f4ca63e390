package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	SMTP     SMTPConfig
	Cache    CacheConfig
	Outbox   OutboxConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port" envconfig:"SERVER_PORT" default:"8080"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds" envconfig:"SERVER_TIMEOUT_SECONDS" default:"30"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host" envconfig:"DB_HOST" default:"localhost"`
	Port     int    `mapstructure:"port" envconfig:"DB_PORT" default:"5432"`
	User     string `mapstructure:"user" envconfig:"DB_USER" default:"postgres"`
	Password string `mapstructure:"password" envconfig:"DB_PASSWORD"`
	Name     string `mapstructure:"name" envconfig:"DB_NAME" default:"consult"`
	SSLMode  string `mapstructure:"sslmode" envconfig:"DB_SSLMODE" default:"disable"`
}

type RedisConfig struct {
	URL string `mapstructure:"url" envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret" envconfig:"JWT_SECRET"`
	ExpiryHours int    `mapstructure:"expiry_hours" envconfig:"JWT_EXPIRY_HOURS" default:"24"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host" envconfig:"SMTP_HOST"`
	Port     int    `mapstructure:"port" envconfig:"SMTP_PORT" default:"587"`
	User     string `mapstructure:"user" envconfig:"SMTP_USER"`
	Password string `mapstructure:"password" envconfig:"SMTP_PASSWORD"`
	From     string `mapstructure:"from" envconfig:"SMTP_FROM"`
}

type CacheConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds" envconfig:"CACHE_TTL_SECONDS" default:"30"`
}

type OutboxConfig struct {
	BatchSize           int `mapstructure:"batch_size" envconfig:"OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" envconfig:"OUTBOX_POLL_INTERVAL_SECONDS" default:"5"`
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

func (c OutboxConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c JWTConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiryHours) * time.Hour
}

// LoadConfig reads config.yaml with environment overrides. When no config
// file is present (container deployments), it falls back to pure
// environment configuration.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound {
			return LoadFromEnv()
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// LoadFromEnv builds the configuration from environment variables alone.
func LoadFromEnv() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return &config, nil
}
