package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port          string `yaml:"port" validate:"omitempty,numeric"`
		PublicBaseURL string `yaml:"publicBaseURL" validate:"omitempty,url"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr" validate:"omitempty,hostname_port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"gte=0"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL     string `yaml:"ttl"`
		Catalog string `yaml:"catalog"`
	} `yaml:"quiz"`
	Session struct {
		RecordTimeout string `yaml:"recordTimeout"`
	} `yaml:"session"`
	History struct {
		Retries       int    `yaml:"retries" validate:"gte=0,lte=10"`
		RetryInterval string `yaml:"retryInterval"`
	} `yaml:"history"`
	RabbitMQ struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"rabbitmq"`
	MinIO struct {
		Endpoint        string `yaml:"endpoint"`
		AccessKeyID     string `yaml:"accessKeyID" validate:"required_with=Endpoint"`
		SecretAccessKey string `yaml:"secretAccessKey" validate:"required_with=Endpoint"`
		Bucket          string `yaml:"bucket" validate:"required_with=Endpoint"`
		Region          string `yaml:"region"`
		UseSSL          bool   `yaml:"useSSL"`
		PresignExpiry   string `yaml:"presignExpiry"`
	} `yaml:"minio"`
}

// Load reads YAML config from path, applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field constraints and duration syntax.
func Validate(cfg Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate config: %w", err)
		}
		messages := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			messages = append(messages, fmt.Sprintf("field %s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		return fmt.Errorf("invalid config:\n- %s", strings.Join(messages, "\n- "))
	}

	durations := map[string]string{
		"redis.ttl":             cfg.Redis.TTL,
		"quiz.ttl":              cfg.Quiz.TTL,
		"session.recordTimeout": cfg.Session.RecordTimeout,
		"history.retryInterval": cfg.History.RetryInterval,
		"minio.presignExpiry":   cfg.MinIO.PresignExpiry,
	}
	for name, raw := range durations {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid config: %s: %w", name, err)
		}
	}
	return nil
}

// applyEnv lets deployment secrets and endpoints come from the environment (or a .env file).
func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&cfg.Postgres.URL, "POSTGRES_URL")
	override(&cfg.Redis.Addr, "REDIS_ADDR")
	override(&cfg.Redis.Password, "REDIS_PASSWORD")
	override(&cfg.RabbitMQ.URL, "RABBITMQ_URL")
	override(&cfg.MinIO.Endpoint, "MINIO_ENDPOINT")
	override(&cfg.MinIO.AccessKeyID, "MINIO_ACCESS_KEY")
	override(&cfg.MinIO.SecretAccessKey, "MINIO_SECRET_KEY")
	override(&cfg.MinIO.Bucket, "MINIO_BUCKET")
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
