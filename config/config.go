package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config содержит все конфигурационные параметры приложения.
type Config struct {
	Server struct {
		Port         string `env:"YATUBE_PORT,default=8080"`
		CookieSecure bool   `env:"YATUBE_COOKIE_SECURE,default=false"`
		StaticDir    string `env:"YATUBE_STATIC_DIR,default=./static"`
		// Requests per minute per client IP for POST routes; 0 disables the limiter.
		RateLimit int `env:"YATUBE_RATE_LIMIT,default=60"`
	}
	Database struct {
		Path string `env:"YATUBE_DB_PATH,default=yatube.db"`
	}
	Session struct {
		Expiration time.Duration `env:"YATUBE_SESSION_TTL,default=24h"`
	}
	Log struct {
		Level  string `env:"YATUBE_LOG_LEVEL,default=info"`
		Format string `env:"YATUBE_LOG_FORMAT,default=text"`
	}
	Cache struct {
		Backend   string        `env:"YATUBE_CACHE_BACKEND,default=memory"`
		TTL       time.Duration `env:"YATUBE_CACHE_TTL,default=20s"`
		RedisAddr string        `env:"YATUBE_REDIS_ADDR,default=localhost:6379"`
		RedisDB   int           `env:"YATUBE_REDIS_DB,default=0"`
	}
	Media struct {
		Backend     string `env:"YATUBE_MEDIA_BACKEND,default=local"`
		Root        string `env:"YATUBE_MEDIA_ROOT,default=./media"`
		URLPrefix   string `env:"YATUBE_MEDIA_URL,default=/media/"`
		S3Endpoint  string `env:"YATUBE_S3_ENDPOINT,default=localhost:9000"`
		S3AccessKey string `env:"YATUBE_S3_ACCESS_KEY"`
		S3SecretKey string `env:"YATUBE_S3_SECRET_KEY"`
		S3Bucket    string `env:"YATUBE_S3_BUCKET,default=yatube-media"`
		S3UseSSL    bool   `env:"YATUBE_S3_USE_SSL,default=false"`
	}
	Kafka struct {
		Brokers string `env:"YATUBE_KAFKA_BROKERS"`
		Topic   string `env:"YATUBE_KAFKA_TOPIC,default=yatube.events"`
	}
	Tracing struct {
		Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
		ServiceName string `env:"OTEL_SERVICE_NAME,default=yatube"`
	}
}

// Load читает .env (если он есть) и переменные окружения поверх значений по умолчанию.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("config: could not read .env: %v", err)
	}

	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("config: %w", err)
	}

	switch cfg.Cache.Backend {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("config: unknown cache backend %q", cfg.Cache.Backend)
	}
	switch cfg.Media.Backend {
	case "local", "s3":
	default:
		return nil, fmt.Errorf("config: unknown media backend %q", cfg.Media.Backend)
	}

	return cfg, nil
}

// DSN возвращает строку подключения к SQLite с включёнными внешними ключами.
func (c *Config) DSN() string {
	return c.Database.Path + "?_foreign_keys=on&_busy_timeout=5000"
}

// SetupLogger настраивает глобальный логгер logrus.
func (c *Config) SetupLogger() error {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log.SetLevel(level)
	if c.Log.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stdout)
	return nil
}
