package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"braidsbar/queue-service/internal/validation"

	"github.com/joho/godotenv"
)

const DefaultCataloguePath = "config/catalogue.yaml"

type Config struct {
	Port                    string        `validate:"required,numeric"`
	DatabaseURL             string
	Timezone                string        `validate:"required"`
	Location                *time.Location
	CataloguePath           string
	NoShowGrace             time.Duration `validate:"gte=0"`
	NoShowInterval          time.Duration `validate:"gte=0"`
	RateLimitPerMinute      int           `validate:"gte=0"`
	RateLimitBurst          int           `validate:"gte=0"`
	PhoneRateLimitPerMinute int           `validate:"gte=0"`
	PhoneRateLimitBurst     int           `validate:"gte=0"`
	RedisURL                string        `validate:"omitempty,url"`
	RedisChannel            string
	AMQPURL                 string        `validate:"omitempty,url"`
	AMQPExchange            string
	SMSProvider             string
	SMSWebhookURL           string        `validate:"omitempty,url"`
	SMSWebhookToken         string
	SMSSenderID             string        `validate:"max=11"`
	LogLevel                string        `validate:"omitempty,oneof=trace debug info warn error"`
	LogFormat               string        `validate:"omitempty,oneof=json console"`
	OTLPEndpoint            string
	OTLPInsecure            bool
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	cfg := Config{
		Port:                    port,
		DatabaseURL:             os.Getenv("DB_DSN"),
		Timezone:                readString("TIMEZONE", "Africa/Accra"),
		CataloguePath:           readString("CATALOGUE_PATH", DefaultCataloguePath),
		NoShowGrace:             readDurationSeconds("NO_SHOW_GRACE_SECONDS", 1800),
		NoShowInterval:          readDurationSeconds("NO_SHOW_SCAN_INTERVAL_SECONDS", 60),
		RateLimitPerMinute:      readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:          readInt("RATE_LIMIT_BURST", 30),
		PhoneRateLimitPerMinute: readInt("PHONE_RATE_LIMIT_PER_MIN", 20),
		PhoneRateLimitBurst:     readInt("PHONE_RATE_LIMIT_BURST", 5),
		RedisURL:                os.Getenv("REDIS_URL"),
		RedisChannel:            os.Getenv("REDIS_CHANNEL"),
		AMQPURL:                 os.Getenv("AMQP_URL"),
		AMQPExchange:            os.Getenv("AMQP_EXCHANGE"),
		SMSProvider:             os.Getenv("SMS_PROVIDER"),
		SMSWebhookURL:           os.Getenv("SMS_WEBHOOK_URL"),
		SMSWebhookToken:         os.Getenv("SMS_WEBHOOK_TOKEN"),
		SMSSenderID:             readString("SMS_SENDER_ID", "BraidsBar"),
		LogLevel:                strings.ToLower(readString("LOG_LEVEL", "info")),
		LogFormat:               strings.ToLower(readString("LOG_FORMAT", "json")),
		OTLPEndpoint:            os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPInsecure:            readBool("OTEL_EXPORTER_OTLP_INSECURE", false),
	}

	if err := validation.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc
	return cfg, nil
}

func readString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
