package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string
	CRDBDSN         string
	MongoURI        string
	RedisAddr       string
	RabbitURL       string
	HoldTTL         time.Duration
	OrderTTL        time.Duration
	MaxSeatsPerHold int
	CacheTTL        time.Duration
	OTLPEndpoint    string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:        envOr("HTTP_ADDR", ":8080"),
		CRDBDSN:         os.Getenv("CRDB_DSN"),
		MongoURI:        os.Getenv("MONGO_URI"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RabbitURL:       os.Getenv("RABBIT_URL"),
		HoldTTL:         durationOr("HOLD_TTL", 5*time.Minute),
		OrderTTL:        durationOr("ORDER_TTL", 15*time.Minute),
		MaxSeatsPerHold: intOr("MAX_SEATS_PER_HOLD", 10),
		CacheTTL:        durationOr("AVAILABILITY_CACHE_TTL", 3*time.Second),
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationOr(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func intOr(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
