package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr         string
	MongoURI         string
	MongoDB          string
	InventoryBaseURL string
	InventoryTimeout time.Duration
	RedisAddr        string
	RabbitURL        string
	HoldTTL          time.Duration
	SweepInterval    time.Duration
	OTLPEndpoint     string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "reservations"),
		InventoryBaseURL: os.Getenv("INVENTORY_BASE_URL"),
		InventoryTimeout: getDuration("INVENTORY_TIMEOUT", 10*time.Second),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RabbitURL:        os.Getenv("RABBIT_URL"),
		HoldTTL:          getDuration("HOLD_TTL", 5*time.Minute),
		SweepInterval:    getDuration("SWEEP_INTERVAL", time.Minute),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
