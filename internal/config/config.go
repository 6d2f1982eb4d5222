package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs, read from the environment.
// A .env file in the working directory is loaded first if present.
type Config struct {
	Addr         string   // HTTP listen address
	DatabaseURL  string   // Postgres DSN; empty selects the in-memory store
	KafkaBrokers []string // empty disables notifications
	KafkaTopic   string
}

// Load reads the configuration from the environment.
func Load() Config {
	// Missing .env is fine, the environment may be set directly.
	_ = godotenv.Load()

	return Config{
		Addr:         getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		KafkaBrokers: split(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getenv("KAFKA_TOPIC", "operation_completed"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func split(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
