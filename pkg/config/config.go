package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	FirebaseCredentials string

	ProcessorInterval   time.Duration
	ProcessorBatchSize  int
	ProcessorMaxRetries int
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=carworld port=5432 sslmode=disable"),
		RedisURL:            getEnv("REDIS_URL", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
		ProcessorInterval:   getEnvDuration("NOTIFICATION_PROCESSOR_INTERVAL", 5*time.Minute),
		ProcessorBatchSize:  getEnvInt("NOTIFICATION_PROCESSOR_BATCH_SIZE", 50),
		ProcessorMaxRetries: getEnvInt("NOTIFICATION_PROCESSOR_MAX_RETRIES", 3),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
