package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	DBConnectRetries int
	GithubAPIToken   string
	GithubUsername   string
	GitlabAPIToken   string
	GitlabUserID     string
	ResyncInterval   time.Duration
	SyncTimeout      time.Duration
	DevMode          bool
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:             getEnv("PORT", "8080"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "pollux"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "pollux"),
		DBConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 5),
		GithubAPIToken:   getEnv("GITHUB_API_TOKEN", ""),
		GithubUsername:   getEnv("GITHUB_USERNAME", ""),
		GitlabAPIToken:   getEnv("GITLAB_API_TOKEN", ""),
		GitlabUserID:     getEnv("GITLAB_USER_ID", ""),
		ResyncInterval:   getEnvDuration("RESYNC_INTERVAL", time.Hour),
		SyncTimeout:      getEnvDuration("SYNC_TIMEOUT", 5*time.Minute),
		DevMode:          getEnvBool("DEV_MODE", false),
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
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
