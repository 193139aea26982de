package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	ClientURL   string
	DatabaseURL string
	SQLitePath  string
	RedisURL    string

	// Generation service
	GenAIBaseURL string
	GenAIKey     string
	GenAIModel   string
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Env:          getEnv("ENV", "development"),
		ClientURL:    getEnv("CLIENT_URL", "http://localhost:5173"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		SQLitePath:   os.Getenv("SQLITE_PATH"),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379"),
		GenAIBaseURL: getEnv("GENAI_API_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GenAIKey:     os.Getenv("GENAI_API_KEY"),
		GenAIModel:   getEnv("GENAI_MODEL", "gemini-1.5-flash"),
	}

	// In production, require the shared bus and a durable store
	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if os.Getenv("REDIS_URL") == "" {
			panic("REDIS_URL is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
