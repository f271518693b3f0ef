/*
Package config loads application configuration from the environment.

A .env file in the working directory is read if present (godotenv); real
environment variables take precedence. Every key has a default so the
server runs with zero configuration against a local database.
*/
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port          string
	DBPath        string
	LogLevel      string
	SweepSchedule string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPSender   string
}

// New loads configuration from .env (if present) and the environment.
func New() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:          getEnv("PORT", "8080"),
		DBPath:        getEnv("DB_PATH", "rent.db"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		SweepSchedule: getEnv("SWEEP_SCHEDULE", "@hourly"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPSender:   getEnv("SMTP_SENDER_EMAIL", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
