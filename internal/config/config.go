package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	DatabaseURL    string
	Port           string
	AllowedOrigins []string
	// JWTSecret enables bearer/cookie authentication on the API when set.
	JWTSecret string
	LogFormat string
	LogLevel  string

	OpenAIAPIKey string
	OpenAIModel  string

	// APIURL and APIToken point the console at a running purchasing API.
	APIURL    string
	APIToken  string
	CreatedBy string
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		DatabaseURL:    k.String("DATABASE_URL"),
		Port:           valueOrDefault(k.String("SERVER_PORT"), "8080"),
		AllowedOrigins: splitAndTrim(valueOrDefault(k.String("ALLOWED_ORIGINS"), "http://localhost:8080")),
		JWTSecret:      strings.TrimSpace(k.String("JWT_SECRET")),
		LogFormat:      valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:       valueOrDefault(k.String("LOG_LEVEL"), "info"),
		OpenAIAPIKey:   k.String("OPENAI_API_KEY"),
		OpenAIModel:    valueOrDefault(k.String("OPENAI_MODEL"), "gpt-4o-mini"),
		APIURL:         strings.TrimRight(valueOrDefault(k.String("PROCUREMENT_API_URL"), "http://localhost:8080"), "/"),
		APIToken:       k.String("PROCUREMENT_API_TOKEN"),
		CreatedBy:      valueOrDefault(k.String("CREATED_BY"), "console"),
	}
	return cfg, nil
}

// RequireDatabase returns an error when DATABASE_URL is missing.
func (c *Config) RequireDatabase() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("DATABASE_URL is required")
	}
	return nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
