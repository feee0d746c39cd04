// File: internal/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort   string
	JWTSecretKey string
	DatabasePath string

	// Generation backend (OpenAI-compatible gateway).
	GatewayAPIKey  string
	GatewayBaseURL string
	DefaultModel   string
	TitleModel     string

	// Resumable stream backend: "redis", "memory" or "off".
	StreamBackend string
	RedisURL      string

	// Turn budget and generation loop bounds.
	TurnTimeout  time.Duration
	MaxTurnSteps int

	// Daily message quotas by identity class.
	GuestMessagesPerDay   int
	RegularMessagesPerDay int

	Environment string
}

// Load reads configuration from environment variables or .env file.
func Load() *Config {
	env := os.Getenv("ENV")
	if strings.ToLower(env) != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	cfg := &Config{
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		JWTSecretKey:          getEnv("JWT_SECRET_KEY", ""),
		DatabasePath:          getEnv("DATABASE_PATH", "calyra.db"),
		GatewayAPIKey:         getEnv("GATEWAY_API_KEY", ""),
		GatewayBaseURL:        getEnv("GATEWAY_BASE_URL", ""),
		DefaultModel:          getEnv("DEFAULT_CHAT_MODEL", "gpt-4o-mini"),
		TitleModel:            getEnv("TITLE_MODEL", "gpt-4o-mini"),
		StreamBackend:         getEnv("STREAM_BACKEND", "memory"),
		RedisURL:              getEnv("REDIS_URL", ""),
		TurnTimeout:           getEnvAsDuration("TURN_TIMEOUT", 90*time.Second),
		MaxTurnSteps:          getEnvAsInt("MAX_TURN_STEPS", 5),
		GuestMessagesPerDay:   getEnvAsInt("GUEST_MESSAGES_PER_DAY", 20),
		RegularMessagesPerDay: getEnvAsInt("REGULAR_MESSAGES_PER_DAY", 100),
		Environment:           env,
	}

	// Validation for production environments
	if strings.ToLower(env) == "production" {
		missing := []string{}
		if cfg.JWTSecretKey == "" {
			missing = append(missing, "JWT_SECRET_KEY")
		}
		if cfg.GatewayAPIKey == "" {
			missing = append(missing, "GATEWAY_API_KEY")
		}
		if cfg.StreamBackend == "redis" && cfg.RedisURL == "" {
			missing = append(missing, "REDIS_URL")
		}
		if len(missing) > 0 {
			log.Fatalf("Missing required production environment variables: %v", missing)
		}
	}

	return cfg
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an env var as an integer, with a fallback.
func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as integer. Using default value.", key)
		return defaultValue
	}
	return intValue
}

// getEnvAsDuration gets an env var as a duration, with a fallback.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as duration. Using default value.", key)
		return defaultValue
	}
	return d
}
