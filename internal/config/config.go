package config

import (
	"os"
	"strconv"
	"time"

	"tamv/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	JWTSecret   string

	// Redis (пусто - лимитер в памяти, без кэша лидерборда)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Rate limits
	RateLimit        int
	RateWindow       int
	EconomyRateRPS   float64
	EconomyRateBurst int

	// Text-generation collaborator
	AssistantURL    string
	AssistantAPIKey string
	AssistantModel  string
	AssistantPrompt string

	LogLevel string
	LogJSON  bool
	LogFile  string

	// Background pollers
	CompoundInterval time.Duration
	AdvanceInterval  time.Duration

	EconomyConfigPath string
	Economy           *Economy
}

// Загрузка конфига из env
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	econPath := os.Getenv("ECONOMY_CONFIG")
	econ, err := LoadEconomy(econPath)
	if err != nil {
		logger.Fatal("invalid economy config", "path", econPath, "error", err)
	}

	return &Config{
		AppPort:           port,
		DatabaseURL:       dbURL,
		JWTSecret:         jwtSecret,
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           envInt("REDIS_DB", 0),
		RateLimit:         envInt("RATE_LIMIT", 60),  // макс запросов за ->
		RateWindow:        envInt("RATE_WINDOW", 60), // -> 60 секунд
		EconomyRateRPS:    envFloat("ECONOMY_RATE_RPS", 5),
		EconomyRateBurst:  envInt("ECONOMY_RATE_BURST", 10),
		AssistantURL:      os.Getenv("ASSISTANT_URL"),
		AssistantAPIKey:   os.Getenv("ASSISTANT_API_KEY"),
		AssistantModel:    envString("ASSISTANT_MODEL", "default"),
		AssistantPrompt:   os.Getenv("ASSISTANT_SYSTEM_PROMPT"),
		LogLevel:          envString("LOG_LEVEL", "info"),
		LogJSON:           os.Getenv("LOG_JSON") == "true",
		LogFile:           os.Getenv("LOG_FILE"),
		CompoundInterval:  envDuration("COMPOUND_INTERVAL", 10*time.Minute),
		AdvanceInterval:   envDuration("ADVANCE_INTERVAL", time.Minute),
		EconomyConfigPath: econPath,
		Economy:           econ,
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
		logger.Warn("ignoring invalid env value", "key", key, "value", v)
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
		logger.Warn("ignoring invalid env value", "key", key, "value", v)
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		logger.Warn("ignoring invalid env value", "key", key, "value", v)
	}
	return def
}
