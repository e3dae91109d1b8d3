package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration
type Config struct {
	DatasetPath      string `env:"DATASET_PATH" envDefault:"covid_data.xlsx"`
	DatasetSheet     string `env:"DATASET_SHEET" envDefault:""` // empty = first sheet
	DatabaseURL      string `env:"DATABASE_URL" envDefault:""`  // when set, load from Postgres instead of the file
	ListenAddr       string `env:"LISTEN_ADDR" envDefault:":8080"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	MovingAvgWindow  int    `env:"MOVING_AVG_WINDOW" envDefault:"7"`
	MinHorizonDays   int    `env:"MIN_HORIZON_DAYS" envDefault:"7"`
	MaxHorizonDays   int    `env:"MAX_HORIZON_DAYS" envDefault:"90"`
	DefaultHorizon   int    `env:"DEFAULT_HORIZON_DAYS" envDefault:"30"`
	DefaultRangeDays int    `env:"DEFAULT_RANGE_DAYS" envDefault:"365"`
	ForecastCacheTTL int    `env:"FORECAST_CACHE_TTL" envDefault:"30"` // minutes
	RequestTimeout   int    `env:"REQUEST_TIMEOUT" envDefault:"30"`    // seconds
	RateLimitRPS     int    `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst   int    `env:"RATE_LIMIT_BURST" envDefault:"40"`
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.DatasetPath = getEnvWithDefault("DATASET_PATH", "covid_data.xlsx")
	cfg.DatasetSheet = os.Getenv("DATASET_SHEET")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.ListenAddr = getEnvWithDefault("LISTEN_ADDR", ":8080")
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.MovingAvgWindow = getEnvIntWithDefault("MOVING_AVG_WINDOW", 7)
	cfg.MinHorizonDays = getEnvIntWithDefault("MIN_HORIZON_DAYS", 7)
	cfg.MaxHorizonDays = getEnvIntWithDefault("MAX_HORIZON_DAYS", 90)
	cfg.DefaultHorizon = getEnvIntWithDefault("DEFAULT_HORIZON_DAYS", 30)
	cfg.DefaultRangeDays = getEnvIntWithDefault("DEFAULT_RANGE_DAYS", 365)
	cfg.ForecastCacheTTL = getEnvIntWithDefault("FORECAST_CACHE_TTL", 30)
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 30)
	cfg.RateLimitRPS = getEnvIntWithDefault("RATE_LIMIT_RPS", 20)
	cfg.RateLimitBurst = getEnvIntWithDefault("RATE_LIMIT_BURST", 40)

	return &cfg, nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
