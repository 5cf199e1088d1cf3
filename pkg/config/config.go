package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Weights are the composite schedule score weights in percent.
type Weights struct {
	Coverage     float64
	Cost         float64
	Satisfaction float64
	Compliance   float64
}

// Config holds every environment driven setting of the service.
type Config struct {
	Port      string
	GinMode   string
	LogLevel  string
	LogFormat string

	DatabaseDriver string
	DatabaseURL    string
	DataPath       string

	JWTSecret       string
	APIMasterSecret string
	AdminUsername   string
	AdminPassword   string

	RedisAddr        string
	ForecastCacheTTL time.Duration

	Neo4jURI      string
	Neo4jUsername string
	Neo4jPassword string
	Neo4jDatabase string

	PerformanceCron string

	OptimizerDeadline  time.Duration
	OptimizerSwapLimit int
	Weights            Weights
}

// LoadDotEnv loads the first .env found in the working directory or its parents.
func LoadDotEnv() {
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// Load reads configuration from the process environment, applying defaults.
// Every malformed value is reported in a single error.
func Load() (Config, error) {
	cfg := Config{
		Port:               getEnvOrDefault("PORT", "8000"),
		GinMode:            os.Getenv("GIN_MODE"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvOrDefault("LOG_FORMAT", "json"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DataPath:           getEnvOrDefault("DATA_PATH", "scheduler.db"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		APIMasterSecret:    os.Getenv("API_MASTER_SECRET"),
		AdminUsername:      getEnvOrDefault("ADMIN_USERNAME", "admin"),
		AdminPassword:      getEnvOrDefault("ADMIN_PASSWORD", "admin123"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		ForecastCacheTTL:   time.Hour,
		Neo4jURI:           os.Getenv("NEO4J_URI"),
		Neo4jUsername:      getEnvOrDefault("NEO4J_USERNAME", "neo4j"),
		Neo4jPassword:      os.Getenv("NEO4J_PASSWORD"),
		Neo4jDatabase:      getEnvOrDefault("NEO4J_DATABASE", "neo4j"),
		PerformanceCron:    "0 3 * * *",
		OptimizerDeadline:  5 * time.Second,
		OptimizerSwapLimit: 6,
		Weights:            Weights{Coverage: 40, Cost: 30, Satisfaction: 20, Compliance: 10},
	}

	var invalid []string

	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(os.Getenv("DATABASE_DRIVER")))
	switch cfg.DatabaseDriver {
	case "":
		cfg.DatabaseDriver = "sqlite"
		if cfg.DatabaseURL != "" {
			cfg.DatabaseDriver = "postgres"
		}
	case "postgres", "mysql", "sqlite":
	default:
		invalid = append(invalid, "DATABASE_DRIVER")
	}
	if cfg.DatabaseDriver != "sqlite" && cfg.DatabaseURL == "" && cfg.DatabaseDriver != "" {
		invalid = append(invalid, "DATABASE_URL")
	}

	if v, ok := os.LookupEnv("PERFORMANCE_CRON"); ok {
		cfg.PerformanceCron = strings.TrimSpace(v)
	}

	parseDuration(&invalid, "FORECAST_CACHE_TTL", &cfg.ForecastCacheTTL)
	parseDuration(&invalid, "OPTIMIZER_DEADLINE", &cfg.OptimizerDeadline)

	if v := strings.TrimSpace(os.Getenv("OPTIMIZER_SWAP_LIMIT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			invalid = append(invalid, "OPTIMIZER_SWAP_LIMIT")
		} else {
			cfg.OptimizerSwapLimit = n
		}
	}

	parseWeight(&invalid, "SCHEDULE_WEIGHT_COVERAGE", &cfg.Weights.Coverage)
	parseWeight(&invalid, "SCHEDULE_WEIGHT_COST", &cfg.Weights.Cost)
	parseWeight(&invalid, "SCHEDULE_WEIGHT_SATISFACTION", &cfg.Weights.Satisfaction)
	parseWeight(&invalid, "SCHEDULE_WEIGHT_COMPLIANCE", &cfg.Weights.Compliance)

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

func parseDuration(invalid *[]string, key string, dst *time.Duration) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		*invalid = append(*invalid, key)
		return
	}
	*dst = d
}

func parseWeight(invalid *[]string, key string, dst *float64) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	w, err := strconv.ParseFloat(v, 64)
	if err != nil || w < 0 {
		*invalid = append(*invalid, key)
		return
	}
	*dst = w
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
