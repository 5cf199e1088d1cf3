package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "DATABASE_DRIVER", "PORT", "OPTIMIZER_DEADLINE", "SCHEDULE_WEIGHT_COST"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.DatabaseDriver != "sqlite" {
		t.Errorf("Expected sqlite driver without DATABASE_URL, got %s", cfg.DatabaseDriver)
	}
	if cfg.Port != "8000" {
		t.Errorf("Expected default port 8000, got %s", cfg.Port)
	}
	if cfg.OptimizerDeadline != 5*time.Second {
		t.Errorf("Expected 5s deadline, got %v", cfg.OptimizerDeadline)
	}
	if cfg.Weights.Coverage != 40 || cfg.Weights.Cost != 30 || cfg.Weights.Satisfaction != 20 || cfg.Weights.Compliance != 10 {
		t.Errorf("Unexpected default weights %+v", cfg.Weights)
	}
}

func TestLoadInfersPostgres(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.DatabaseDriver != "postgres" {
		t.Errorf("Expected postgres driver, got %s", cfg.DatabaseDriver)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("OPTIMIZER_DEADLINE", "250ms")
	t.Setenv("OPTIMIZER_SWAP_LIMIT", "2")
	t.Setenv("SCHEDULE_WEIGHT_COST", "15")
	t.Setenv("PERFORMANCE_CRON", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.OptimizerDeadline != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %v", cfg.OptimizerDeadline)
	}
	if cfg.OptimizerSwapLimit != 2 {
		t.Errorf("Expected swap limit 2, got %d", cfg.OptimizerSwapLimit)
	}
	if cfg.Weights.Cost != 15 {
		t.Errorf("Expected cost weight 15, got %v", cfg.Weights.Cost)
	}
	if cfg.PerformanceCron != "" {
		t.Errorf("Expected empty cron to disable the job, got %q", cfg.PerformanceCron)
	}
}

func TestLoadReportsAllInvalidKeys(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_DRIVER", "oracle")
	t.Setenv("OPTIMIZER_DEADLINE", "soon")
	t.Setenv("SCHEDULE_WEIGHT_COVERAGE", "-1")

	_, err := Load()
	if err == nil {
		t.Fatalf("Expected an error for invalid values")
	}
	for _, key := range []string{"DATABASE_DRIVER", "OPTIMIZER_DEADLINE", "SCHEDULE_WEIGHT_COVERAGE"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("Expected error to mention %s, got %v", key, err)
		}
	}
}
