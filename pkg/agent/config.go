package agent

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultScanIntervalMs    = 300000
	minScanIntervalMs        = 10000
	maxScanIntervalMs        = 3600000
	defaultMaxGenerations    = 5
	defaultMaxDispatches     = 5
	defaultSyncLookbackHours = 24
)

// SchedulerConfig controls the cycle cadence and per-cycle work budgets.
type SchedulerConfig struct {
	Enabled                bool
	ScanInterval           time.Duration
	MaxGenerationsPerCycle int
	MaxDispatchPerCycle    int
	SyncLookback           time.Duration
}

// NewSchedulerConfig builds the scheduler configuration from environment
// variables, falling back to defaults for anything unset.
func NewSchedulerConfig() (*SchedulerConfig, error) {
	cfg := &SchedulerConfig{
		Enabled:                getEnvBool("AUTOREPLY_ENABLED", true),
		ScanInterval:           time.Duration(getEnvInt("AUTOREPLY_SCAN_INTERVAL_MS", defaultScanIntervalMs)) * time.Millisecond,
		MaxGenerationsPerCycle: getEnvInt("AUTOREPLY_MAX_GENERATIONS_PER_CYCLE", defaultMaxGenerations),
		MaxDispatchPerCycle:    getEnvInt("AUTOREPLY_MAX_DISPATCH_PER_CYCLE", defaultMaxDispatches),
		SyncLookback:           time.Duration(getEnvInt("AUTOREPLY_SYNC_LOOKBACK_HOURS", defaultSyncLookbackHours)) * time.Hour,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate bounds-checks the configuration.
func (c *SchedulerConfig) Validate() error {
	intervalMs := int(c.ScanInterval / time.Millisecond)
	if intervalMs < minScanIntervalMs {
		return fmt.Errorf("scan interval %dms is below the minimum of %dms", intervalMs, minScanIntervalMs)
	}
	if intervalMs > maxScanIntervalMs {
		return fmt.Errorf("scan interval %dms is above the maximum of %dms", intervalMs, maxScanIntervalMs)
	}
	if c.MaxGenerationsPerCycle < 1 {
		return fmt.Errorf("max generations per cycle must be at least 1, got %d", c.MaxGenerationsPerCycle)
	}
	if c.MaxDispatchPerCycle < 1 {
		return fmt.Errorf("max dispatches per cycle must be at least 1, got %d", c.MaxDispatchPerCycle)
	}
	if c.SyncLookback <= 0 {
		return fmt.Errorf("sync lookback must be positive, got %s", c.SyncLookback)
	}
	return nil
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
