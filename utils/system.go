package utils

import (
	"strconv"

	"CatalogWatcher/internal/logger"

	"github.com/shirou/gopsutil/v3/cpu"
)

const (
	fallbackWorkers = 2
	maxWorkers      = 16
)

// GetOptimalWorkerCount determines the number of fetch workers based on
// config and system resources. A positive integer is used as-is; "auto"
// (or anything unparseable) means half the logical cores, clamped to [1, 16].
func GetOptimalWorkerCount(configValue string, log logger.Logger) int {
	if manual, err := strconv.Atoi(configValue); err == nil && manual > 0 {
		log.Debug("Using configured worker count", logger.Int("workers", manual))
		return manual
	}
	if configValue != "auto" {
		log.Warn("Invalid workers value, using auto", logger.String("workers", configValue))
	}

	cores, err := cpu.Counts(true)
	if err != nil {
		log.Warn("Could not detect CPU cores", logger.Error(err), logger.Int("workers", fallbackWorkers))
		return fallbackWorkers
	}

	n := cores / 2
	if n < 1 {
		n = 1
	}
	if n > maxWorkers {
		n = maxWorkers
	}
	log.Debug("Worker count from CPU cores", logger.Int("cores", cores), logger.Int("workers", n))
	return n
}
