// internal/workers/harvest/harvest-dataflows/config.go
package harvestdataflows

import (
	"time"

	"sdmx-harvester/internal/common/config"
)

type Config struct {
	Timeout    time.Duration
	MaxRetries int
}

// ConfigFrom maps the worker section of the service config; Timeout is in
// milliseconds there.
func ConfigFrom(wcfg config.WorkerConfig) *Config {
	return &Config{
		Timeout:    config.GetDuration(wcfg.Timeout),
		MaxRetries: wcfg.MaxRetries,
	}
}
