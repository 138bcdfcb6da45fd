package services

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"popflow/internal/cache"
	"popflow/internal/config"
)

// HealthStatus is the payload of the health endpoint.
type HealthStatus struct {
	Status          string      `json:"status"`
	Version         string      `json:"version"`
	UptimeSeconds   int64       `json:"uptime_seconds"`
	Sources         int         `json:"sources"`
	SyntheticMode   bool        `json:"synthetic_mode"`
	SnapshotEnabled bool        `json:"snapshot_enabled"`
	Cache           cache.Stats `json:"cache"`
}

// HealthService reports process liveness and pipeline state.
type HealthService struct {
	cfg     *config.Config
	data    *DataService
	clock   clockwork.Clock
	started time.Time
	version string
}

// NewHealthService creates a health service bound to the data pipeline.
func NewHealthService(cfg *config.Config, data *DataService, clock clockwork.Clock, version string) *HealthService {
	return &HealthService{
		cfg:     cfg,
		data:    data,
		clock:   clock,
		started: clock.Now(),
		version: version,
	}
}

// Check returns the current health snapshot. It never fails: the process
// answering at all is the liveness signal.
func (h *HealthService) Check(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:          "healthy",
		Version:         h.version,
		UptimeSeconds:   int64(h.clock.Since(h.started).Seconds()),
		Sources:         len(h.cfg.Scraper.Sources),
		SyntheticMode:   h.cfg.Scraper.Synthetic,
		SnapshotEnabled: h.data.SnapshotEnabled(),
		Cache:           h.data.CacheStats(),
	}
}
