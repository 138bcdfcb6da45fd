// Package http is the chi-based HTTP transport for the dashboard API.
package http

import (
	"context"
	"io"

	"popflow/internal/cache"
	"popflow/internal/services"
	"popflow/pkg/contracts/domain"
)

// DataProvider is the data pipeline surface the handlers depend on. Tests
// substitute a stub.
type DataProvider interface {
	Dataset(ctx context.Context) (*domain.Dataset, error)
	Refresh(ctx context.Context) (*domain.Dataset, error)
	SaveUpload(ctx context.Context, r io.Reader) (*domain.Dataset, error)
	FetchReports() []domain.FetchReport
	CacheStats() cache.Stats
}

// HealthChecker reports process health.
type HealthChecker interface {
	Check(ctx context.Context) services.HealthStatus
}
