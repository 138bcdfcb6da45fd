// Package services holds the application services wired between the HTTP
// transport and the data pipeline.
package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"

	"popflow/internal/cache"
	"popflow/internal/config"
	apperrors "popflow/internal/errors"
	"popflow/internal/extractor"
	"popflow/internal/importer"
	"popflow/internal/reconcile"
	"popflow/internal/synthetic"
	"popflow/pkg/contracts/domain"
)

// DataService owns the population dataset lifecycle: scrape, import, merge,
// cache, persist. All read paths go through the memoizing store so repeated
// dashboard requests within the TTL never re-scrape.
type DataService struct {
	cfg       *config.Config
	store     *cache.Store
	snapshot  *cache.Snapshot
	extractor *extractor.Extractor
	logger    *slog.Logger

	mu      sync.RWMutex
	reports []domain.FetchReport
}

// NewDataService builds the service and its pipeline from configuration.
// The clock is shared with the cache so tests control expiry.
func NewDataService(cfg *config.Config, clock clockwork.Clock, logger *slog.Logger) *DataService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("service", "data"))

	fetcher := extractor.NewFetcher(extractor.FetcherConfig{
		Timeout:           cfg.Scraper.RequestTimeout,
		RequestsPerSecond: cfg.Scraper.RequestsPerSecond,
		Retries:           cfg.Scraper.Retries,
	}, logger)

	snapshotDir := ""
	if cfg.Cache.Persist {
		snapshotDir = cfg.Paths.CacheDir
	}

	return &DataService{
		cfg:       cfg,
		store:     cache.NewStore(cfg.TTL(), clock, logger),
		snapshot:  cache.NewSnapshot(snapshotDir, cfg.TTL(), clock, logger),
		extractor: extractor.New(fetcher, clock, logger),
		logger:    logger,
	}
}

// datasetKey identifies the current pipeline configuration. Toggling
// synthetic mode, the upload file, or any source URL changes the key, so
// stale entries for the previous configuration can never be served.
func (s *DataService) datasetKey() string {
	return cache.KeyFor("scrape_population_data", nil, map[string]any{
		"synthetic":   s.cfg.Scraper.Synthetic,
		"upload_file": s.cfg.Scraper.UploadFile,
		"sources":     strings.Join(s.cfg.Scraper.Sources, "|"),
	})
}

// Dataset returns the reconciled dataset, computing it at most once per TTL
// window. The disk snapshot, when present and fresh, is preferred over a
// full re-scrape after restart.
func (s *DataService) Dataset(ctx context.Context) (*domain.Dataset, error) {
	return s.dataset(ctx, false)
}

// Refresh drops the cached dataset and rebuilds it from the live sources.
// The disk snapshot is bypassed, otherwise a still-fresh snapshot would be
// served right back and no re-scrape would happen.
func (s *DataService) Refresh(ctx context.Context) (*domain.Dataset, error) {
	s.store.Invalidate(s.datasetKey())
	return s.dataset(ctx, true)
}

func (s *DataService) dataset(ctx context.Context, force bool) (*domain.Dataset, error) {
	key := s.datasetKey()
	value, err := s.store.GetOrCompute(ctx, key, func(ctx context.Context) (any, error) {
		if !force {
			if ds, createdAt, ok := s.snapshot.Load(key); ok {
				s.store.Seed(key, ds, createdAt)
				return ds, nil
			}
		}
		return s.build(ctx, key)
	})
	if err != nil {
		return nil, err
	}

	ds, ok := value.(*domain.Dataset)
	if !ok {
		return nil, fmt.Errorf("unexpected cache value type %T", value)
	}
	if ds.Empty() {
		return nil, apperrors.ErrDatasetEmpty
	}
	return ds, nil
}

// sourceURLs expands year-templated entries in the configured source list.
// A source containing "{year}" fans out into one URL per year of the
// synthetic span, most recent first; plain URLs pass through unchanged.
func (s *DataService) sourceURLs() []string {
	var urls []string
	for _, src := range s.cfg.Scraper.Sources {
		if strings.Contains(src, "{year}") {
			urls = append(urls, extractor.YearSources(src, synthetic.FirstYear, synthetic.LastYear)...)
			continue
		}
		urls = append(urls, src)
	}
	return urls
}

// build runs the full pipeline: collect observations from every configured
// origin, merge them, persist the snapshot.
func (s *DataService) build(ctx context.Context, key string) (*domain.Dataset, error) {
	var (
		observations []domain.Observation
		reports      []domain.FetchReport
	)

	if s.cfg.Scraper.Synthetic {
		observations = synthetic.Generate(nil, 0, 0)
		s.logger.Info("using synthetic dataset",
			slog.Int("observations", len(observations)))
	} else {
		observations, reports = s.extractor.ExtractAll(ctx, s.sourceURLs(), s.cfg.Scraper.Concurrency)
	}

	if uploaded := s.readUpload(); len(uploaded) > 0 {
		observations = append(observations, uploaded...)
	}

	// Last resort when every source came back empty, matching the scraper
	// CLI behavior: a dashboard with demo data beats an error page.
	if len(observations) == 0 {
		s.logger.Warn("no observations from any source, falling back to synthetic data")
		observations = synthetic.Generate(nil, 0, 0)
	}

	ds := reconcile.Merge(observations, s.logger)

	s.mu.Lock()
	s.reports = reports
	s.mu.Unlock()

	if err := s.snapshot.Save(key, ds); err != nil {
		s.logger.Warn("snapshot save failed", slog.String("error", err.Error()))
	}
	return ds, nil
}

// readUpload loads the configured spreadsheet when one is present. A missing
// file is the normal case, not an error.
func (s *DataService) readUpload() []domain.Observation {
	path := s.cfg.UploadPath()
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	obs, err := importer.ReadFile(path, s.logger)
	if err != nil {
		s.logger.Warn("uploaded spreadsheet unreadable",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil
	}
	s.logger.Info("merged uploaded spreadsheet",
		slog.String("path", path),
		slog.Int("observations", len(obs)))
	return obs
}

// SaveUpload stores an uploaded workbook as the configured spreadsheet and
// rebuilds the dataset so the upload takes effect immediately.
func (s *DataService) SaveUpload(ctx context.Context, r io.Reader) (*domain.Dataset, error) {
	if err := s.cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("prepare data directory: %w", err)
	}

	path := s.cfg.UploadPath()
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return nil, fmt.Errorf("write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close upload file: %w", err)
	}

	s.logger.Info("stored uploaded spreadsheet", slog.String("path", path))
	return s.Refresh(ctx)
}

// FetchReports returns the source outcomes from the most recent scrape.
// Empty while serving cached, snapshot-restored, or synthetic data.
func (s *DataService) FetchReports() []domain.FetchReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.FetchReport(nil), s.reports...)
}

// CacheStats exposes the memoization counters for the health endpoint.
func (s *DataService) CacheStats() cache.Stats {
	return s.store.Stats()
}

// SnapshotEnabled reports whether disk persistence is still active.
func (s *DataService) SnapshotEnabled() bool {
	return s.snapshot.Enabled()
}
