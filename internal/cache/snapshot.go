package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	apperrors "popflow/internal/errors"
	"popflow/pkg/contracts/domain"
)

const (
	datasetFile  = "population_data.json"
	metadataFile = "metadata.json"
)

// metadata mirrors the on-disk cache metadata format.
type metadata struct {
	Key         string `json:"key"`
	LastUpdated int64  `json:"timestamp"`
	RecordCount int    `json:"value"`
}

// Snapshot persists the reconciled dataset under the cache directory so it
// survives process restarts. All writes are best-effort: on a read-only
// filesystem (common on cloud deployments) the snapshot silently disables
// itself and the pipeline runs memory-only for the remainder of the process.
type Snapshot struct {
	dir     string
	ttl     time.Duration
	clock   clockwork.Clock
	logger  *slog.Logger
	enabled bool
}

// NewSnapshot creates a dataset snapshot rooted at dir. A snapshot with an
// empty dir is permanently disabled.
func NewSnapshot(dir string, ttl time.Duration, clock clockwork.Clock, logger *slog.Logger) *Snapshot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Snapshot{
		dir:     dir,
		ttl:     ttl,
		clock:   clock,
		logger:  logger.With(slog.String("component", "cache_snapshot")),
		enabled: dir != "",
	}
}

// Enabled reports whether disk persistence is still active.
func (s *Snapshot) Enabled() bool { return s.enabled }

// Save writes the dataset and its metadata. Failures disable persistence and
// return ErrCacheWrite for callers that care; most callers log and move on.
func (s *Snapshot) Save(key string, ds *domain.Dataset) error {
	if !s.enabled {
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return s.disable(err)
	}

	data, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("marshal dataset: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, datasetFile), data, 0o644); err != nil {
		return s.disable(err)
	}

	meta := metadata{
		Key:         key,
		LastUpdated: s.clock.Now().Unix(),
		RecordCount: ds.Len(),
	}
	metaData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, metadataFile), metaData, 0o644); err != nil {
		return s.disable(err)
	}

	s.logger.Info("dataset snapshot saved",
		slog.String("dir", s.dir),
		slog.Int("records", ds.Len()))
	return nil
}

// Load returns the persisted dataset when present and not expired. A missing
// or expired snapshot is a cache miss, not an error.
func (s *Snapshot) Load(key string) (*domain.Dataset, time.Time, bool) {
	if !s.enabled {
		return nil, time.Time{}, false
	}

	metaRaw, err := os.ReadFile(filepath.Join(s.dir, metadataFile))
	if err != nil {
		return nil, time.Time{}, false
	}
	var meta metadata
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		s.logger.Warn("corrupt snapshot metadata", slog.String("error", err.Error()))
		return nil, time.Time{}, false
	}
	if meta.Key != key {
		return nil, time.Time{}, false
	}

	createdAt := time.Unix(meta.LastUpdated, 0)
	if s.clock.Since(createdAt) >= s.ttl {
		return nil, time.Time{}, false
	}

	raw, err := os.ReadFile(filepath.Join(s.dir, datasetFile))
	if err != nil {
		return nil, time.Time{}, false
	}
	var ds domain.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		s.logger.Warn("corrupt snapshot dataset", slog.String("error", err.Error()))
		return nil, time.Time{}, false
	}

	s.logger.Info("dataset snapshot loaded",
		slog.String("dir", s.dir),
		slog.Int("records", ds.Len()))
	return &ds, createdAt, true
}

// disable turns persistence off after a write failure. Expected on cloud
// deployments without a writable filesystem.
func (s *Snapshot) disable(cause error) error {
	s.enabled = false
	s.logger.Warn("cache directory unwritable, falling back to memory-only caching",
		slog.String("dir", s.dir),
		slog.String("error", cause.Error()))
	return fmt.Errorf("%w: %v", apperrors.ErrCacheWrite, cause)
}
