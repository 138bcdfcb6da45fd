package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"popflow/internal/infrastructure"
)

// Entry is a single memoized result. An entry is valid only while
// now - CreatedAt < TTL; expired entries are logically dead (lookup miss)
// even while still present in the map.
type Entry struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	CreatedAt time.Time `json:"timestamp"`
}

// Stats is a snapshot of store effectiveness counters. Fields are updated
// under the store lock; the snapshot is safe to read.
type Stats struct {
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
	Expiries uint64 `json:"expiries"`
}

// Store memoizes computation results keyed by a deterministic hash of the
// canonicalized call arguments. The clock is injected so tests drive expiry
// with a fake clock instead of sleeping. There is no eviction beyond TTL
// expiry; the map grows for the process lifetime, which is acceptable for the
// small fixed key space this pipeline produces.
type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   clockwork.Clock
	entries map[string]Entry
	stats   Stats
	logger  *slog.Logger
}

// NewStore creates a memoizing store with the given TTL and clock.
func NewStore(ttl time.Duration, clock clockwork.Clock, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]Entry),
		logger:  logger.With(slog.String("component", "cache_store")),
	}
}

// KeyFor builds the canonical cache key for a call: the function name, each
// positional argument stringified, and keyword arguments sorted by name. Two
// calls with equivalent but differently ordered keyword arguments therefore
// hit the same entry.
func KeyFor(name string, args []any, kwargs map[string]any) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s(", name)
	for _, a := range args {
		fmt.Fprintf(h, "%v,", a)
	}
	keys := make([]string, 0, len(kwargs))
	for k := range kwargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%v,", k, kwargs[k])
	}
	fmt.Fprint(h, ")")
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// GetOrCompute returns the cached value for key when a valid entry exists,
// otherwise invokes fn and stores its result. An entry that fn itself wrote
// wins over the re-store: a snapshot restore seeds the slot with the original
// creation time, and re-stamping it here would grant the restored dataset a
// full fresh TTL. Concurrent misses on the same key may both compute; both
// produce the same value for the same arguments, so the last write wins
// harmlessly.
func (s *Store) GetOrCompute(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	if v, ok := s.Get(key); ok {
		return v, nil
	}

	value, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[key]; ok && s.clock.Since(entry.CreatedAt) < s.ttl {
		return entry.Value, nil
	}
	s.entries[key] = Entry{Key: key, Value: value, CreatedAt: s.clock.Now()}
	return value, nil
}

// Get returns the value for key if a live entry exists.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		s.stats.Misses++
		infrastructure.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	if s.clock.Since(entry.CreatedAt) >= s.ttl {
		s.stats.Expiries++
		infrastructure.CacheLookups.WithLabelValues("expired").Inc()
		return nil, false
	}
	s.stats.Hits++
	infrastructure.CacheLookups.WithLabelValues("hit").Inc()
	return entry.Value, true
}

// Put stores a value under key, overwriting any previous entry.
func (s *Store) Put(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = Entry{Key: key, Value: value, CreatedAt: s.clock.Now()}
}

// Seed inserts an entry with an explicit creation time. Used when restoring
// a disk snapshot so its remaining TTL is honored.
func (s *Store) Seed(key string, value any, createdAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = Entry{Key: key, Value: value, CreatedAt: createdAt}
}

// Invalidate drops an entry, forcing the next lookup to recompute.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Stats returns a snapshot of the hit/miss counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Len returns the number of entries, live or expired.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
