package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics exposed on /metrics. Counters are registered on the
// default registry so promhttp.Handler picks them up without extra wiring.
var (
	// FetchTotal counts source page fetches by outcome (ok, error).
	FetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "popflow",
		Subsystem: "scraper",
		Name:      "fetch_total",
		Help:      "Source page fetches by outcome.",
	}, []string{"outcome"})

	// ObservationsExtracted counts observations produced by the extractor,
	// labelled by the pattern that matched.
	ObservationsExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "popflow",
		Subsystem: "scraper",
		Name:      "observations_extracted_total",
		Help:      "Observations extracted, by matching pattern.",
	}, []string{"pattern"})

	// CacheLookups counts memoization lookups by result (hit, miss, expired).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "popflow",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups by result.",
	}, []string{"result"})

	// ReconcileRuns counts reconciliation folds.
	ReconcileRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "popflow",
		Subsystem: "reconcile",
		Name:      "runs_total",
		Help:      "Reconciliation runs.",
	})

	// DatasetRows tracks the size of the current reconciled dataset.
	DatasetRows = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "popflow",
		Subsystem: "reconcile",
		Name:      "dataset_rows",
		Help:      "Rows in the current reconciled dataset.",
	})
)
