// Package reconcile merges observations from multiple sources into a single
// dataset with exactly one observation per (city, year).
package reconcile

import (
	"log/slog"
	"sort"

	"popflow/internal/infrastructure"
	"popflow/pkg/contracts/domain"
)

// informativeness ranks observations for key conflicts. A source reporting an
// explicit non-zero change is more informative than one reporting a bare
// population count. Note the documented bias: a source that truthfully
// reports zero change for a flat city loses to any source reporting a
// non-zero change for the same key.
func informativeness(o domain.Observation) int {
	if o.HasChange() {
		return 2
	}
	return 1
}

// Merge folds observations into a reconciled dataset. The fold is
// deterministic: for each (city, year) key the first observation seen is
// retained unless a later one strictly outranks it on informativeness, in
// which case the retained entry is removed and the newcomer appended. Equal
// rank keeps the first-seen entry, so callers control ties by feeding
// higher-priority sources first (scraped pages in priority order, then
// uploaded rows). Replacement direction does not depend on arrival order:
// a non-zero-change observation survives whether it arrives before or after
// a zero-change one.
//
// Merge is idempotent: merging an already-reconciled dataset returns an
// equal dataset.
func Merge(observations []domain.Observation, logger *slog.Logger) *domain.Dataset {
	if logger == nil {
		logger = slog.Default()
	}
	infrastructure.ReconcileRuns.Inc()

	retained := make(map[domain.Key]int) // key -> index into rows
	var rows []domain.Row
	dropped := 0

	for _, obs := range observations {
		if err := obs.Validate(); err != nil {
			logger.Debug("observation rejected", slog.String("error", err.Error()))
			dropped++
			continue
		}

		key := obs.Key()
		idx, seen := retained[key]
		if !seen {
			retained[key] = len(rows)
			rows = append(rows, domain.Row{Observation: obs})
			continue
		}

		if informativeness(obs) > informativeness(rows[idx].Observation) {
			// Remove old, append new: replacement moves the key to the end
			// of the dataset order.
			rows = append(rows[:idx], rows[idx+1:]...)
			for k, i := range retained {
				if i > idx {
					retained[k] = i - 1
				}
			}
			retained[key] = len(rows)
			rows = append(rows, domain.Row{Observation: obs})
		} else {
			dropped++
		}
	}

	ds := &domain.Dataset{Rows: rows}
	Derive(ds)

	logger.Info("observations reconciled",
		slog.Int("input", len(observations)),
		slog.Int("retained", ds.Len()),
		slog.Int("dropped", dropped))
	infrastructure.DatasetRows.Set(float64(ds.Len()))
	return ds
}

// Derive recomputes the derived columns in place: growth rate, relative
// growth against the yearly mean, flow classification and per-city
// cumulative change. Called by Merge; exposed for callers that mutate rows
// directly (spreadsheet import).
func Derive(ds *domain.Dataset) {
	if ds.Empty() {
		return
	}

	// Growth rate relative to the prior-year population implied by the
	// reported change.
	for i := range ds.Rows {
		r := &ds.Rows[i]
		prior := r.Population - r.ChangeAmount
		if prior > 0 {
			r.GrowthRate = r.ChangeAmount / prior * 100
		} else if r.Population > 0 {
			r.GrowthRate = r.ChangeAmount / r.Population * 100
		} else {
			r.GrowthRate = 0
		}
	}

	// Yearly mean growth, then relative growth and flow type.
	type acc struct {
		sum float64
		n   int
	}
	yearly := make(map[int]*acc)
	for _, r := range ds.Rows {
		a := yearly[r.Year]
		if a == nil {
			a = &acc{}
			yearly[r.Year] = a
		}
		a.sum += r.GrowthRate
		a.n++
	}
	for i := range ds.Rows {
		r := &ds.Rows[i]
		mean := yearly[r.Year].sum / float64(yearly[r.Year].n)
		r.RelativeGrowth = r.GrowthRate - mean
		r.FlowType = domain.FlowTypeFor(r.RelativeGrowth)
	}

	// Cumulative change per city in year order.
	byCity := make(map[string][]int)
	for i, r := range ds.Rows {
		byCity[r.City] = append(byCity[r.City], i)
	}
	for _, idxs := range byCity {
		sort.Slice(idxs, func(a, b int) bool {
			return ds.Rows[idxs[a]].Year < ds.Rows[idxs[b]].Year
		})
		sum := 0.0
		for _, i := range idxs {
			sum += ds.Rows[i].ChangeAmount
			ds.Rows[i].CumulativeChange = sum
		}
	}
}
