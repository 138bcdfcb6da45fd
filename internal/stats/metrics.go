// Package stats implements the statistics engine: pure, side-effect-free
// functions over the reconciled dataset. Undefined results (division by zero,
// insufficient sample) are returned as NaN, never raised; downstream
// consumers special-case missing values.
package stats

import (
	"math"

	"popflow/pkg/contracts/domain"
)

// DefaultOutlierThreshold is the z-score beyond which a value is flagged.
const DefaultOutlierThreshold = 2.0

// NetMigrationRate returns (inflow − outflow) / population × 100.
// NaN when population is zero.
func NetMigrationRate(inflow, outflow, population float64) float64 {
	if population == 0 {
		return math.NaN()
	}
	return (inflow - outflow) / population * 100
}

// MigrationEfficiency returns net / gross migration, the directional
// dominance of flows in [-1, 1]. NaN when gross migration is zero.
func MigrationEfficiency(netMigration, grossMigration float64) float64 {
	if grossMigration == 0 {
		return math.NaN()
	}
	return netMigration / grossMigration
}

// CAGR returns the compound annual growth rate over a year span:
// (end/start)^(1/years) − 1. NaN when the start value is non-positive or the
// span is non-positive.
func CAGR(start, end float64, years int) float64 {
	if start <= 0 || years <= 0 {
		return math.NaN()
	}
	if end < 0 {
		return math.NaN()
	}
	return math.Pow(end/start, 1/float64(years)) - 1
}

// Defined reports whether a metric value is usable (not NaN or ±Inf).
func Defined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// CityMetrics is the migration metrics block for one city over the dataset
// span. Undefined ratios are nil pointers so the block serializes to JSON
// without NaN.
type CityMetrics struct {
	City            string  `json:"city"`
	StartYear       int     `json:"start_year"`
	EndYear         int     `json:"end_year"`
	StartPopulation float64 `json:"start_population"`
	EndPopulation   float64 `json:"end_population"`

	// Inflow and Outflow are the summed positive and negative year changes;
	// NetMigration is their difference, GrossMigration their sum.
	Inflow         float64 `json:"inflow"`
	Outflow        float64 `json:"outflow"`
	NetMigration   float64 `json:"net_migration"`
	GrossMigration float64 `json:"gross_migration"`

	CAGR                *float64 `json:"cagr,omitempty"`
	NetMigrationRate    *float64 `json:"net_migration_rate,omitempty"`
	MigrationEfficiency *float64 `json:"migration_efficiency,omitempty"`
}

// CityMetricsFor computes the migration metrics per city, in city order.
// The rate is taken against the city's latest population; CAGR spans the
// city's first to last observed year.
func CityMetricsFor(ds domain.Dataset) []CityMetrics {
	cities := ds.Cities()
	out := make([]CityMetrics, 0, len(cities))
	for _, city := range cities {
		rows := ds.ByCity(city)
		if len(rows) == 0 {
			continue
		}
		first, last := rows[0], rows[len(rows)-1]

		m := CityMetrics{
			City:            city,
			StartYear:       first.Year,
			EndYear:         last.Year,
			StartPopulation: first.Population,
			EndPopulation:   last.Population,
		}
		for _, row := range rows {
			if row.ChangeAmount > 0 {
				m.Inflow += row.ChangeAmount
			} else {
				m.Outflow -= row.ChangeAmount
			}
		}
		m.NetMigration = m.Inflow - m.Outflow
		m.GrossMigration = m.Inflow + m.Outflow

		m.CAGR = definedPtr(CAGR(first.Population, last.Population, last.Year-first.Year))
		m.NetMigrationRate = definedPtr(NetMigrationRate(m.Inflow, m.Outflow, last.Population))
		m.MigrationEfficiency = definedPtr(MigrationEfficiency(m.NetMigration, m.GrossMigration))

		out = append(out, m)
	}
	return out
}

func definedPtr(v float64) *float64 {
	if !Defined(v) {
		return nil
	}
	return &v
}
