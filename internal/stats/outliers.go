package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"popflow/pkg/contracts/domain"
)

// Outlier is a change amount whose z-score exceeds the detection threshold.
type Outlier struct {
	City   string  `json:"city"`
	Year   int     `json:"year"`
	Change float64 `json:"change"`
	ZScore float64 `json:"z_score"`
}

// Outliers flags rows whose change amount deviates from the dataset mean by
// more than threshold standard deviations. Thresholds at or below zero fall
// back to DefaultOutlierThreshold. A dataset with zero variance has no
// outliers.
func Outliers(ds domain.Dataset, threshold float64) []Outlier {
	if threshold <= 0 {
		threshold = DefaultOutlierThreshold
	}
	if ds.Len() < 2 {
		return nil
	}

	changes := make([]float64, ds.Len())
	for i, row := range ds.Rows {
		changes[i] = row.ChangeAmount
	}
	mean, std := stat.MeanStdDev(changes, nil)
	if std == 0 || math.IsNaN(std) {
		return nil
	}

	var out []Outlier
	for _, row := range ds.Rows {
		z := (row.ChangeAmount - mean) / std
		if math.Abs(z) > threshold {
			out = append(out, Outlier{
				City:   row.City,
				Year:   row.Year,
				Change: row.ChangeAmount,
				ZScore: z,
			})
		}
	}
	return out
}
