package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Interval is a two-sided confidence interval around a sample mean.
type Interval struct {
	Mean  float64 `json:"mean"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Level float64 `json:"level"`
}

// Width returns the distance between the interval bounds.
func (iv Interval) Width() float64 {
	return iv.Upper - iv.Lower
}

// ConfidenceInterval computes a Student's t interval for the mean of sample
// at the given confidence level (e.g. 0.95). Samples with fewer than two
// values yield a zero-width interval centred on the available data; an empty
// sample yields NaN bounds.
func ConfidenceInterval(sample []float64, level float64) Interval {
	switch len(sample) {
	case 0:
		return Interval{Mean: math.NaN(), Lower: math.NaN(), Upper: math.NaN(), Level: level}
	case 1:
		return Interval{Mean: sample[0], Lower: sample[0], Upper: sample[0], Level: level}
	}

	mean, std := stat.MeanStdDev(sample, nil)
	n := float64(len(sample))
	sem := std / math.Sqrt(n)

	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}
	// Two-sided critical value at the requested level.
	crit := t.Quantile(0.5 + level/2)
	margin := crit * sem

	return Interval{
		Mean:  mean,
		Lower: mean - margin,
		Upper: mean + margin,
		Level: level,
	}
}
