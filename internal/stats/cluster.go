package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"popflow/pkg/contracts/domain"
)

const (
	kmeansMaxIterations = 100
	featureCount        = 3
)

// ClusterCities groups cities into k clusters by k-means over normalized
// per-city features: mean population, mean change amount, and trend slope.
// Initial centroids are chosen deterministically by spreading over the
// cities sorted on mean population, so repeated runs on the same dataset
// assign identical clusters. When k exceeds the number of cities each city
// gets its own cluster.
func ClusterCities(ds domain.Dataset, k int) []domain.ClusterAssignment {
	cities := ds.Cities()
	if len(cities) == 0 || k <= 0 {
		return nil
	}
	if k >= len(cities) {
		out := make([]domain.ClusterAssignment, len(cities))
		for i, city := range cities {
			out[i] = domain.ClusterAssignment{City: city, ClusterID: i}
		}
		return out
	}
	if k == 1 {
		out := make([]domain.ClusterAssignment, len(cities))
		for i, city := range cities {
			out[i] = domain.ClusterAssignment{City: city}
		}
		return out
	}

	features := cityFeatures(ds, cities)
	normalizeColumns(features)

	// Deterministic init: evenly spaced points along the population axis.
	order := make([]int, len(cities))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return features[order[a]][0] < features[order[b]][0] })

	centroids := make([][]float64, k)
	for c := 0; c < k; c++ {
		src := order[c*(len(cities)-1)/(k-1)]
		centroids[c] = append([]float64(nil), features[src]...)
	}

	assign := make([]int, len(cities))
	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, f := range features {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				if d := floats.Distance(f, centroid, 2); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		counts := make([]int, k)
		next := make([][]float64, k)
		for c := range next {
			next[c] = make([]float64, featureCount)
		}
		for i, f := range features {
			floats.Add(next[assign[i]], f)
			counts[assign[i]]++
		}
		for c := range next {
			if counts[c] == 0 {
				// Empty cluster keeps its previous centroid.
				copy(next[c], centroids[c])
				continue
			}
			floats.Scale(1/float64(counts[c]), next[c])
		}
		centroids = next
	}

	out := make([]domain.ClusterAssignment, len(cities))
	for i, city := range cities {
		out[i] = domain.ClusterAssignment{City: city, ClusterID: assign[i]}
	}
	return out
}

func cityFeatures(ds domain.Dataset, cities []string) [][]float64 {
	trendByCity := make(map[string]float64)
	for _, t := range CityTrends(ds) {
		trendByCity[t.City] = t.Slope
	}

	features := make([][]float64, len(cities))
	for i, city := range cities {
		rows := ds.ByCity(city)
		var pops, changes []float64
		for _, row := range rows {
			pops = append(pops, row.Population)
			changes = append(changes, row.ChangeAmount)
		}
		features[i] = []float64{
			stat.Mean(pops, nil),
			stat.Mean(changes, nil),
			trendByCity[city],
		}
	}
	return features
}

// normalizeColumns z-scores each feature column in place. Zero-variance
// columns become all zeros.
func normalizeColumns(features [][]float64) {
	if len(features) == 0 {
		return
	}
	col := make([]float64, len(features))
	for j := 0; j < featureCount; j++ {
		for i := range features {
			col[i] = features[i][j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		for i := range features {
			if std == 0 || math.IsNaN(std) {
				features[i][j] = 0
				continue
			}
			features[i][j] = (features[i][j] - mean) / std
		}
	}
}
