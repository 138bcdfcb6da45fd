package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popflow/pkg/contracts/domain"
)

func TestNetMigrationRate(t *testing.T) {
	tests := []struct {
		name                       string
		inflow, outflow, populace  float64
		want                       float64
		undefined                  bool
	}{
		{name: "positive net", inflow: 50, outflow: 30, populace: 1000, want: 2.0},
		{name: "negative net", inflow: 10, outflow: 40, populace: 1000, want: -3.0},
		{name: "balanced", inflow: 25, outflow: 25, populace: 500, want: 0},
		{name: "zero population", inflow: 50, outflow: 30, populace: 0, undefined: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NetMigrationRate(tt.inflow, tt.outflow, tt.populace)
			if tt.undefined {
				assert.True(t, math.IsNaN(got))
				assert.False(t, Defined(got))
				return
			}
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestMigrationEfficiency(t *testing.T) {
	assert.InDelta(t, 0.25, MigrationEfficiency(20, 80), 1e-9)
	assert.InDelta(t, -1.0, MigrationEfficiency(-40, 40), 1e-9)

	got := MigrationEfficiency(20, 0)
	assert.True(t, math.IsNaN(got), "zero gross migration must be undefined, not a crash")
}

func TestCAGR(t *testing.T) {
	assert.InDelta(t, 0.10, CAGR(100, 121, 2), 1e-9)
	assert.InDelta(t, 0, CAGR(500, 500, 5), 1e-9)
	assert.Less(t, CAGR(100, 81, 2), 0.0)

	assert.True(t, math.IsNaN(CAGR(0, 121, 2)))
	assert.True(t, math.IsNaN(CAGR(-10, 121, 2)))
	assert.True(t, math.IsNaN(CAGR(100, 121, 0)))
}

func TestConfidenceInterval(t *testing.T) {
	t.Run("small samples have zero width", func(t *testing.T) {
		iv := ConfidenceInterval([]float64{3.5}, 0.95)
		assert.Equal(t, 3.5, iv.Mean)
		assert.Zero(t, iv.Width())

		empty := ConfidenceInterval(nil, 0.95)
		assert.True(t, math.IsNaN(empty.Mean))
	})

	t.Run("interval brackets the mean", func(t *testing.T) {
		sample := []float64{9.5, 10.2, 10.8, 9.9, 10.4, 10.1}
		iv := ConfidenceInterval(sample, 0.95)
		assert.Greater(t, iv.Upper, iv.Mean)
		assert.Less(t, iv.Lower, iv.Mean)
		assert.InDelta(t, iv.Mean-iv.Lower, iv.Upper-iv.Mean, 1e-9)
	})

	t.Run("higher confidence widens the interval", func(t *testing.T) {
		sample := []float64{9.5, 10.2, 10.8, 9.9, 10.4, 10.1}
		narrow := ConfidenceInterval(sample, 0.90)
		wide := ConfidenceInterval(sample, 0.99)
		assert.Greater(t, wide.Width(), narrow.Width())
	})
}

func trendDataset() domain.Dataset {
	var ds domain.Dataset
	series := map[string][]float64{
		"广州市": {1000, 1010, 1020, 1030},
		"深圳市": {900, 920, 940, 960},
		"汕头市": {550, 548, 546, 544},
	}
	for city, pops := range series {
		for i, pop := range pops {
			var change float64
			if i > 0 {
				change = pop - pops[i-1]
			}
			ds.Rows = append(ds.Rows, domain.Row{
				Observation: domain.Observation{
					City:         city,
					Year:         2020 + i,
					Population:   pop,
					ChangeAmount: change,
					Direction:    domain.DirectionFor(change),
					Source:       domain.SourceSynthetic,
				},
				FlowType: domain.FlowTypeFor(change),
			})
		}
	}
	ds.SortByCityYear()
	return ds
}

func TestCityTrends(t *testing.T) {
	trends := CityTrends(trendDataset())
	require.Len(t, trends, 3)

	// Sorted by descending slope: the fastest grower first.
	assert.Equal(t, "深圳市", trends[0].City)
	assert.InDelta(t, 20, trends[0].Slope, 1e-9)
	assert.InDelta(t, 1.0, trends[0].R, 1e-9)

	last := trends[len(trends)-1]
	assert.Equal(t, "汕头市", last.City)
	assert.Less(t, last.Slope, 0.0)
}

func TestForecast(t *testing.T) {
	points := Forecast(trendDataset(), 2)
	require.Len(t, points, 6)

	byCity := make(map[string][]domain.ForecastPoint)
	for _, p := range points {
		byCity[p.City] = append(byCity[p.City], p)
	}

	gz := byCity["广州市"]
	require.Len(t, gz, 2)
	assert.Equal(t, 2024, gz[0].Year)
	assert.Equal(t, 2025, gz[1].Year)
	assert.InDelta(t, 1040, gz[0].Population, 1e-6)
	assert.Less(t, gz[0].LowerBound, gz[0].Population)
	assert.Greater(t, gz[0].UpperBound, gz[0].Population)

	assert.Empty(t, Forecast(trendDataset(), 0))
}

func TestOutliers(t *testing.T) {
	ds := trendDataset()
	// One anomalous jump far outside the usual change band.
	ds.Rows = append(ds.Rows, domain.Row{
		Observation: domain.Observation{
			City: "珠海市", Year: 2023, Population: 300, ChangeAmount: 120,
			Direction: domain.DirectionIncrease, Source: domain.SourceSynthetic,
		},
		FlowType: domain.FlowInflow,
	})

	out := Outliers(ds, 2.0)
	require.Len(t, out, 1)
	assert.Equal(t, "珠海市", out[0].City)
	assert.Greater(t, out[0].ZScore, 2.0)

	t.Run("zero variance has no outliers", func(t *testing.T) {
		var flat domain.Dataset
		for i := 0; i < 4; i++ {
			flat.Rows = append(flat.Rows, domain.Row{Observation: domain.Observation{
				City: "广州市", Year: 2020 + i, Population: 1000, ChangeAmount: 5,
			}})
		}
		assert.Empty(t, Outliers(flat, 2.0))
	})
}

func TestClusterCities(t *testing.T) {
	ds := trendDataset()

	first := ClusterCities(ds, 2)
	second := ClusterCities(ds, 2)
	assert.Equal(t, first, second, "clustering must be deterministic")

	byCity := make(map[string]int)
	for _, a := range first {
		byCity[a.City] = a.ClusterID
	}
	require.Len(t, byCity, 3)

	// The two large growing cities group together, apart from the shrinking one.
	assert.Equal(t, byCity["广州市"], byCity["深圳市"])
	assert.NotEqual(t, byCity["广州市"], byCity["汕头市"])

	t.Run("k at least city count gives singleton clusters", func(t *testing.T) {
		all := ClusterCities(ds, 10)
		seen := make(map[int]bool)
		for _, a := range all {
			assert.False(t, seen[a.ClusterID])
			seen[a.ClusterID] = true
		}
	})

	assert.Empty(t, ClusterCities(domain.Dataset{}, 3))
}

func TestCityMetricsFor(t *testing.T) {
	metrics := CityMetricsFor(trendDataset())
	require.Len(t, metrics, 3)

	byCity := make(map[string]CityMetrics, len(metrics))
	for _, m := range metrics {
		byCity[m.City] = m
	}

	gz := byCity["广州市"]
	assert.Equal(t, 2020, gz.StartYear)
	assert.Equal(t, 2023, gz.EndYear)
	assert.InDelta(t, 30, gz.Inflow, 1e-9)
	assert.InDelta(t, 0, gz.Outflow, 1e-9)
	require.NotNil(t, gz.CAGR)
	assert.InDelta(t, math.Pow(1030.0/1000, 1.0/3)-1, *gz.CAGR, 1e-12)
	require.NotNil(t, gz.NetMigrationRate)
	assert.InDelta(t, 30.0/1030*100, *gz.NetMigrationRate, 1e-9)
	require.NotNil(t, gz.MigrationEfficiency)
	assert.InDelta(t, 1.0, *gz.MigrationEfficiency, 1e-9, "purely gaining city")

	st := byCity["汕头市"]
	assert.InDelta(t, 6, st.Outflow, 1e-9)
	assert.InDelta(t, -6, st.NetMigration, 1e-9)
	require.NotNil(t, st.MigrationEfficiency)
	assert.InDelta(t, -1.0, *st.MigrationEfficiency, 1e-9, "purely losing city")
}

func TestCityMetricsForUndefinedRatios(t *testing.T) {
	ds := domain.Dataset{Rows: []domain.Row{{
		Observation: domain.Observation{City: "云浮市", Year: 2020, Population: 238.9},
	}}}

	metrics := CityMetricsFor(ds)
	require.Len(t, metrics, 1)
	assert.Nil(t, metrics[0].CAGR, "single observed year has no growth span")
	assert.Nil(t, metrics[0].MigrationEfficiency, "zero gross migration is undefined")
	require.NotNil(t, metrics[0].NetMigrationRate)
	assert.Zero(t, *metrics[0].NetMigrationRate)
}

func TestSummarize(t *testing.T) {
	ds := trendDataset()
	s := Summarize(ds)

	assert.Equal(t, 3, s.Cities)
	assert.Equal(t, 12, s.Records)
	assert.Equal(t, 2020, s.FirstYear)
	assert.Equal(t, 2023, s.LatestYear)
	assert.InDelta(t, 1030+960+544, s.TotalPopulation, 1e-9)
	assert.InDelta(t, 30+60-6, s.NetChange, 1e-9)

	require.NotEmpty(t, s.TopGainers)
	assert.Equal(t, "深圳市", s.TopGainers[0].City)
	require.Len(t, s.TopDecliners, 1)
	assert.Equal(t, "汕头市", s.TopDecliners[0].City)

	t.Run("empty dataset", func(t *testing.T) {
		s := Summarize(domain.Dataset{})
		assert.Zero(t, s.Records)
		assert.True(t, math.IsNaN(s.MeanChange))
	})
}
