package domain

// ClusterAssignment maps a city to the migration-pattern cluster it was
// assigned in the most recent clustering run. Assignments are recomputed on
// every invocation of the statistics engine and are not persisted across runs
// unless the caller caches them.
type ClusterAssignment struct {
	City      string `json:"city"`
	ClusterID int    `json:"cluster_id"`
}

// CityTrend summarizes the fitted linear population trend of one city.
type CityTrend struct {
	City  string `json:"city"`
	Slope float64 `json:"slope"`
	// R is the correlation coefficient of the fit; values near ±1 indicate a
	// strong linear trend.
	R float64 `json:"r_value"`
}

// ForecastPoint is a projected population for a future year, with naive
// ±5% bounds around the regression line.
type ForecastPoint struct {
	City       string  `json:"city"`
	Year       int     `json:"year"`
	Population float64 `json:"population"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}
