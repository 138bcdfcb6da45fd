package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"popflow/pkg/contracts/domain"
)

// forecastBand is the relative width of the forecast uncertainty bounds.
const forecastBand = 0.05

// CityTrends fits an ordinary least squares line to each city's population
// series. Cities with fewer than two observed years are skipped. Results are
// sorted by descending slope.
func CityTrends(ds domain.Dataset) []domain.CityTrend {
	var trends []domain.CityTrend
	for _, city := range ds.Cities() {
		years, pops := citySeries(ds, city)
		if len(years) < 2 {
			continue
		}
		_, slope := stat.LinearRegression(years, pops, nil, false)
		r := stat.Correlation(years, pops, nil)
		if math.IsNaN(r) {
			r = 0
		}
		trends = append(trends, domain.CityTrend{City: city, Slope: slope, R: r})
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Slope > trends[j].Slope })
	return trends
}

// Forecast projects each city's population forward by horizon years using
// the fitted trend line. Bounds widen multiplicatively around the projection.
// Cities with fewer than two observed years produce no points.
func Forecast(ds domain.Dataset, horizon int) []domain.ForecastPoint {
	if horizon <= 0 {
		return nil
	}

	var points []domain.ForecastPoint
	for _, city := range ds.Cities() {
		years, pops := citySeries(ds, city)
		if len(years) < 2 {
			continue
		}
		alpha, beta := stat.LinearRegression(years, pops, nil, false)
		lastYear := int(years[len(years)-1])
		for h := 1; h <= horizon; h++ {
			year := lastYear + h
			projected := alpha + beta*float64(year)
			if projected < 0 {
				projected = 0
			}
			points = append(points, domain.ForecastPoint{
				City:       city,
				Year:       year,
				Population: projected,
				LowerBound: projected * (1 - forecastBand),
				UpperBound: projected * (1 + forecastBand),
			})
		}
	}
	return points
}

// citySeries returns the city's (year, population) pairs in year order.
func citySeries(ds domain.Dataset, city string) (years, pops []float64) {
	rows := ds.ByCity(city)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Year < rows[j].Year })
	for _, row := range rows {
		years = append(years, float64(row.Year))
		pops = append(pops, row.Population)
	}
	return years, pops
}
