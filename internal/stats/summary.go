package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"popflow/pkg/contracts/domain"
)

// CityChange pairs a city with its cumulative change over the dataset span.
type CityChange struct {
	City   string  `json:"city"`
	Change float64 `json:"change"`
}

// Summary is the descriptive statistics block served by the dashboard.
type Summary struct {
	Cities          int          `json:"cities"`
	Records         int          `json:"records"`
	FirstYear       int          `json:"first_year"`
	LatestYear      int          `json:"latest_year"`
	TotalPopulation float64      `json:"total_population"`
	MeanChange      float64      `json:"mean_change"`
	StdChange       float64      `json:"std_change"`
	NetChange       float64      `json:"net_change"`
	InflowRows      int          `json:"inflow_rows"`
	OutflowRows     int          `json:"outflow_rows"`
	ChangeInterval  Interval     `json:"change_interval"`
	TopGainers      []CityChange `json:"top_gainers"`
	TopDecliners    []CityChange `json:"top_decliners"`
}

const summaryRankSize = 5

// Summarize computes the dashboard summary over the dataset. Empty datasets
// return the zero Summary with NaN aggregates where a mean is undefined.
func Summarize(ds domain.Dataset) Summary {
	s := Summary{
		Cities:     len(ds.Cities()),
		Records:    ds.Len(),
		MeanChange: math.NaN(),
		StdChange:  math.NaN(),
	}
	if ds.Empty() {
		return s
	}

	years := ds.Years()
	s.FirstYear = years[0]
	s.LatestYear = years[len(years)-1]

	changes := make([]float64, 0, ds.Len())
	for _, row := range ds.Rows {
		changes = append(changes, row.ChangeAmount)
		s.NetChange += row.ChangeAmount
		switch row.FlowType {
		case domain.FlowInflow:
			s.InflowRows++
		case domain.FlowOutflow:
			s.OutflowRows++
		}
	}
	s.MeanChange, s.StdChange = stat.MeanStdDev(changes, nil)
	if len(changes) < 2 {
		s.StdChange = 0
	}
	s.ChangeInterval = ConfidenceInterval(changes, 0.95)

	for _, row := range ds.ByYear(s.LatestYear) {
		s.TotalPopulation += row.Population
	}

	cumulative := make(map[string]float64)
	for _, row := range ds.Rows {
		cumulative[row.City] += row.ChangeAmount
	}
	ranked := make([]CityChange, 0, len(cumulative))
	for city, change := range cumulative {
		ranked = append(ranked, CityChange{City: city, Change: change})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Change != ranked[j].Change {
			return ranked[i].Change > ranked[j].Change
		}
		return ranked[i].City < ranked[j].City
	})

	n := len(ranked)
	top := summaryRankSize
	if top > n {
		top = n
	}
	s.TopGainers = append([]CityChange(nil), ranked[:top]...)
	for i := n - 1; i >= n-top; i-- {
		if ranked[i].Change < 0 {
			s.TopDecliners = append(s.TopDecliners, ranked[i])
		}
	}
	return s
}
