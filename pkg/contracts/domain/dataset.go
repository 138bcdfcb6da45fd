package domain

import "sort"

// FlowType classifies a city-year as gaining or losing population relative to
// the provincial average for that year.
type FlowType string

const (
	FlowInflow  FlowType = "inflow"
	FlowOutflow FlowType = "outflow"
)

// FlowTypeFor classifies a relative growth value: above average is inflow,
// at or below is outflow.
func FlowTypeFor(relative float64) FlowType {
	if relative > 0 {
		return FlowInflow
	}
	return FlowOutflow
}

// Row is an observation enriched with the derived columns computed after
// reconciliation. Derived fields are recomputed whenever the dataset is
// rebuilt; they are never part of observation identity.
type Row struct {
	Observation

	// GrowthRate is the year-over-year change as a percentage of the prior
	// population, (change / (population - change)) * 100.
	GrowthRate float64 `json:"growth_rate" csv:"GrowthRate"`

	// RelativeGrowth is GrowthRate minus the mean growth rate of all cities
	// in the same year.
	RelativeGrowth float64 `json:"relative_growth" csv:"RelativeGrowth"`

	// FlowType is derived from the sign of RelativeGrowth.
	FlowType FlowType `json:"flow_type" csv:"FlowType"`

	// CumulativeChange is the running sum of ChangeAmount per city in year
	// order.
	CumulativeChange float64 `json:"cumulative_change" csv:"CumulativeChange"`
}

// Dataset is an ordered sequence of reconciled observations, unique per
// (city, year). Order is reconciliation order: first-seen position, with
// replaced entries re-appended at the end.
type Dataset struct {
	Rows []Row `json:"rows"`
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Empty reports whether the dataset holds no rows.
func (d *Dataset) Empty() bool { return d.Len() == 0 }

// Cities returns the distinct city names, sorted.
func (d *Dataset) Cities() []string {
	seen := make(map[string]struct{})
	var cities []string
	for _, r := range d.Rows {
		if _, ok := seen[r.City]; !ok {
			seen[r.City] = struct{}{}
			cities = append(cities, r.City)
		}
	}
	sort.Strings(cities)
	return cities
}

// Years returns the distinct years present, ascending.
func (d *Dataset) Years() []int {
	seen := make(map[int]struct{})
	var years []int
	for _, r := range d.Rows {
		if _, ok := seen[r.Year]; !ok {
			seen[r.Year] = struct{}{}
			years = append(years, r.Year)
		}
	}
	sort.Ints(years)
	return years
}

// ByCity returns the rows for one city sorted by year.
func (d *Dataset) ByCity(city string) []Row {
	var rows []Row
	for _, r := range d.Rows {
		if r.City == city {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Year < rows[j].Year })
	return rows
}

// ByYear returns the rows for one year, city order unspecified.
func (d *Dataset) ByYear(year int) []Row {
	var rows []Row
	for _, r := range d.Rows {
		if r.Year == year {
			rows = append(rows, r)
		}
	}
	return rows
}

// Filter returns a new dataset restricted to the given cities (nil means all)
// and the inclusive year range [from, to] (zero bounds mean unbounded).
func (d *Dataset) Filter(cities []string, from, to int) *Dataset {
	want := make(map[string]struct{}, len(cities))
	for _, c := range cities {
		want[c] = struct{}{}
	}
	out := &Dataset{}
	for _, r := range d.Rows {
		if len(want) > 0 {
			if _, ok := want[r.City]; !ok {
				continue
			}
		}
		if from != 0 && r.Year < from {
			continue
		}
		if to != 0 && r.Year > to {
			continue
		}
		out.Rows = append(out.Rows, r)
	}
	return out
}

// SortByCityYear orders rows by city then year in place. Export paths use
// this for stable output files.
func (d *Dataset) SortByCityYear() {
	sort.Slice(d.Rows, func(i, j int) bool {
		if d.Rows[i].City != d.Rows[j].City {
			return d.Rows[i].City < d.Rows[j].City
		}
		return d.Rows[i].Year < d.Rows[j].Year
	})
}

// Observations returns the bare observations, in dataset order.
func (d *Dataset) Observations() []Observation {
	obs := make([]Observation, 0, len(d.Rows))
	for _, r := range d.Rows {
		obs = append(obs, r.Observation)
	}
	return obs
}
