// Package synthetic generates a deterministic population dataset for the 21
// Guangdong prefecture cities. It backs demo mode and the fallback path when
// every scrape source fails.
package synthetic

import (
	"hash/fnv"
	"math"

	"popflow/pkg/contracts/domain"
)

// Cities is the default city list, tier-1 cities first.
var Cities = []string{
	"广州市", "深圳市", "佛山市", "东莞市", "珠海市",
	"中山市", "惠州市", "江门市", "肇庆市", "茂名市",
	"湛江市", "汕头市", "揭阳市", "梅州市", "汕尾市",
	"河源市", "韶关市", "清远市", "云浮市", "阳江市",
	"潮州市",
}

// basePopulations holds starting populations in 万人.
var basePopulations = map[string]float64{
	"广州市": 1500.0,
	"深圳市": 1300.0,
	"佛山市": 790.0,
	"东莞市": 830.0,
	"珠海市": 200.0,
	"中山市": 340.0,
	"惠州市": 480.0,
	"江门市": 450.0,
	"肇庆市": 400.0,
	"茂名市": 610.0,
	"湛江市": 710.0,
	"汕头市": 560.0,
	"揭阳市": 610.0,
	"梅州市": 430.0,
	"汕尾市": 290.0,
	"河源市": 300.0,
	"韶关市": 290.0,
	"清远市": 370.0,
	"云浮市": 240.0,
	"阳江市": 250.0,
	"潮州市": 260.0,
}

const defaultBase = 300.0

const (
	FirstYear = 2008
	LastYear  = 2024
)

// Generate produces one observation per city per year in [from, to]. The
// growth curve depends only on the city name and year index, so repeated
// calls yield byte-identical datasets.
func Generate(cities []string, from, to int) []domain.Observation {
	if len(cities) == 0 {
		cities = Cities
	}
	if from == 0 {
		from = FirstYear
	}
	if to == 0 {
		to = LastYear
	}
	if to < from {
		return nil
	}

	var obs []domain.Observation
	for _, city := range cities {
		base, ok := basePopulations[city]
		if !ok {
			base = defaultBase
		}
		population := base
		for i, year := 0, from; year <= to; i, year = i+1, year+1 {
			var change float64
			if i > 0 {
				rate := growthRate(city, i)
				next := population * (1 + rate)
				change = round2(next - population)
				population = round2(next)
			}
			obs = append(obs, domain.Observation{
				City:         city,
				Year:         year,
				Population:   population,
				ChangeAmount: change,
				Direction:    domain.DirectionFor(change),
				Source:       domain.SourceSynthetic,
			})
		}
	}
	return obs
}

// growthRate rises slowly over the span with a per-city offset, keeping the
// series plausible without a shared RNG.
func growthRate(city string, yearIndex int) float64 {
	h := fnv.New32a()
	h.Write([]byte(city))
	offset := float64(h.Sum32()%10) / 1000
	return 0.01 + float64(yearIndex)*0.002 + offset
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
