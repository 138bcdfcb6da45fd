package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"popflow/internal/infrastructure"
	"popflow/pkg/contracts/domain"
)

// A Matcher is one pattern strategy: a pure function from a text segment to
// the observations it recognizes. Matchers are tried in strict priority
// order and the first one that matches wins for that segment, so a line
// matching both the explicit-change phrasing and the loose table phrasing is
// extracted with the explicit-change captures only.
type Matcher struct {
	Name  string
	Match func(segment string, year int) []domain.Observation
}

var (
	// Pattern 1: "广州市常住人口1867.66万人，比上年增加7.03万人"
	reAbsoluteChange = regexp.MustCompile(`([\p{Han}]+市)[^\d]*([\d.]+)万人[^，]*，[^增减]*(增加|减少)[^\d，]*([\d.]+)万人`)

	// Pattern 2: "深圳市人口1756.01万人，同比增长0.4%"
	rePercentChange = regexp.MustCompile(`([\p{Han}]+市)[^\d]*人口[^\d]*([\d.]+)万人[^，]*，[^增长下降]*(增长|下降)[^\d，]*([\d.]+)%`)

	// Pattern 3: loose table-like rows, a city token near a bare figure with
	// an optional 万/千 unit. No change data; delta defaults to zero.
	reBareFigure = regexp.MustCompile(`([\p{Han}]+市)[^\d\n]{0,20}([\d.]+)([万千])?人`)

	reCensusYear = regexp.MustCompile(`(\d{4})年[^人口普查]*人口普查`)
	reStatsYear  = regexp.MustCompile(`(\d{4})年[^统计]*统计`)
)

// Matchers returns the pattern cascade in priority order.
func Matchers() []Matcher {
	return []Matcher{
		{Name: "absolute_change", Match: matchAbsoluteChange},
		{Name: "percent_change", Match: matchPercentChange},
		{Name: "bare_figure", Match: matchBareFigure},
	}
}

func matchAbsoluteChange(segment string, year int) []domain.Observation {
	var obs []domain.Observation
	for _, m := range reAbsoluteChange.FindAllStringSubmatch(segment, -1) {
		population, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		change, err := strconv.ParseFloat(m[4], 64)
		if err != nil {
			continue
		}
		direction := domain.DirectionIncrease
		if m[3] == "减少" {
			change = -change
			direction = domain.DirectionDecrease
		}
		obs = append(obs, domain.Observation{
			City:         m[1],
			Year:         year,
			Population:   population,
			ChangeAmount: change,
			Direction:    direction,
			Source:       domain.SourceScraped,
		})
	}
	return obs
}

func matchPercentChange(segment string, year int) []domain.Observation {
	var obs []domain.Observation
	for _, m := range rePercentChange.FindAllStringSubmatch(segment, -1) {
		population, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		percent, err := strconv.ParseFloat(m[4], 64)
		if err != nil {
			continue
		}
		// Percentage deltas are converted to absolute 万人 figures so they
		// are comparable with pattern-1 output.
		change := population * percent / 100
		direction := domain.DirectionIncrease
		if m[3] == "下降" {
			change = -change
			direction = domain.DirectionDecrease
		}
		obs = append(obs, domain.Observation{
			City:         m[1],
			Year:         year,
			Population:   population,
			ChangeAmount: change,
			Direction:    direction,
			Source:       domain.SourceScraped,
		})
	}
	return obs
}

func matchBareFigure(segment string, year int) []domain.Observation {
	var obs []domain.Observation
	for _, m := range reBareFigure.FindAllStringSubmatch(segment, -1) {
		value, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		// Normalize to 万人.
		var population float64
		switch m[3] {
		case "万":
			population = value
		case "千":
			population = value / 10
		default:
			population = value / 10000
		}
		if population <= 0 {
			continue
		}
		obs = append(obs, domain.Observation{
			City:       m[1],
			Year:       year,
			Population: population,
			Direction:  domain.DirectionIncrease,
			Source:     domain.SourceScraped,
		})
	}
	return obs
}

// ExtractYear pulls the reference year out of census or statistics phrasing.
// Pages that never name a year get the fallback (normally the current year).
func ExtractYear(text string, fallback int) int {
	if m := reCensusYear.FindStringSubmatch(text); m != nil {
		if y, err := strconv.Atoi(m[1]); err == nil {
			return y
		}
	}
	if m := reStatsYear.FindStringSubmatch(text); m != nil {
		if y, err := strconv.Atoi(m[1]); err == nil {
			return y
		}
	}
	return fallback
}

// ExtractObservations runs the pattern cascade over the text, segment by
// segment. Segments are sentences split on 。 and newlines. Unmatched
// segments yield nothing; that is expected control flow, not an error.
func ExtractObservations(text string, fallbackYear int) []domain.Observation {
	year := ExtractYear(text, fallbackYear)
	matchers := Matchers()

	var all []domain.Observation
	for _, segment := range splitSegments(text) {
		for _, m := range matchers {
			if obs := m.Match(segment, year); len(obs) > 0 {
				infrastructure.ObservationsExtracted.WithLabelValues(m.Name).Add(float64(len(obs)))
				all = append(all, obs...)
				break
			}
		}
	}
	return all
}

func splitSegments(text string) []string {
	var segments []string
	for _, line := range strings.Split(text, "\n") {
		for _, sentence := range strings.Split(line, "。") {
			sentence = strings.TrimSpace(sentence)
			if sentence != "" {
				segments = append(segments, sentence)
			}
		}
	}
	return segments
}
