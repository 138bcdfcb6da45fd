// Package importer reads uploaded population spreadsheets into observations.
// Uploaded files come from many hands, so header detection is fuzzy: columns
// are located by name in any of the accepted variants, falling back to
// positional order when no header row is present.
package importer

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"popflow/internal/errors"
	"popflow/pkg/contracts/domain"
)

// column indices within a spreadsheet row, -1 when absent.
type columnMap struct {
	city       int
	year       int
	population int
	change     int
}

var headerVariants = map[string][]string{
	"city":       {"city", "城市", "市", "地市", "地区"},
	"year":       {"year", "年份", "年度", "年"},
	"population": {"population", "人口", "常住人口", "人口数"},
	"change":     {"change", "变化", "增减", "变化量", "净变化"},
}

// Read parses an uploaded workbook into observations. The first sheet with
// recognizable population rows wins. Rows that fail validation are skipped
// and logged rather than failing the whole upload.
func Read(r io.Reader, logger *slog.Logger) ([]domain.Observation, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", errors.ErrParse, err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		obs := readSheet(rows, logger)
		if len(obs) > 0 {
			logger.Info("imported spreadsheet sheet",
				slog.String("sheet", sheet),
				slog.Int("observations", len(obs)))
			return obs, nil
		}
	}
	return nil, fmt.Errorf("%w: no population data found in workbook", errors.ErrParse)
}

// ReadFile parses a workbook on disk. Used by the scraper CLI's upload path.
func ReadFile(path string, logger *slog.Logger) ([]domain.Observation, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", errors.ErrParse, path, err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		if obs := readSheet(rows, logger); len(obs) > 0 {
			return obs, nil
		}
	}
	return nil, fmt.Errorf("%w: no population data found in %s", errors.ErrParse, path)
}

func readSheet(rows [][]string, logger *slog.Logger) []domain.Observation {
	cols, headerRow := findColumns(rows)
	start := headerRow + 1

	var obs []domain.Observation
	for i := start; i < len(rows); i++ {
		o, err := parseRow(rows[i], cols)
		if err != nil {
			continue
		}
		if err := o.Validate(); err != nil {
			logger.Warn("skipping invalid spreadsheet row",
				slog.Int("row", i+1),
				slog.String("error", err.Error()))
			continue
		}
		obs = append(obs, o)
	}
	return obs
}

// findColumns locates the header row and maps columns by name. When no
// header is recognized it assumes the positional layout city, year,
// population, change and treats every row as data.
func findColumns(rows [][]string) (columnMap, int) {
	for i, row := range rows {
		if i > 5 {
			break
		}
		cols := columnMap{city: -1, year: -1, population: -1, change: -1}
		for j, cell := range row {
			name := strings.ToLower(strings.TrimSpace(cell))
			if name == "" {
				continue
			}
			switch {
			case cols.city < 0 && matchesVariant(name, "city"):
				cols.city = j
			case cols.year < 0 && matchesVariant(name, "year"):
				cols.year = j
			case cols.population < 0 && matchesVariant(name, "population"):
				cols.population = j
			case cols.change < 0 && matchesVariant(name, "change"):
				cols.change = j
			}
		}
		if cols.city >= 0 && cols.year >= 0 && cols.population >= 0 {
			return cols, i
		}
	}
	return columnMap{city: 0, year: 1, population: 2, change: 3}, -1
}

func matchesVariant(name, key string) bool {
	for _, v := range headerVariants[key] {
		if name == v || strings.Contains(name, v) {
			return true
		}
	}
	return false
}

func parseRow(row []string, cols columnMap) (domain.Observation, error) {
	cell := func(idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	city := NormalizeCity(cell(cols.city))
	if city == "" {
		return domain.Observation{}, fmt.Errorf("empty city")
	}

	year, err := strconv.Atoi(strings.TrimSuffix(cell(cols.year), "年"))
	if err != nil {
		return domain.Observation{}, fmt.Errorf("bad year %q: %w", cell(cols.year), err)
	}

	population, err := parseNumber(cell(cols.population))
	if err != nil {
		return domain.Observation{}, fmt.Errorf("bad population %q: %w", cell(cols.population), err)
	}

	var change float64
	if raw := cell(cols.change); raw != "" {
		if change, err = parseNumber(raw); err != nil {
			return domain.Observation{}, fmt.Errorf("bad change %q: %w", raw, err)
		}
	}

	return domain.Observation{
		City:         city,
		Year:         year,
		Population:   population,
		ChangeAmount: change,
		Direction:    domain.DirectionFor(change),
		Source:       domain.SourceUploaded,
	}, nil
}

// parseNumber accepts plain floats plus figures carrying a 万人 or 万 suffix.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSuffix(s, "人"), "万")
	s = strings.ReplaceAll(s, ",", "")
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// NormalizeCity trims whitespace and guarantees the 市 suffix so uploaded
// names join cleanly against scraped ones.
func NormalizeCity(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if !strings.HasSuffix(name, "市") {
		name += "市"
	}
	return name
}
