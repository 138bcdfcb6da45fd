package domain

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Observation represents one population data point for a city-year, produced
// either by the scraping pipeline or by an uploaded spreadsheet row. Population
// and ChangeAmount are expressed in 万人 (ten-thousand persons), the unit the
// source bulletins report in. An observation is immutable once reconciled.
type Observation struct {
	// City is the city name as it appears in the source, always ending in 市
	// (e.g. "广州市"). Non-Han tokens are rejected by the extractor.
	City string `json:"city" csv:"City" validate:"required"`

	// Year the figure refers to, not the year the page was published.
	Year int `json:"year" csv:"Year" validate:"required,min=2000,max=2100"`

	// Population is the resident population in 万人.
	Population float64 `json:"population" csv:"Population" validate:"required,gt=0"`

	// ChangeAmount is the signed year-over-year change in 万人. Zero means the
	// source reported a bare population count with no explicit change.
	ChangeAmount float64 `json:"change_amount" csv:"ChangeAmount"`

	// Direction mirrors the sign of ChangeAmount for sources that phrase the
	// change as 增加/减少 rather than a signed figure.
	Direction ChangeDirection `json:"change_direction" csv:"ChangeDirection"`

	// Source records whether this observation was scraped or uploaded.
	Source SourceKind `json:"source" csv:"Source"`

	// SourceURL is the page the observation was extracted from; empty for
	// uploaded rows.
	SourceURL string `json:"source_url,omitempty" csv:"SourceURL"`
}

// ChangeDirection indicates whether a population changed up or down.
type ChangeDirection string

const (
	DirectionIncrease ChangeDirection = "increase"
	DirectionDecrease ChangeDirection = "decrease"
)

// SourceKind identifies where an observation came from.
type SourceKind string

const (
	SourceScraped   SourceKind = "scraped"
	SourceUploaded  SourceKind = "uploaded"
	SourceSynthetic SourceKind = "synthetic"
)

// DirectionFor returns the direction matching a signed change amount.
func DirectionFor(change float64) ChangeDirection {
	if change < 0 {
		return DirectionDecrease
	}
	return DirectionIncrease
}

// Key is the identity of an observation within a dataset.
type Key struct {
	City string
	Year int
}

// Key returns the (city, year) identity of the observation.
func (o Observation) Key() Key {
	return Key{City: o.City, Year: o.Year}
}

// HasChange reports whether the observation carries an explicit non-zero
// year-over-year change. Observations with a change are considered more
// informative than bare population counts during reconciliation.
func (o Observation) HasChange() bool {
	return o.ChangeAmount != 0
}

var validate = validator.New()

// Validate checks the struct tags on a single observation.
func (o Observation) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid observation %s/%d: %w", o.City, o.Year, err)
	}
	return nil
}

// FetchReport records the outcome of scraping a single source page. The UI
// uses these to show which sources contributed to the merged dataset.
type FetchReport struct {
	URL      string        `json:"url"`
	OK       bool          `json:"ok"`
	Records  int           `json:"records"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}
