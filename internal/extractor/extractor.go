package extractor

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"

	"popflow/pkg/contracts/domain"
)

// Extractor turns source pages into candidate observations. Every failure is
// recovered locally: a page that cannot be fetched or parsed yields an empty
// sequence and a failed FetchReport, never an error to the caller.
type Extractor struct {
	fetcher *Fetcher
	clock   clockwork.Clock
	logger  *slog.Logger
}

// New creates an extractor around the given fetcher.
func New(fetcher *Fetcher, clock clockwork.Clock, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		fetcher: fetcher,
		clock:   clock,
		logger:  logger.With(slog.String("component", "extractor")),
	}
}

// ExtractAll fetches all URLs concurrently, joins the results, and extracts
// observations from each page in source order. The returned observations
// preserve source priority order for the reconciliation fold.
func (e *Extractor) ExtractAll(ctx context.Context, urls []string, concurrency int) ([]domain.Observation, []domain.FetchReport) {
	pages := e.fetcher.FetchAll(ctx, urls, concurrency)

	var all []domain.Observation
	reports := make([]domain.FetchReport, 0, len(pages))
	for _, page := range pages {
		start := e.clock.Now()
		obs, report := e.extractPage(ctx, page)
		report.Duration = e.clock.Since(start)
		reports = append(reports, report)
		all = append(all, obs...)
	}
	return all, reports
}

// extractPage processes one fetched page.
func (e *Extractor) extractPage(ctx context.Context, page Page) ([]domain.Observation, domain.FetchReport) {
	report := domain.FetchReport{URL: page.URL}

	if page.Err != nil {
		report.Error = page.Err.Error()
		e.logger.WarnContext(ctx, "source fetch failed",
			slog.String("url", page.URL),
			slog.String("error", page.Err.Error()))
		return nil, report
	}

	text, err := ExtractText(page.Body)
	if err != nil {
		report.Error = err.Error()
		e.logger.WarnContext(ctx, "source parse failed",
			slog.String("url", page.URL),
			slog.String("error", err.Error()))
		return nil, report
	}

	if !HasPopulationContent(text) {
		// Not an error: the page simply has nothing for us.
		report.OK = true
		e.logger.DebugContext(ctx, "no population content", slog.String("url", page.URL))
		return nil, report
	}

	obs := ExtractObservations(text, e.currentYear())
	for i := range obs {
		obs[i].SourceURL = page.URL
	}

	report.OK = true
	report.Records = len(obs)
	e.logger.InfoContext(ctx, "source extracted",
		slog.String("url", page.URL),
		slog.Int("records", len(obs)))
	return obs, report
}

func (e *Extractor) currentYear() int {
	return e.clock.Now().Year()
}

// YearSources expands a base yearbook URL template for the given year range,
// most recent first. Annual bulletin indexes live under per-year paths.
func YearSources(template string, fromYear, toYear int) []string {
	var urls []string
	for y := toYear; y >= fromYear; y-- {
		urls = append(urls, strings.ReplaceAll(template, "{year}", strconv.Itoa(y)))
	}
	return urls
}
