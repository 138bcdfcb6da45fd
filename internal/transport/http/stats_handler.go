package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "popflow/internal/errors"
	"popflow/internal/stats"
	"popflow/pkg/contracts/domain"
)

// StatsHandler serves the statistics endpoints computed over the current
// dataset. All endpoints honor the same city/year filters as the data
// routes, so dashboard panels stay consistent with the table view.
type StatsHandler struct {
	service      DataProvider
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewStatsHandler creates a statistics handler.
func NewStatsHandler(service DataProvider, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *StatsHandler {
	return &StatsHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "stats_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the statistics routes.
func (h *StatsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/summary", h.GetSummary)
	r.Get("/metrics", h.GetMetrics)
	r.Get("/trends", h.GetTrends)
	r.Get("/forecast", h.GetForecast)
	r.Get("/clusters", h.GetClusters)
	r.Get("/outliers", h.GetOutliers)

	return r
}

// GetSummary handles GET /api/stats/summary.
func (h *StatsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, stats.Summarize(*ds))
}

// GetMetrics handles GET /api/stats/metrics: per-city CAGR, net migration
// rate, and migration efficiency over the selected span.
func (h *StatsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}
	metrics := stats.CityMetricsFor(*ds)
	render.JSON(w, r, map[string]interface{}{
		"metrics": metrics,
		"count":   len(metrics),
	})
}

// GetTrends handles GET /api/stats/trends.
func (h *StatsHandler) GetTrends(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}
	trends := stats.CityTrends(*ds)
	render.JSON(w, r, map[string]interface{}{
		"trends": trends,
		"count":  len(trends),
	})
}

// GetForecast handles GET /api/stats/forecast?years=N (default 3, max 10).
func (h *StatsHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	years, err := intParam(r, "years", 3, 1, 10)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}
	points := stats.Forecast(*ds, years)
	render.JSON(w, r, map[string]interface{}{
		"horizon_years": years,
		"points":        points,
	})
}

// GetClusters handles GET /api/stats/clusters?k=N (default 3).
func (h *StatsHandler) GetClusters(w http.ResponseWriter, r *http.Request) {
	k, err := intParam(r, "k", 3, 1, 10)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}
	assignments := stats.ClusterCities(*ds, k)
	render.JSON(w, r, map[string]interface{}{
		"k":        k,
		"clusters": assignments,
	})
}

// GetOutliers handles GET /api/stats/outliers?threshold=Z (default 2.0).
func (h *StatsHandler) GetOutliers(w http.ResponseWriter, r *http.Request) {
	threshold := stats.DefaultOutlierThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			h.errorHandler.HandleError(w, r, apierrors.ValidationProblem("threshold", fmt.Sprintf("%q is not a positive number", raw)))
			return
		}
		threshold = v
	}
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}
	outliers := stats.Outliers(*ds, threshold)
	render.JSON(w, r, map[string]interface{}{
		"threshold": threshold,
		"outliers":  outliers,
	})
}

// dataset loads the reconciled dataset and applies the shared city/year
// filters. A filter selecting nothing is reported as an undefined-statistic
// error rather than serving NaN aggregates.
func (h *StatsHandler) dataset(w http.ResponseWriter, r *http.Request) (*domain.Dataset, bool) {
	ds, err := h.service.Dataset(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}

	var cities []string
	if raw := r.URL.Query().Get("cities"); raw != "" {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cities = append(cities, c)
			}
		}
	}
	from, err := yearParam(r, "from")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}
	to, err := yearParam(r, "to")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}

	filtered := ds.Filter(cities, from, to)
	if filtered.Empty() {
		h.errorHandler.HandleError(w, r,
			fmt.Errorf("%w: no rows match the requested filters", apierrors.ErrUndefined))
		return nil, false
	}
	return filtered, true
}

func intParam(r *http.Request, name string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return 0, apierrors.ValidationProblem(name, fmt.Sprintf("%q must be an integer in [%d, %d]", raw, min, max))
	}
	return v, nil
}
