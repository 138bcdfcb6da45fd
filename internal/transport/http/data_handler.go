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
	"popflow/internal/exporter"
	"popflow/internal/stats"
	"popflow/pkg/contracts/domain"
)

// maxUploadBytes bounds uploaded spreadsheets.
const maxUploadBytes = 10 << 20

// DataHandler serves the dataset endpoints: query, refresh, upload, export,
// and source status.
type DataHandler struct {
	service      DataProvider
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDataHandler creates a data handler.
func NewDataHandler(service DataProvider, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DataHandler {
	return &DataHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "data_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the data routes.
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetDataset)
	r.Post("/refresh", h.Refresh)
	r.Post("/upload", h.Upload)
	r.Get("/sources", h.GetSources)
	r.Get("/export/csv", h.ExportCSV)
	r.Get("/export/excel", h.ExportExcel)

	return r
}

// datasetResponse wraps the filtered dataset with its row count.
type datasetResponse struct {
	Rows  []domain.Row `json:"rows"`
	Count int          `json:"count"`
}

// GetDataset handles GET /api/data. Supported filters: cities (comma
// separated), from and to (inclusive year bounds).
func (h *DataHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := h.filteredDataset(w, r)
	if err != nil || ds == nil {
		return
	}
	render.JSON(w, r, datasetResponse{Rows: ds.Rows, Count: ds.Len()})
}

// Refresh handles POST /api/data/refresh, forcing a rebuild.
func (h *DataHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ds, err := h.service.Refresh(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "dataset refreshed", slog.Int("rows", ds.Len()))
	render.JSON(w, r, datasetResponse{Rows: ds.Rows, Count: ds.Len()})
}

// Upload handles POST /api/data/upload with a multipart "file" part.
func (h *DataHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ValidationProblem("file", "request is not valid multipart form data"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ValidationProblem("file", "missing file part"))
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx") {
		h.errorHandler.HandleError(w, r, apierrors.ValidationProblem("file", "only .xlsx workbooks are accepted"))
		return
	}

	ds, err := h.service.SaveUpload(r.Context(), file)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "spreadsheet uploaded",
		slog.String("filename", header.Filename),
		slog.Int("rows", ds.Len()))
	render.JSON(w, r, datasetResponse{Rows: ds.Rows, Count: ds.Len()})
}

// GetSources handles GET /api/data/sources, returning the outcome of the
// most recent scrape per source page.
func (h *DataHandler) GetSources(w http.ResponseWriter, r *http.Request) {
	reports := h.service.FetchReports()
	render.JSON(w, r, map[string]interface{}{
		"sources": reports,
		"count":   len(reports),
	})
}

// ExportCSV handles GET /api/data/export/csv, streaming the filtered dataset
// as a UTF-8 CSV download.
func (h *DataHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	ds, err := h.filteredDataset(w, r)
	if err != nil || ds == nil {
		return
	}
	ds.SortByCityYear()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="population_data.csv"`)
	if err := exporter.WriteCSV(w, ds, exporter.WriteOptions{BOM: true}); err != nil {
		h.logger.ErrorContext(r.Context(), "csv export failed", slog.String("error", err.Error()))
	}
}

// ExportExcel handles GET /api/data/export/excel, streaming a two-sheet
// workbook with data and summary statistics.
func (h *DataHandler) ExportExcel(w http.ResponseWriter, r *http.Request) {
	ds, err := h.filteredDataset(w, r)
	if err != nil || ds == nil {
		return
	}
	ds.SortByCityYear()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="population_data.xlsx"`)
	if err := exporter.WriteExcel(w, ds, stats.Summarize(*ds)); err != nil {
		h.logger.ErrorContext(r.Context(), "excel export failed", slog.String("error", err.Error()))
	}
}

// filteredDataset loads the dataset and applies the common query filters.
// On failure it writes the error response and returns nil.
func (h *DataHandler) filteredDataset(w http.ResponseWriter, r *http.Request) (*domain.Dataset, error) {
	ds, err := h.service.Dataset(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, err
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
		return nil, err
	}
	to, err := yearParam(r, "to")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, err
	}

	return ds.Filter(cities, from, to), nil
}

func yearParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 0 {
		return 0, apierrors.ValidationProblem(name, fmt.Sprintf("%q is not a valid year", raw))
	}
	return year, nil
}
