package errors

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"popflow/internal/infrastructure"
)

// ErrorHandler provides centralized error handling for the HTTP layer.
// Every error leaving a handler goes through here so responses are uniformly
// RFC 7807 and every failure is logged with its trace id.
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger.With(slog.String("component", "error_handler")),
	}
}

// HandleError converts any error to RFC 7807 format and responds.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	traceID := infrastructure.GetTraceID(r.Context())

	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("trace_id", traceID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", traceID)

	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	var problem *ProblemDetails

	switch {
	case errors.As(err, &problem):
		// Already a problem, pass through.
	case errors.Is(err, context.DeadlineExceeded):
		problem = NewProblem(http.StatusGatewayTimeout, TypeTimeout, "Request timeout",
			"The operation took too long to complete")
	case errors.Is(err, context.Canceled):
		problem = NewProblem(499, TypeTimeout, "Request cancelled",
			"The client cancelled the request")
	case errors.Is(err, ErrDatasetEmpty):
		problem = NewProblem(http.StatusServiceUnavailable, TypeDatasetEmpty, "Dataset empty",
			"No population data has been loaded yet; trigger a refresh")
	case errors.Is(err, ErrUndefined):
		problem = NewProblem(http.StatusUnprocessableEntity, TypeStatUndefined, "Statistic undefined",
			err.Error())
	default:
		problem = InternalProblem()
	}

	if problem.Instance == "" {
		problem.Instance = r.URL.Path
	}
	return problem
}
