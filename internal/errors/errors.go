package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Problem type URIs following RFC 7807.
const (
	TypeValidation  = "/errors/validation"
	TypeNotFound    = "/errors/not-found"
	TypeRateLimit   = "/errors/rate-limit"
	TypeInternal    = "/errors/internal"
	TypeTimeout     = "/errors/timeout"
	TypeUnavailable = "/errors/service-unavailable"

	TypeDatasetEmpty  = "/errors/dataset/empty"
	TypeUploadInvalid = "/errors/upload/invalid"
	TypeStatUndefined = "/errors/stats/undefined"
)

// Pipeline sentinel errors. Fetch and parse failures are recovered locally by
// the extractor (the page simply contributes nothing); they exist as typed
// errors so callers and fetch reports can classify outcomes.
var (
	// ErrFetch marks a network/HTTP failure or non-200 response.
	ErrFetch = errors.New("fetch failed")
	// ErrParse marks a page whose structured and fallback extraction both
	// produced no text.
	ErrParse = errors.New("parse failed")
	// ErrCacheWrite marks an unwritable cache directory; the store degrades
	// to memory-only caching.
	ErrCacheWrite = errors.New("cache write failed")
	// ErrUndefined marks a statistic with no defined value (division by zero,
	// insufficient sample). The numeric result is NaN, never a panic.
	ErrUndefined = errors.New("statistic undefined")
	// ErrDatasetEmpty is returned when an operation needs a dataset and none
	// has been loaded yet.
	ErrDatasetEmpty = errors.New("dataset is empty")
)

// ProblemDetails is an RFC 7807 problem response.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface.
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// Error implements the error interface.
func (pd *ProblemDetails) Error() string {
	return fmt.Sprintf("%s (%d): %s", pd.Title, pd.Status, pd.Detail)
}

// MarshalJSON includes extensions alongside the standard fields.
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})

	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status
	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}
	for k, v := range pd.Extensions {
		data[k] = v
	}
	return json.Marshal(data)
}

// WithExtension attaches an extension field and returns the problem for
// chaining.
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	if pd.Extensions == nil {
		pd.Extensions = make(map[string]interface{})
	}
	pd.Extensions[key] = value
	return pd
}

// NewProblem creates a problem response.
func NewProblem(status int, problemType, title, detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemType,
		Title:  title,
		Status: status,
		Detail: detail,
	}
}

// ValidationProblem creates a 400 problem for a failed field validation.
func ValidationProblem(field, detail string) *ProblemDetails {
	p := NewProblem(http.StatusBadRequest, TypeValidation, "Validation failed", detail)
	return p.WithExtension("field", field)
}

// NotFoundProblem creates a 404 problem.
func NotFoundProblem(detail string) *ProblemDetails {
	return NewProblem(http.StatusNotFound, TypeNotFound, "Resource not found", detail)
}

// InternalProblem creates a 500 problem without leaking internals.
func InternalProblem() *ProblemDetails {
	return NewProblem(http.StatusInternalServerError, TypeInternal, "Internal server error",
		"An unexpected error occurred")
}
