package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "popflow/internal/errors"
	"popflow/internal/i18n"
)

// I18nHandler serves the bilingual UI string catalog.
type I18nHandler struct {
	errorHandler *apierrors.ErrorHandler
}

// NewI18nHandler creates a translations handler.
func NewI18nHandler(errorHandler *apierrors.ErrorHandler) *I18nHandler {
	return &I18nHandler{errorHandler: errorHandler}
}

// Routes returns the translation routes.
func (h *I18nHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/languages", h.GetLanguages)
	r.Get("/{lang}", h.GetCatalog)
	return r
}

// GetLanguages handles GET /api/translations/languages.
func (h *I18nHandler) GetLanguages(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, i18n.Languages)
}

// GetCatalog handles GET /api/translations/{lang}.
func (h *I18nHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	lang := chi.URLParam(r, "lang")
	if !i18n.Supported(lang) {
		h.errorHandler.HandleError(w, r, apierrors.ValidationProblem("lang", fmt.Sprintf("unsupported language %q", lang)))
		return
	}
	render.JSON(w, r, i18n.Catalog(lang))
}
