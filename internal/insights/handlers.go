package insights

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/catalogo-muebles/internal/common"
)

// Handler exposes provider and fabric insight endpoints.
type Handler struct {
	Svc *Service
}

// Routes mounts the insight endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/providers", h.Providers)
	r.Get("/fabrics", h.Fabrics)
}

// Providers handles GET /api/v1/insights/providers.
func (h *Handler) Providers(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INSIGHTS_NOT_CONFIGURED", "insights service not configured", nil)
		return
	}
	summary, err := h.Svc.Providers(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INSIGHTS_ERROR", err.Error(), nil)
		return
	}
	common.Data(w, http.StatusOK, summary)
}

// Fabrics handles GET /api/v1/insights/fabrics.
func (h *Handler) Fabrics(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INSIGHTS_NOT_CONFIGURED", "insights service not configured", nil)
		return
	}
	summary, err := h.Svc.Fabrics(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INSIGHTS_ERROR", err.Error(), nil)
		return
	}
	common.Data(w, http.StatusOK, summary)
}
