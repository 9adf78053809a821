package catalog

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/catalogo-muebles/internal/common"
	"github.com/noah-isme/catalogo-muebles/internal/pricing"
)

// Handler exposes public catalog endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Routes mounts the catalog endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/catalog", h.Catalog)
	r.Get("/categories", h.Categories)
	r.Get("/products", h.Products)
	r.Get("/products/{identifier}", h.ProductDetail)
	r.Get("/fabrics", h.Fabrics)
	r.Get("/providers", h.Providers)
	r.Get("/discount-rules", h.DiscountRules)
	r.Post("/pricing/quote", h.Quote)
}

// Catalog handles GET /api/v1/catalog.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	req := h.service.ParseRequest(r.URL.Query())
	payload, err := h.service.Catalog(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(payload.Total))
	w.Header().Set("X-Catalog-Source", payload.Source)
	common.JSON(w, http.StatusOK, map[string]any{
		"data":  payload,
		"links": h.links(req, payload.Total),
	})
}

// Products handles GET /api/v1/products with filters and pagination.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	req := h.service.ParseRequest(r.URL.Query())
	result, err := h.service.List(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(result.Total))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       result.Items,
		"pagination": common.NewPagination(result.Page, result.PageSize, result.Total),
		"priceRange": result.PriceRange,
		"links":      h.links(req, result.Total),
	})
}

// ProductDetail handles GET /api/v1/products/{identifier}; identifier is an id or a slug.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	detail, err := h.service.Product(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, detail)
}

// Categories handles GET /api/v1/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	categories, subtypes, err := h.service.Taxonomy(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{"categories": categories, "subtypes": subtypes})
}

// Fabrics handles GET /api/v1/fabrics.
func (h *Handler) Fabrics(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	rows, err := h.service.Fabrics(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, rows)
}

// Providers handles GET /api/v1/providers.
func (h *Handler) Providers(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	rows, err := h.service.Providers(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, rows)
}

// DiscountRules handles GET /api/v1/discount-rules.
func (h *Handler) DiscountRules(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	rules, err := h.service.Rules(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, rules)
}

type quoteRule struct {
	ID          string  `json:"id" validate:"required,max=64"`
	Label       string  `json:"label" validate:"max=120"`
	Description string  `json:"description" validate:"max=500"`
	Percentage  float64 `json:"percentage" validate:"gte=0"`
	Mode        string  `json:"mode" validate:"omitempty,oneof=discount markup"`
	ApplyOn     string  `json:"applyOn" validate:"omitempty,oneof=base running"`
}

type quoteRequest struct {
	BasePrice *int64      `json:"basePrice" validate:"required,gte=0"`
	Rules     []quoteRule `json:"rules" validate:"omitempty,max=20,dive"`
}

type quoteResponse struct {
	pricing.Breakdown
	EffectivePrice pricing.Money `json:"effectivePrice"`
	DisplayPrice   string        `json:"displayPrice"`
}

// Quote handles POST /api/v1/pricing/quote. It previews a breakdown for an
// arbitrary base price; omitting rules applies the active ladder.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var body quoteRequest
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	var rules []pricing.DiscountRule
	if body.Rules != nil {
		rules = make([]pricing.DiscountRule, 0, len(body.Rules))
		for _, qr := range body.Rules {
			rules = append(rules, pricing.Normalize(pricing.DiscountRule{
				ID:          qr.ID,
				Label:       qr.Label,
				Description: qr.Description,
				Percentage:  qr.Percentage,
				Mode:        pricing.Mode(qr.Mode),
				ApplyOn:     pricing.ApplyOn(qr.ApplyOn),
			}))
		}
	}
	breakdown, err := h.service.Quote(r.Context(), *body.BasePrice, rules)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	effective := pricing.EffectivePrice(breakdown)
	common.Data(w, http.StatusOK, quoteResponse{
		Breakdown:      breakdown,
		EffectivePrice: effective,
		DisplayPrice:   pricing.FormatCurrency(effective),
	})
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return false
	}
	return true
}

// links renders canonical query strings for the current, previous and next pages.
func (h *Handler) links(req Request, total int) map[string]string {
	out := map[string]string{"self": "?" + h.service.Link(req).Encode()}
	if req.Page > 1 {
		prev := req
		prev.Page--
		out["prev"] = "?" + h.service.Link(prev).Encode()
	}
	if req.Page*req.PageSize < total {
		next := req
		next.Page++
		out["next"] = "?" + h.service.Link(next).Encode()
	}
	return out
}
