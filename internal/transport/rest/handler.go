// Package rest provides HTTP handlers for the storefront API.
package rest

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ecommercehub/storefront/internal/catalog"
	"github.com/ecommercehub/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// CatalogHandler serves product browsing and product detail requests.
type CatalogHandler struct {
	service *catalog.Service
	logger  *slog.Logger
}

// NewCatalogHandler creates a new CatalogHandler with the provided service.
func NewCatalogHandler(service *catalog.Service, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the catalog routes.
func (h *CatalogHandler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.Browse)
		r.Get("/{id}", h.FindByID)
	})

	r.Get("/healthz", h.HealthCheck)
}

// browseResponse is the result page of a catalog query. Items is cumulative:
// page n holds the items of pages 1 through n, so "load more" clients render
// it as-is instead of appending.
type browseResponse struct {
	Items     []catalog.Product `json:"items"`
	Total     int               `json:"total"`
	Page      int               `json:"page"`
	Exhausted bool              `json:"exhausted"`
}

// Browse runs the catalog query pipeline over the query parameters: search,
// categories (csv), brands (csv), price_min, price_max, sort, page.
func (h *CatalogHandler) Browse(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := web.ParseOptionalGt(r, w, mLogger, "page", 0, 1)
	if !ok {
		return
	}
	priceRange, ok := parsePriceRange(w, r, mLogger)
	if !ok {
		return
	}
	query := catalog.Query{
		Search: r.URL.Query().Get("search"),
		Filters: catalog.FilterState{
			Categories: splitCSV(r.URL.Query().Get("categories")),
			Brands:     splitCSV(r.URL.Query().Get("brands")),
			Price:      priceRange,
		},
		Sort: catalog.ParseSortKey(r.URL.Query().Get("sort")),
	}

	mLogger.DebugContext(r.Context(), "Received catalog browse request",
		"search", query.Search, "sort", string(query.Sort), "page", page)
	result, err := h.service.Browse(r.Context(), query, int(page))
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error running catalog query", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	mLogger.DebugContext(r.Context(), "Catalog query completed", "total", result.Total, "visible", len(result.Products))
	web.RespondJSON(w, mLogger, http.StatusOK, browseResponse{
		Items:     result.Products,
		Total:     result.Total,
		Page:      result.Page,
		Exhausted: result.Exhausted,
	})
}

// FindByID retrieves a product by its ID.
func (h *CatalogHandler) FindByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find product by ID", "ID", id)
	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving product", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve product with ID %d", id))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// HealthCheck is a simple health check endpoint.
func (h *CatalogHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *CatalogHandler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}

// parsePriceRange reads price_min/price_max. Absent parameters leave the
// corresponding bound open; both absent means no price filtering at all. An
// inverted range is passed through: the pipeline answers it with an empty
// result rather than an error.
func parsePriceRange(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*catalog.PriceRange, bool) {
	minStr := r.URL.Query().Get("price_min")
	maxStr := r.URL.Query().Get("price_max")
	if minStr == "" && maxStr == "" {
		return nil, true
	}
	pr := &catalog.PriceRange{}
	if minStr != "" {
		v, err := decimal.NewFromString(minStr)
		if err != nil || v.IsNegative() {
			web.RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid price_min: %s", minStr))
			return nil, false
		}
		pr.Min = &v
	}
	if maxStr != "" {
		v, err := decimal.NewFromString(maxStr)
		if err != nil || v.IsNegative() {
			web.RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid price_max: %s", maxStr))
			return nil, false
		}
		pr.Max = &v
	}
	return pr, true
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// respondValidationErrors writes a field-level 400 response when err is a set
// of validation errors. Returns true if it handled the error.
func respondValidationErrors(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return false
	}
	errorResponse := make(map[string]string)
	for _, fieldErr := range validationErrors {
		// fieldErr.Tag() returns "required", "min", etc.
		errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
	}
	logger.Warn("Validation errors occurred", "errors", errorResponse)
	web.RespondJSON(w, logger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
	return true
}
