package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ecommercehub/storefront/internal/cart"
	"github.com/ecommercehub/storefront/internal/catalog"
	"github.com/ecommercehub/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// CartHandler serves the shopping cart endpoints. Every mutation responds
// with the full cart snapshot so clients never have to patch local state.
type CartHandler struct {
	store    *cart.Store
	catalog  *catalog.Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(store *cart.Store, catalogSvc *catalog.Service, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		store:    store,
		catalog:  catalogSvc,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the cart routes.
func (h *CartHandler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Get("/", h.GetSnapshot)
		r.Delete("/", h.Clear)
		r.Post("/items", h.AddItem)
		r.Put("/items/{id}", h.UpdateQuantity)
		r.Delete("/items/{id}", h.RemoveItem)
	})
}

type addItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// updateQuantityRequest carries the new absolute quantity for a line.
// Quantity is a pointer so an explicit zero (which removes the line) is
// distinguishable from an absent field.
type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

// GetSnapshot returns the current cart contents and totals.
func (h *CartHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, h.store.Snapshot(r.Context()))
}

// AddItem adds a product to the cart, merging quantities when the product is
// already present.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		mLogger.WarnContext(r.Context(), "Invalid request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		if respondValidationErrors(w, mLogger, err) {
			return
		}
		mLogger.ErrorContext(r.Context(), "Error validating request", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Internal server error")
		return
	}

	product, err := h.catalog.FindByID(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found", "ID", req.ProductID)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", req.ProductID))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving product", "ID", req.ProductID, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to add item to cart")
		return
	}

	snapshot, err := h.store.AddItem(r.Context(), *product, req.Quantity)
	if err != nil {
		h.respondCartError(w, r, mLogger, err, "Failed to add item to cart")
		return
	}
	mLogger.InfoContext(r.Context(), "Item added to cart", "ID", req.ProductID, "quantity", req.Quantity)
	web.RespondJSON(w, mLogger, http.StatusOK, snapshot)
}

// UpdateQuantity sets the absolute quantity of a cart line. Quantity zero
// removes the line; an unknown product ID leaves the cart untouched and
// answers 204.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		mLogger.WarnContext(r.Context(), "Invalid request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		if respondValidationErrors(w, mLogger, err) {
			return
		}
		mLogger.ErrorContext(r.Context(), "Error validating request", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Internal server error")
		return
	}

	snapshot, found, err := h.store.UpdateQuantity(r.Context(), id, *req.Quantity)
	if err != nil {
		h.respondCartError(w, r, mLogger, err, "Failed to update cart item")
		return
	}
	if !found {
		mLogger.InfoContext(r.Context(), "Cart item not in cart, nothing to update", "ID", id)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	mLogger.InfoContext(r.Context(), "Cart item quantity updated", "ID", id, "quantity", *req.Quantity)
	web.RespondJSON(w, mLogger, http.StatusOK, snapshot)
}

// RemoveItem removes a cart line. Removing an absent product is a no-op
// answered with 204.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	snapshot, found, err := h.store.RemoveItem(r.Context(), id)
	if err != nil {
		h.respondCartError(w, r, mLogger, err, "Failed to remove cart item")
		return
	}
	if !found {
		mLogger.InfoContext(r.Context(), "Cart item not in cart, nothing to remove", "ID", id)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	mLogger.InfoContext(r.Context(), "Cart item removed", "ID", id)
	web.RespondJSON(w, mLogger, http.StatusOK, snapshot)
}

// Clear empties the cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	snapshot, err := h.store.Clear(r.Context())
	if err != nil {
		h.respondCartError(w, r, mLogger, err, "Failed to clear cart")
		return
	}
	mLogger.InfoContext(r.Context(), "Cart cleared")
	web.RespondJSON(w, mLogger, http.StatusOK, snapshot)
}

func (h *CartHandler) respondCartError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, cart.ErrInvalidProduct):
		mLogger.WarnContext(r.Context(), "Cart operation rejected", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
	default:
		mLogger.ErrorContext(r.Context(), "Cart operation failed", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fallback)
	}
}

func (h *CartHandler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
