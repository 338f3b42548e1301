package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Sivaraj16/medicals/internal/domain"
	"github.com/Sivaraj16/medicals/internal/service"
	"github.com/Sivaraj16/medicals/pkg/httputil"
	"github.com/Sivaraj16/medicals/pkg/middleware"
)

// CartHandler handles HTTP requests for checkout sessions.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// OpenCartRequest is the JSON request body for starting a session.
type OpenCartRequest struct {
	Customer   CustomerRequest `json:"customer"`
	TaxPercent float64         `json:"taxPercent" validate:"gte=0"`
}

// UpdateCartRequest is the JSON request body for changing session details.
type UpdateCartRequest struct {
	Customer   *CustomerRequest `json:"customer"`
	TaxPercent *float64         `json:"taxPercent" validate:"omitempty,gte=0"`
}

// AddCartItemRequest is the JSON request body for adding one unit.
type AddCartItemRequest struct {
	MedicineID string `json:"medicineId" validate:"required"`
}

// UpdateCartItemRequest is the JSON request body for setting a quantity.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"lte=2147483647"`
}

// CartView is a session with its computed amounts.
type CartView struct {
	*domain.Cart
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

func newCartView(c *domain.Cart) CartView {
	return CartView{
		Cart:     c,
		Subtotal: c.Subtotal(),
		Tax:      c.Tax(c.TaxPercent),
		Total:    c.Total(c.TaxPercent),
	}
}

// --- Handlers ---

// Open handles POST /carts
func (h *CartHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenCartRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	cart, err := h.service.Open(r.Context(), domain.Customer{Name: req.Customer.Name, Phone: req.Customer.Phone}, req.TaxPercent)
	h.writeCart(w, r, http.StatusCreated, cart, err)
}

// Get handles GET /carts/{id}
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	h.writeCart(w, r, http.StatusOK, cart, err)
}

// Update handles PATCH /carts/{id}
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateCartRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	upd := service.CartUpdate{TaxPercent: req.TaxPercent}
	if req.Customer != nil {
		upd.Customer = &domain.Customer{Name: req.Customer.Name, Phone: req.Customer.Phone}
	}

	cart, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), upd)
	h.writeCart(w, r, http.StatusOK, cart, err)
}

// AddItem handles POST /carts/{id}/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddCartItemRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	cart, err := h.service.AddItem(r.Context(), chi.URLParam(r, "id"), req.MedicineID)
	h.writeCart(w, r, http.StatusOK, cart, err)
}

// UpdateItem handles PUT /carts/{id}/items/{medicineId}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateCartItemRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	cart, err := h.service.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "medicineId"), req.Quantity)
	h.writeCart(w, r, http.StatusOK, cart, err)
}

// RemoveItem handles DELETE /carts/{id}/items/{medicineId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.RemoveItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "medicineId"))
	h.writeCart(w, r, http.StatusOK, cart, err)
}

// Discard handles DELETE /carts/{id}
func (h *CartHandler) Discard(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Discard(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: httputil.MessageResponse{Message: "Cart discarded"}})
}

// Checkout handles POST /carts/{id}/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.Checkout(r.Context(), chi.URLParam(r, "id"), middleware.OperatorIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}

func (h *CartHandler) writeCart(w http.ResponseWriter, r *http.Request, status int, cart *domain.Cart, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, status, httputil.Response{Data: newCartView(cart)})
}
