package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Sivaraj16/medicals/internal/domain"
	"github.com/Sivaraj16/medicals/internal/service"
	"github.com/Sivaraj16/medicals/pkg/httputil"
	"github.com/Sivaraj16/medicals/pkg/middleware"
)

// OrderHandler handles HTTP requests for checkout and order history.
type OrderHandler struct {
	checkout *service.CheckoutService
	orders   *service.OrderService
	logger   *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(checkout *service.CheckoutService, orders *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		checkout: checkout,
		orders:   orders,
		logger:   logger,
	}
}

// CustomerRequest identifies the buyer. Blank fields get walk-in defaults.
type CustomerRequest struct {
	Name  string `json:"name" validate:"max=200"`
	Phone string `json:"phone" validate:"max=50"`
}

// OrderItemRequest is one sold line.
type OrderItemRequest struct {
	MedicineID string  `json:"medicineId" validate:"required"`
	Name       string  `json:"name" validate:"max=200"`
	Price      float64 `json:"price" validate:"gte=0,lt=10000000000"`
	Quantity   int     `json:"quantity" validate:"required,gte=1,lte=2147483647"`
}

// PlaceOrderRequest is the JSON request body for a checkout. Amounts the till
// computed are optional and checked against the server's computation.
type PlaceOrderRequest struct {
	Customer CustomerRequest    `json:"customer"`
	Items    []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	Subtotal *float64           `json:"subtotal"`
	Tax      *float64           `json:"tax" validate:"omitempty,gte=0,lt=10000000000"`
	TaxRate  *float64           `json:"taxRate" validate:"omitempty,gte=0"`
	Total    *float64           `json:"total"`
	Date     *time.Time         `json:"date"`
}

// PlaceOrder handles POST /orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	items := make([]domain.OrderItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = domain.OrderItem{
			MedicineID: it.MedicineID,
			Name:       it.Name,
			Price:      it.Price,
			Quantity:   it.Quantity,
		}
	}

	order, err := h.checkout.PlaceOrder(r.Context(), service.PlaceOrderInput{
		Customer:   domain.Customer{Name: req.Customer.Name, Phone: req.Customer.Phone},
		Items:      items,
		TaxRate:    req.TaxRate,
		Subtotal:   req.Subtotal,
		Tax:        req.Tax,
		Total:      req.Total,
		Date:       req.Date,
		OperatorID: middleware.OperatorIDFromContext(r.Context()),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}

// List handles GET /orders?q=&from=&to=
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orders, err := h.orders.List(r.Context(), domain.OrderFilter{
		Query: q.Get("q"),
		From:  q.Get("from"),
		To:    q.Get("to"),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: orders})
}

// Get handles GET /orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}
