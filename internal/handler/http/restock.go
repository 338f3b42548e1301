package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Sivaraj16/medicals/internal/domain"
	"github.com/Sivaraj16/medicals/internal/service"
	"github.com/Sivaraj16/medicals/pkg/httputil"
	"github.com/Sivaraj16/medicals/pkg/pagination"
)

// RestockHandler handles HTTP requests for supplier pre-orders.
type RestockHandler struct {
	service *service.RestockService
	logger  *slog.Logger
}

// NewRestockHandler creates a new restock HTTP handler.
func NewRestockHandler(svc *service.RestockService, logger *slog.Logger) *RestockHandler {
	return &RestockHandler{service: svc, logger: logger}
}

// CreateRestockRequest is the JSON request body for a manual pre-order.
type CreateRestockRequest struct {
	MedicineID string `json:"medicineId" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,gte=1,lte=2147483647"`
	Supplier   string `json:"supplier" validate:"max=200"`
	BatchID    string `json:"batchId" validate:"max=100"`
}

// List handles GET /restock-requests?status=&page=&per_page=
func (h *RestockHandler) List(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	requests, total, err := h.service.List(r.Context(), r.URL.Query().Get("status"), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: pagination.NewResult(requests, total, params)})
}

// Create handles POST /restock-requests
func (h *RestockHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRestockRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	restock, err := h.service.Create(r.Context(), service.CreateRestockInput{
		MedicineID: req.MedicineID,
		Quantity:   req.Quantity,
		Supplier:   req.Supplier,
		BatchID:    req.BatchID,
	})
	h.write(w, r, http.StatusCreated, restock, err)
}

// Get handles GET /restock-requests/{id}
func (h *RestockHandler) Get(w http.ResponseWriter, r *http.Request) {
	restock, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	h.write(w, r, http.StatusOK, restock, err)
}

// Receive handles POST /restock-requests/{id}/receive
func (h *RestockHandler) Receive(w http.ResponseWriter, r *http.Request) {
	restock, err := h.service.Receive(r.Context(), chi.URLParam(r, "id"))
	h.write(w, r, http.StatusOK, restock, err)
}

// Cancel handles POST /restock-requests/{id}/cancel
func (h *RestockHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	restock, err := h.service.Cancel(r.Context(), chi.URLParam(r, "id"))
	h.write(w, r, http.StatusOK, restock, err)
}

func (h *RestockHandler) write(w http.ResponseWriter, r *http.Request, status int, req *domain.RestockRequest, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, status, httputil.Response{Data: req})
}
