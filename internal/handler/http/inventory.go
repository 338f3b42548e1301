package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Sivaraj16/medicals/internal/domain"
	"github.com/Sivaraj16/medicals/internal/search"
	"github.com/Sivaraj16/medicals/internal/service"
	"github.com/Sivaraj16/medicals/pkg/httputil"
)

// InventoryHandler handles HTTP requests for catalog endpoints.
type InventoryHandler struct {
	service *service.InventoryService
	logger  *slog.Logger
}

// NewInventoryHandler creates a new inventory HTTP handler.
func NewInventoryHandler(svc *service.InventoryService, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateMedicineRequest is the JSON request body for adding a medicine.
type CreateMedicineRequest struct {
	Name       string   `json:"name" validate:"required,max=200"`
	Price      *float64 `json:"price" validate:"required,gte=0,lt=10000000000"`
	Quantity   *int     `json:"quantity" validate:"required,gte=0,lte=2147483647"`
	ExpireDate string   `json:"expireDate" validate:"required,datetime=2006-01-02"`
	Discount   float64  `json:"discount" validate:"gte=0,lt=10000000000"`
	BatchID    string   `json:"batchId" validate:"max=100"`
	Supplier   string   `json:"supplier" validate:"max=200"`
	ImageURL   string   `json:"imageUrl" validate:"omitempty,url"`
}

// UpdateMedicineRequest is the JSON request body for a stock/discount edit.
type UpdateMedicineRequest struct {
	Quantity *int     `json:"quantity" validate:"omitempty,gte=0,lte=2147483647"`
	Discount *float64 `json:"discount" validate:"omitempty,gte=0,lt=10000000000"`
}

// ApplyDiscountRequest is the JSON request body for computing a discount.
type ApplyDiscountRequest struct {
	Mode   string   `json:"mode" validate:"required,oneof=percentage fixed"`
	Amount *float64 `json:"amount" validate:"required"`
}

// SearchResponse is a page of search matches.
type SearchResponse struct {
	Items []domain.Medicine `json:"items"`
	Total int               `json:"total"`
}

// --- Handlers ---

// List handles GET /inventory
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.service.List(r.Context())
	h.writeList(w, r, medicines, err)
}

// Expired handles GET /inventory/expired
func (h *InventoryHandler) Expired(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.service.Expired(r.Context())
	h.writeList(w, r, medicines, err)
}

// Expiring handles GET /inventory/expiring?days=N
func (h *InventoryHandler) Expiring(w http.ResponseWriter, r *http.Request) {
	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadParam(w, "days must be a positive integer")
			return
		}
		days = n
	}

	medicines, err := h.service.Expiring(r.Context(), days)
	h.writeList(w, r, medicines, err)
}

// Discounted handles GET /inventory/discounted
func (h *InventoryHandler) Discounted(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.service.Discounted(r.Context())
	h.writeList(w, r, medicines, err)
}

// OutOfStock handles GET /inventory/out-of-stock
func (h *InventoryHandler) OutOfStock(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.service.OutOfStock(r.Context())
	h.writeList(w, r, medicines, err)
}

func (h *InventoryHandler) writeList(w http.ResponseWriter, r *http.Request, medicines []domain.Medicine, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: medicines})
}

// Search handles GET /inventory/search?q=&limit=
func (h *InventoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := search.Query{Text: r.URL.Query().Get("q")}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadParam(w, "limit must be a positive integer")
			return
		}
		q.Limit = n
	}

	medicines, total, err := h.service.Search(r.Context(), q)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: SearchResponse{Items: medicines, Total: total}})
}

// Create handles POST /inventory
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateMedicineRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	m, err := h.service.Create(r.Context(), service.CreateMedicineInput{
		Name:       req.Name,
		Price:      *req.Price,
		Quantity:   *req.Quantity,
		Discount:   req.Discount,
		ExpireDate: req.ExpireDate,
		BatchID:    req.BatchID,
		Supplier:   req.Supplier,
		ImageURL:   req.ImageURL,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: m})
}

// Get handles GET /inventory/{id}
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: m})
}

// Update handles PUT /inventory/{id}
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateMedicineRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	m, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), domain.MedicineUpdate{
		Quantity: req.Quantity,
		Discount: req.Discount,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: m})
}

// ApplyDiscount handles POST /inventory/{id}/discount
func (h *InventoryHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	var req ApplyDiscountRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	m, err := h.service.ApplyDiscount(r.Context(), chi.URLParam(r, "id"), domain.DiscountMode(req.Mode), *req.Amount)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: m})
}

// Delete handles DELETE /inventory/{id}
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: httputil.MessageResponse{Message: "Medicine deleted"}})
}

func writeBadParam(w http.ResponseWriter, message string) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: message},
	})
}
