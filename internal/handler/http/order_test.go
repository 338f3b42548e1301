package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Sivaraj16/medicals/internal/domain"
	"github.com/Sivaraj16/medicals/internal/event"
	"github.com/Sivaraj16/medicals/internal/repository"
	apperrors "github.com/Sivaraj16/medicals/pkg/errors"
)

func placeOrderBody() map[string]any {
	return map[string]any{
		"customer": map[string]any{"name": "Jane Doe", "phone": "555-0100"},
		"items": []map[string]any{
			{"medicineId": paracetamolID, "name": "Paracetamol 500mg", "price": 10, "quantity": 2},
			{"medicineId": ibuprofenID, "name": "Ibuprofen 200mg", "price": 5, "quantity": 1},
		},
		"taxRate": 10,
		"total":   27.5,
	}
}

func TestOrders_PlaceOrder(t *testing.T) {
	env := newTestEnv(t, false)
	env.orders.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
		return o.Subtotal == 25 && o.Tax == 2.5 && o.Total == 27.5 && o.Customer.Name == "Jane Doe"
	})).Return(&domain.CheckoutResult{Changes: []domain.StockChange{
		{MedicineID: paracetamolID, Name: "Paracetamol 500mg", Sold: 2, Remaining: 38},
		{MedicineID: ibuprofenID, Name: "Ibuprofen 200mg", Sold: 1, Remaining: 0},
	}}, nil)

	rec := env.do(t, http.MethodPost, "/orders", placeOrderBody())

	require.Equal(t, http.StatusCreated, rec.Code)
	var got domain.Order
	decodeData(t, rec, &got)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, 27.5, got.Total)
	require.Len(t, got.Items, 2)
	assert.Equal(t, 20.0, got.Items[0].Total)

	assert.ElementsMatch(t, []string{
		event.TopicOrderPlaced,
		event.TopicInventoryUpdated,
		event.TopicInventoryUpdated,
		event.TopicInventoryDepleted,
	}, env.pub.Topics())
}

func TestOrders_PlaceOrder_DefaultCustomer(t *testing.T) {
	env := newTestEnv(t, false)
	env.orders.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
		return o.Customer.Name == domain.DefaultCustomerName && o.Tax == 0
	})).Return(&domain.CheckoutResult{Skipped: []string{"unknown"}}, nil)

	rec := env.do(t, http.MethodPost, "/orders", map[string]any{
		"items": []map[string]any{{"medicineId": "unknown", "name": "Loose item", "price": 2, "quantity": 1}},
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var got domain.Order
	decodeData(t, rec, &got)
	assert.Equal(t, 2.0, got.Total)
}

func TestOrders_PlaceOrder_NoItems(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodPost, "/orders", map[string]any{"items": []any{}})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
	env.orders.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestOrders_PlaceOrder_QuantityOutOfRange(t *testing.T) {
	env := newTestEnv(t, false)
	body := placeOrderBody()
	body["items"].([]map[string]any)[0]["quantity"] = 2147483648

	rec := env.do(t, http.MethodPost, "/orders", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
	env.orders.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestOrders_PlaceOrder_TotalMismatch(t *testing.T) {
	env := newTestEnv(t, false)
	body := placeOrderBody()
	body["total"] = 30

	rec := env.do(t, http.MethodPost, "/orders", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decodeError(t, rec).Code)
	env.orders.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestOrders_PlaceOrder_InsufficientStock(t *testing.T) {
	env := newTestEnv(t, false)
	env.orders.On("PlaceOrder", mock.Anything, mock.Anything).
		Return(nil, apperrors.InsufficientStock("Ibuprofen 200mg", 0, 1))

	rec := env.do(t, http.MethodPost, "/orders", placeOrderBody())

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INSUFFICIENT_STOCK", decodeError(t, rec).Code)
	assert.Empty(t, env.pub.Topics())
}

func TestOrders_List_Filters(t *testing.T) {
	env := newTestEnv(t, false)
	env.orders.On("List", mock.Anything, domain.OrderFilter{Query: "jane", From: "2024-01-01", To: "2024-01-31"}).
		Return([]domain.Order{{ID: "o-1", Total: 12}}, nil)

	rec := env.do(t, http.MethodGet, "/orders?q=jane&from=2024-01-01&to=2024-01-31", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.Order
	decodeData(t, rec, &got)
	require.Len(t, got, 1)
	assert.Equal(t, "o-1", got[0].ID)
}

func TestOrders_List_InvertedRange(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodGet, "/orders?from=2024-02-01&to=2024-01-01", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env.orders.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestOrders_Get_NotFound(t *testing.T) {
	env := newTestEnv(t, false)
	env.orders.On("GetByID", mock.Anything, "o-404").Return(nil, apperrors.NotFound("order", "o-404"))

	rec := env.do(t, http.MethodGet, "/orders/o-404", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboard_Summary(t *testing.T) {
	env := newTestEnv(t, false)
	discounted := paracetamol()
	discounted.Discount = 1
	env.medicines.On("List", mock.Anything, repository.MedicineFilter{}).
		Return([]domain.Medicine{*discounted, *ibuprofen()}, nil)
	env.orders.On("CountRefunded", mock.Anything).Return(2, nil)

	rec := env.do(t, http.MethodGet, "/dashboard", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.DashboardSummary
	decodeData(t, rec, &got)
	assert.Equal(t, 40, got.TotalDiscounts)
	assert.Equal(t, 3, got.TotalExpired)
	assert.Equal(t, 2, got.TotalRefunded)
	assert.Empty(t, got.ExpiringMedicines)
}
