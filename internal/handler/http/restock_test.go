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
	"github.com/Sivaraj16/medicals/pkg/pagination"
)

const restockID = "c3d9e1f0-5b6a-4c2d-9e8f-1a2b3c4d5e6f"

func pendingRestock() *domain.RestockRequest {
	return &domain.RestockRequest{
		ID:           restockID,
		MedicineID:   ibuprofenID,
		MedicineName: "Ibuprofen 200mg",
		Quantity:     50,
		Status:       domain.RestockPending,
		Source:       domain.RestockSourceAuto,
	}
}

func TestRestock_List_Paginated(t *testing.T) {
	env := newTestEnv(t, false)
	env.restocks.On("List", mock.Anything, repository.RestockFilter{Status: "pending", Page: 2, PerPage: 1}).
		Return([]domain.RestockRequest{*pendingRestock()}, 3, nil)

	rec := env.do(t, http.MethodGet, "/restock-requests?status=pending&page=2&per_page=1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var page pagination.Result[domain.RestockRequest]
	decodeData(t, rec, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 3, page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNext)
	assert.True(t, page.HasPrev)
}

func TestRestock_List_InvalidStatus(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodGet, "/restock-requests?status=shipped", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env.restocks.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestRestock_Create(t *testing.T) {
	env := newTestEnv(t, false)
	env.medicines.On("GetByID", mock.Anything, paracetamolID).Return(paracetamol(), nil)
	env.restocks.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.RestockRequest) bool {
		return r.MedicineID == paracetamolID && r.Quantity == 25 &&
			r.Supplier == "Acme Pharma" && r.BatchID == "B-77" &&
			r.Status == domain.RestockPending && r.Source == domain.RestockSourceManual
	})).Return(nil)

	rec := env.do(t, http.MethodPost, "/restock-requests", map[string]any{
		"medicineId": paracetamolID,
		"quantity":   25,
		"batchId":    "B-77",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var got domain.RestockRequest
	decodeData(t, rec, &got)
	assert.Equal(t, "Paracetamol 500mg", got.MedicineName)
}

func TestRestock_Create_PendingExists(t *testing.T) {
	env := newTestEnv(t, false)
	env.medicines.On("GetByID", mock.Anything, paracetamolID).Return(paracetamol(), nil)
	env.restocks.On("Create", mock.Anything, mock.Anything).
		Return(apperrors.Conflict("a pending restock request already exists for medicine " + paracetamolID))

	rec := env.do(t, http.MethodPost, "/restock-requests", map[string]any{
		"medicineId": paracetamolID,
		"quantity":   5,
	})

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decodeError(t, rec).Code)
}

func TestRestock_Create_ZeroQuantity(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodPost, "/restock-requests", map[string]any{
		"medicineId": paracetamolID,
		"quantity":   0,
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
}

func TestRestock_Receive(t *testing.T) {
	env := newTestEnv(t, false)
	received := pendingRestock()
	received.Status = domain.RestockReceived
	env.restocks.On("Receive", mock.Anything, restockID).Return(received, 50, nil)

	rec := env.do(t, http.MethodPost, "/restock-requests/"+restockID+"/receive", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.RestockRequest
	decodeData(t, rec, &got)
	assert.Equal(t, domain.RestockReceived, got.Status)
	assert.Equal(t, []string{event.TopicInventoryUpdated}, env.pub.Topics())
}

func TestRestock_Receive_NotPending(t *testing.T) {
	env := newTestEnv(t, false)
	env.restocks.On("Receive", mock.Anything, restockID).
		Return(nil, 0, apperrors.Conflict("restock request is already cancelled"))

	rec := env.do(t, http.MethodPost, "/restock-requests/"+restockID+"/receive", nil)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, env.pub.Topics())
}

func TestRestock_Cancel(t *testing.T) {
	env := newTestEnv(t, false)
	cancelled := pendingRestock()
	cancelled.Status = domain.RestockCancelled
	env.restocks.On("Cancel", mock.Anything, restockID).Return(cancelled, nil)

	rec := env.do(t, http.MethodPost, "/restock-requests/"+restockID+"/cancel", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.RestockRequest
	decodeData(t, rec, &got)
	assert.Equal(t, domain.RestockCancelled, got.Status)
}

func TestRestock_Get_NotFound(t *testing.T) {
	env := newTestEnv(t, false)
	env.restocks.On("GetByID", mock.Anything, "nope").Return(nil, apperrors.NotFound("restock request", "nope"))

	rec := env.do(t, http.MethodGet, "/restock-requests/nope", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
