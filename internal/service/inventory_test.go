package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Sivaraj16/medicals/internal/domain"
	"github.com/Sivaraj16/medicals/internal/event"
	"github.com/Sivaraj16/medicals/internal/repository"
	"github.com/Sivaraj16/medicals/internal/search"
	"github.com/Sivaraj16/medicals/internal/search/memory"
	apperrors "github.com/Sivaraj16/medicals/pkg/errors"
)

type failingEngine struct{}

func (failingEngine) Index(context.Context, *domain.Medicine) error { return errors.New("index down") }

func (failingEngine) Delete(context.Context, string) error { return errors.New("index down") }

func (failingEngine) BulkIndex(context.Context, []domain.Medicine) error {
	return errors.New("index down")
}

func (failingEngine) Search(context.Context, search.Query) (*search.Result, error) {
	return nil, errors.New("index down")
}

type inventoryFixture struct {
	repo    *mockMedicineRepository
	engine  *memory.Engine
	pub     *fakePublisher
	metrics *Metrics
	svc     *InventoryService
}

func newInventoryFixture(t *testing.T) *inventoryFixture {
	f := &inventoryFixture{
		repo:    new(mockMedicineRepository),
		engine:  memory.New(),
		pub:     &fakePublisher{},
		metrics: newTestMetrics(t),
	}
	f.svc = NewInventoryService(f.repo, f.engine, newTestProducer(f.pub), f.metrics, newTestLogger(), 30)
	f.svc.today = func() string { return "2024-06-01" }
	return f
}

func paracetamol() *domain.Medicine {
	return &domain.Medicine{
		ID:         "3f1e6a52-8c1d-4b7e-9a3f-2d5c8e7b1a90",
		Name:       "Paracetamol",
		Price:      10,
		Quantity:   40,
		ExpireDate: "2025-01-01",
		Supplier:   "Acme Pharma",
	}
}

func TestInventoryCreate_Success(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()

	f.repo.On("Create", ctx, mock.MatchedBy(func(m *domain.Medicine) bool {
		return m.ID != "" && m.Name == "Paracetamol" && m.Price == 10 && m.Quantity == 40 && !m.CreatedAt.IsZero()
	})).Return(nil)

	m, err := f.svc.Create(ctx, CreateMedicineInput{
		Name:       "  Paracetamol ",
		Price:      10,
		Quantity:   40,
		ExpireDate: "2025-01-01",
	})

	require.NoError(t, err)
	assert.Equal(t, "Paracetamol", m.Name)
	assert.Equal(t, []string{event.TopicInventoryUpdated}, f.pub.Topics())

	res, err := f.engine.Search(ctx, search.Query{Text: "para"})
	require.NoError(t, err)
	assert.Equal(t, []string{m.ID}, res.IDs)
	f.repo.AssertExpectations(t)
}

func TestInventoryCreate_Validation(t *testing.T) {
	valid := CreateMedicineInput{Name: "Paracetamol", Price: 10, Quantity: 1, ExpireDate: "2025-01-01"}

	tests := []struct {
		name   string
		modify func(*CreateMedicineInput)
	}{
		{"missing name", func(in *CreateMedicineInput) { in.Name = " " }},
		{"negative price", func(in *CreateMedicineInput) { in.Price = -1 }},
		{"negative quantity", func(in *CreateMedicineInput) { in.Quantity = -1 }},
		{"price too large", func(in *CreateMedicineInput) { in.Price = domain.AmountLimit }},
		{"quantity too large", func(in *CreateMedicineInput) { in.Quantity = domain.MaxQuantity + 1 }},
		{"negative discount", func(in *CreateMedicineInput) { in.Discount = -1 }},
		{"discount above price", func(in *CreateMedicineInput) { in.Discount = 10.5 }},
		{"bad date", func(in *CreateMedicineInput) { in.ExpireDate = "01/01/2025" }},
		{"impossible date", func(in *CreateMedicineInput) { in.ExpireDate = "2025-02-30" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newInventoryFixture(t)
			in := valid
			tt.modify(&in)

			_, err := f.svc.Create(context.Background(), in)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestInventoryCreate_IndexFailureIsNotFatal(t *testing.T) {
	f := newInventoryFixture(t)
	svc := NewInventoryService(f.repo, failingEngine{}, newTestProducer(&fakePublisher{err: errors.New("broker down")}), f.metrics, newTestLogger(), 30)
	ctx := context.Background()

	f.repo.On("Create", ctx, mock.Anything).Return(nil)

	m, err := svc.Create(ctx, CreateMedicineInput{Name: "Aspirin", Price: 3, ExpireDate: "2026-01-01"})
	require.NoError(t, err)
	assert.Equal(t, "Aspirin", m.Name)
}

func TestInventoryQueries_UseDateFilters(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()
	expired := []domain.Medicine{{ID: "a", Name: "Old", ExpireDate: "2020-01-01"}}

	f.repo.On("List", ctx, repository.MedicineFilter{ExpiredBefore: "2024-06-01"}).Return(expired, nil)
	f.repo.On("List", ctx, repository.MedicineFilter{ExpiresFrom: "2024-06-01", ExpiresTo: "2024-07-01"}).Return([]domain.Medicine{}, nil)
	f.repo.On("List", ctx, repository.MedicineFilter{ExpiresFrom: "2024-06-01", ExpiresTo: "2024-06-08"}).Return([]domain.Medicine{}, nil)
	f.repo.On("List", ctx, repository.MedicineFilter{Discounted: true}).Return([]domain.Medicine{}, nil)
	f.repo.On("List", ctx, repository.MedicineFilter{OutOfStock: true}).Return([]domain.Medicine{}, nil)

	got, err := f.svc.Expired(ctx)
	require.NoError(t, err)
	assert.Equal(t, expired, got)

	_, err = f.svc.Expiring(ctx, 0)
	require.NoError(t, err)
	_, err = f.svc.Expiring(ctx, 7)
	require.NoError(t, err)
	_, err = f.svc.Discounted(ctx)
	require.NoError(t, err)
	_, err = f.svc.OutOfStock(ctx)
	require.NoError(t, err)

	_, err = f.svc.Expiring(ctx, -1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	f.repo.AssertExpectations(t)
}

func TestInventoryUpdate_RequiresAField(t *testing.T) {
	f := newInventoryFixture(t)

	_, err := f.svc.Update(context.Background(), "id", domain.MedicineUpdate{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestInventoryUpdate_DiscountAbovePrice(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()
	m := paracetamol()

	f.repo.On("GetByID", ctx, m.ID).Return(m, nil)

	_, err := f.svc.Update(ctx, m.ID, domain.MedicineUpdate{Discount: ptr(10.01)})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestInventoryUpdate_QuantityOnly(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()
	m := paracetamol()
	updated := *m
	updated.Quantity = 5

	f.repo.On("Update", ctx, m.ID, domain.MedicineUpdate{Quantity: ptr(5)}).Return(&updated, nil)

	got, err := f.svc.Update(ctx, m.ID, domain.MedicineUpdate{Quantity: ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)
	f.repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestInventoryUpdate_NotFound(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()

	f.repo.On("GetByID", ctx, "missing").Return(nil, apperrors.NotFound("medicine", "missing"))

	_, err := f.svc.Update(ctx, "missing", domain.MedicineUpdate{Discount: ptr(1.0)})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestInventoryApplyDiscount(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()
	m := paracetamol()
	m.Price = 200
	discounted := *m
	discounted.Discount = 200

	f.repo.On("GetByID", ctx, m.ID).Return(m, nil)
	f.repo.On("Update", ctx, m.ID, domain.MedicineUpdate{Discount: ptr(200.0)}).Return(&discounted, nil)

	got, err := f.svc.ApplyDiscount(ctx, m.ID, domain.DiscountPercentage, 99.99)
	require.NoError(t, err)
	assert.Equal(t, 200.0, got.Discount)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DiscountsApplied.WithLabelValues("percentage")))
	assert.Equal(t, []string{event.TopicInventoryUpdated}, f.pub.Topics())
}

func TestInventoryApplyDiscount_Rejected(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()
	m := paracetamol()

	f.repo.On("GetByID", ctx, m.ID).Return(m, nil)

	_, err := f.svc.ApplyDiscount(ctx, m.ID, domain.DiscountFixed, 10)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = f.svc.ApplyDiscount(ctx, m.ID, "bogus", 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.DiscountsApplied.WithLabelValues("fixed")))
}

func TestInventoryDelete(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()
	m := paracetamol()
	require.NoError(t, f.engine.Index(ctx, m))

	f.repo.On("Delete", ctx, m.ID).Return(nil)

	require.NoError(t, f.svc.Delete(ctx, m.ID))

	res, err := f.engine.Search(ctx, search.Query{Text: "para"})
	require.NoError(t, err)
	assert.Empty(t, res.IDs)
	assert.Equal(t, []string{event.TopicInventoryUpdated}, f.pub.Topics())
}

func TestInventoryDelete_NotFound(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()

	f.repo.On("Delete", ctx, "missing").Return(apperrors.NotFound("medicine", "missing"))

	err := f.svc.Delete(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Empty(t, f.pub.Topics())
}

func TestInventorySearch_DropsStaleHits(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()
	live := paracetamol()
	stale := &domain.Medicine{ID: "0b7c9d1e-2f3a-4b5c-8d6e-7f8091a2b3c4", Name: "Paracip", ExpireDate: "2025-01-01"}

	require.NoError(t, f.engine.BulkIndex(ctx, []domain.Medicine{*live, *stale}))
	f.repo.On("GetByID", ctx, live.ID).Return(live, nil)
	f.repo.On("GetByID", ctx, stale.ID).Return(nil, apperrors.NotFound("medicine", stale.ID))

	got, total, err := f.svc.Search(ctx, search.Query{Text: "parac"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, got, 1)
	assert.Equal(t, live.ID, got[0].ID)
}

func TestInventorySearch_EngineError(t *testing.T) {
	f := newInventoryFixture(t)
	svc := NewInventoryService(f.repo, failingEngine{}, newTestProducer(f.pub), f.metrics, newTestLogger(), 30)

	_, _, err := svc.Search(context.Background(), search.Query{Text: "x"})
	assert.Error(t, err)
}

func TestInventoryReindex(t *testing.T) {
	f := newInventoryFixture(t)
	ctx := context.Background()

	f.repo.On("List", ctx, repository.MedicineFilter{}).Return([]domain.Medicine{*paracetamol()}, nil)

	n, err := f.svc.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	res, err := f.engine.Search(ctx, search.Query{Text: "acme"})
	require.NoError(t, err)
	assert.Len(t, res.IDs, 1)
}
