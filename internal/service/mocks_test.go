package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Sivaraj16/medicals/internal/domain"
	"github.com/Sivaraj16/medicals/internal/event"
	"github.com/Sivaraj16/medicals/internal/repository"
	pkgkafka "github.com/Sivaraj16/medicals/pkg/kafka"
)

// --- Mock MedicineRepository ---

type mockMedicineRepository struct {
	mock.Mock
}

func (m *mockMedicineRepository) Create(ctx context.Context, med *domain.Medicine) error {
	args := m.Called(ctx, med)
	return args.Error(0)
}

func (m *mockMedicineRepository) GetByID(ctx context.Context, id string) (*domain.Medicine, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Medicine), args.Error(1)
}

func (m *mockMedicineRepository) List(ctx context.Context, filter repository.MedicineFilter) ([]domain.Medicine, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Medicine), args.Error(1)
}

func (m *mockMedicineRepository) Update(ctx context.Context, id string, upd domain.MedicineUpdate) (*domain.Medicine, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Medicine), args.Error(1)
}

func (m *mockMedicineRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock OrderRepository ---

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) PlaceOrder(ctx context.Context, o *domain.Order) (*domain.CheckoutResult, error) {
	args := m.Called(ctx, o)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CheckoutResult), args.Error(1)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *mockOrderRepository) CountRefunded(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// --- Mock RestockRepository ---

type mockRestockRepository struct {
	mock.Mock
}

func (m *mockRestockRepository) Create(ctx context.Context, req *domain.RestockRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *mockRestockRepository) GetByID(ctx context.Context, id string) (*domain.RestockRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RestockRequest), args.Error(1)
}

func (m *mockRestockRepository) List(ctx context.Context, filter repository.RestockFilter) ([]domain.RestockRequest, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.RestockRequest), args.Int(1), args.Error(2)
}

func (m *mockRestockRepository) HasPending(ctx context.Context, medicineID string) (bool, error) {
	args := m.Called(ctx, medicineID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRestockRepository) Receive(ctx context.Context, id string) (*domain.RestockRequest, int, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(*domain.RestockRequest), args.Int(1), args.Error(2)
}

func (m *mockRestockRepository) Cancel(ctx context.Context, id string) (*domain.RestockRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RestockRequest), args.Error(1)
}

// --- Fake publisher ---

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	events []*pkgkafka.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, e *pkgkafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

// --- Test helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := NewMetrics(nil)
	require.NoError(t, err)
	return m
}

func newTestProducer(pub *fakePublisher) *event.Producer {
	return event.NewProducer(pub, newTestLogger())
}

func ptr[T any](v T) *T {
	return &v
}
