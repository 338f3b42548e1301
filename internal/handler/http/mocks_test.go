package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Sivaraj16/medicals/internal/auth"
	"github.com/Sivaraj16/medicals/internal/domain"
	"github.com/Sivaraj16/medicals/internal/event"
	"github.com/Sivaraj16/medicals/internal/repository"
	redisrepo "github.com/Sivaraj16/medicals/internal/repository/redis"
	"github.com/Sivaraj16/medicals/internal/search/memory"
	"github.com/Sivaraj16/medicals/internal/service"
	"github.com/Sivaraj16/medicals/pkg/health"
	"github.com/Sivaraj16/medicals/pkg/httputil"
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

// --- Test helpers ---

const (
	testOperator = "till"
	testPassword = "counter-secret"
	testSecret   = "handler-test-secret"
)

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *fakePublisher) Publish(_ context.Context, topic string, _ *pkgkafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *fakePublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testEnv wires the real services and router over mocked repositories and
// a miniredis-backed cart store.
type testEnv struct {
	medicines *mockMedicineRepository
	orders    *mockOrderRepository
	restocks  *mockRestockRepository
	pub       *fakePublisher
	jwt       *auth.JWTManager
	router    http.Handler
}

func newTestEnv(t *testing.T, withAuth bool) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	env := &testEnv{
		medicines: new(mockMedicineRepository),
		orders:    new(mockOrderRepository),
		restocks:  new(mockRestockRepository),
		pub:       &fakePublisher{},
		jwt:       auth.NewJWTManager(testSecret, time.Hour),
	}

	logger := testLogger()
	metrics, err := service.NewMetrics(nil)
	require.NoError(t, err)
	producer := event.NewProducer(env.pub, logger)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	checkout := service.NewCheckoutService(env.orders, producer, metrics, logger)
	svc := Services{
		Inventory: service.NewInventoryService(env.medicines, memory.New(), producer, metrics, logger, 30),
		Checkout:  checkout,
		Orders:    service.NewOrderService(env.orders),
		Dashboard: service.NewDashboardService(env.medicines, env.orders, 30),
		Carts:     service.NewCartService(redisrepo.NewCartStore(client, time.Hour), env.medicines, checkout, logger),
		Restocks:  service.NewRestockService(env.restocks, env.medicines, producer, metrics, logger, 50),
		Auth:      service.NewAuthService(env.jwt, testOperator, string(hash), logger),
	}

	cfg := RouterConfig{
		Registry: prometheus.NewRegistry(),
		Gatherer: prometheus.NewRegistry(),
	}
	if withAuth {
		cfg.Tokens = env.jwt.Validator()
	}

	env.router = NewRouter(svc, health.NewHandler(), cfg, logger)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	var (
		reader      io.Reader
		contentType string
	)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}
	return e.doRaw(t, method, path, reader, contentType, header...)
}

func (e *testEnv) doRaw(t *testing.T, method, path string, body io.Reader, contentType string, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage         `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

// decodeData decodes the data half of the envelope into dst.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.Nil(t, env.Error, "unexpected error response")
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

// decodeError returns the error half of the envelope.
func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *httputil.ErrorResponse {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.NotNil(t, env.Error, "expected an error response")
	return env.Error
}

const (
	paracetamolID = "4f1c2a7e-9a55-4b0e-8f61-0d7a9b3c2e11"
	ibuprofenID   = "8b0e5d33-1c2f-4e7a-a1d4-6f9e2c5b7a40"
)

func paracetamol() *domain.Medicine {
	return &domain.Medicine{
		ID:         paracetamolID,
		Name:       "Paracetamol 500mg",
		Price:      10,
		Quantity:   40,
		ExpireDate: "2030-01-31",
		Supplier:   "Acme Pharma",
	}
}

func ibuprofen() *domain.Medicine {
	return &domain.Medicine{
		ID:         ibuprofenID,
		Name:       "Ibuprofen 200mg",
		Price:      5,
		Quantity:   3,
		ExpireDate: "2020-05-01",
	}
}

func ptr[T any](v T) *T {
	return &v
}
