package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Sivaraj16/medicals/internal/domain"
	"github.com/Sivaraj16/medicals/internal/event"
	"github.com/Sivaraj16/medicals/internal/repository"
	apperrors "github.com/Sivaraj16/medicals/pkg/errors"
	"github.com/Sivaraj16/medicals/pkg/pagination"
)

// CreateRestockInput holds the data for a manual pre-order. Supplier and
// batch default to the medicine's own.
type CreateRestockInput struct {
	MedicineID string
	Quantity   int
	Supplier   string
	BatchID    string
}

// RestockService manages supplier pre-orders.
type RestockService struct {
	repo            repository.RestockRepository
	medicines       repository.MedicineRepository
	producer        *event.Producer
	metrics         *Metrics
	logger          *slog.Logger
	defaultQuantity int
	now             func() time.Time
}

var _ event.Restocker = (*RestockService)(nil)

// NewRestockService creates a new restock service. defaultQuantity is the
// size of automatic requests.
func NewRestockService(
	repo repository.RestockRepository,
	medicines repository.MedicineRepository,
	producer *event.Producer,
	metrics *Metrics,
	logger *slog.Logger,
	defaultQuantity int,
) *RestockService {
	return &RestockService{
		repo:            repo,
		medicines:       medicines,
		producer:        producer,
		metrics:         metrics,
		logger:          logger,
		defaultQuantity: defaultQuantity,
		now:             time.Now,
	}
}

// Create opens a manual restock request.
func (s *RestockService) Create(ctx context.Context, input CreateRestockInput) (*domain.RestockRequest, error) {
	if input.Quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}

	m, err := s.medicines.GetByID(ctx, input.MedicineID)
	if err != nil {
		return nil, fmt.Errorf("get medicine for restock: %w", err)
	}

	req := s.newRequest(m, input.Quantity, domain.RestockSourceManual)
	if v := strings.TrimSpace(input.Supplier); v != "" {
		req.Supplier = v
	}
	if v := strings.TrimSpace(input.BatchID); v != "" {
		req.BatchID = v
	}

	if err := s.repo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create restock request: %w", err)
	}

	s.logger.InfoContext(ctx, "restock requested",
		slog.String("restock_id", req.ID),
		slog.String("medicine_id", req.MedicineID),
		slog.Int("quantity", req.Quantity),
		slog.String("source", req.Source),
	)
	return req, nil
}

// AutoRestock opens a request of the default size for a sold-out medicine
// unless one is already pending.
func (s *RestockService) AutoRestock(ctx context.Context, medicineID string) (*domain.RestockRequest, bool, error) {
	pending, err := s.repo.HasPending(ctx, medicineID)
	if err != nil {
		return nil, false, fmt.Errorf("check pending restock: %w", err)
	}
	if pending {
		return nil, false, nil
	}

	m, err := s.medicines.GetByID(ctx, medicineID)
	if err != nil {
		return nil, false, fmt.Errorf("get medicine for restock: %w", err)
	}

	req := s.newRequest(m, s.defaultQuantity, domain.RestockSourceAuto)
	if err := s.repo.Create(ctx, req); err != nil {
		// Another consumer opened one between the check and the insert.
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("create restock request: %w", err)
	}
	return req, true, nil
}

func (s *RestockService) newRequest(m *domain.Medicine, quantity int, source string) *domain.RestockRequest {
	now := s.now().UTC()
	return &domain.RestockRequest{
		ID:           uuid.New().String(),
		MedicineID:   m.ID,
		MedicineName: m.Name,
		Supplier:     m.Supplier,
		BatchID:      m.BatchID,
		Quantity:     quantity,
		Status:       domain.RestockPending,
		Source:       source,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Get retrieves a restock request.
func (s *RestockService) Get(ctx context.Context, id string) (*domain.RestockRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get restock request: %w", err)
	}
	return req, nil
}

// List returns a page of requests, optionally narrowed to one status.
func (s *RestockService) List(ctx context.Context, status string, params pagination.Params) ([]domain.RestockRequest, int, error) {
	if status != "" && !domain.IsValidRestockStatus(status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid status %q", status))
	}

	requests, total, err := s.repo.List(ctx, repository.RestockFilter{
		Status:  status,
		Page:    params.Page,
		PerPage: params.PerPage,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list restock requests: %w", err)
	}
	return requests, total, nil
}

// Receive books a pending request into stock.
func (s *RestockService) Receive(ctx context.Context, id string) (*domain.RestockRequest, error) {
	req, quantity, err := s.repo.Receive(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("receive restock request: %w", err)
	}
	s.metrics.RestocksReceived.Inc()

	s.logger.InfoContext(ctx, "restock received",
		slog.String("restock_id", req.ID),
		slog.String("medicine_id", req.MedicineID),
		slog.Int("added", req.Quantity),
		slog.Int("quantity", quantity),
	)

	if err := s.producer.PublishStockLevel(ctx, domain.StockChange{
		MedicineID: req.MedicineID,
		Name:       req.MedicineName,
		Remaining:  quantity,
	}, event.ReasonRestocked); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish inventory.updated event after restock",
			slog.String("medicine_id", req.MedicineID),
			slog.String("error", err.Error()),
		)
	}
	return req, nil
}

// Cancel withdraws a pending request.
func (s *RestockService) Cancel(ctx context.Context, id string) (*domain.RestockRequest, error) {
	req, err := s.repo.Cancel(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cancel restock request: %w", err)
	}
	s.logger.InfoContext(ctx, "restock cancelled", slog.String("restock_id", req.ID))
	return req, nil
}
