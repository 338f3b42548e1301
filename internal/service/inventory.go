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
	"github.com/Sivaraj16/medicals/internal/search"
	apperrors "github.com/Sivaraj16/medicals/pkg/errors"
)

// MaxExpiringDays bounds the expiring-soon window a caller may ask for.
const MaxExpiringDays = 3650

// CreateMedicineInput holds the data for adding a medicine to the catalog.
type CreateMedicineInput struct {
	Name       string
	Price      float64
	Quantity   int
	Discount   float64
	ExpireDate string
	BatchID    string
	Supplier   string
	ImageURL   string
}

// InventoryService implements catalog management and the catalog queries.
type InventoryService struct {
	repo           repository.MedicineRepository
	engine         search.Engine
	producer       *event.Producer
	metrics        *Metrics
	logger         *slog.Logger
	expiringWindow int
	today          func() string
}

// NewInventoryService creates a new inventory service. expiringWindow is the
// default number of days for the expiring-soon query.
func NewInventoryService(
	repo repository.MedicineRepository,
	engine search.Engine,
	producer *event.Producer,
	metrics *Metrics,
	logger *slog.Logger,
	expiringWindow int,
) *InventoryService {
	return &InventoryService{
		repo:           repo,
		engine:         engine,
		producer:       producer,
		metrics:        metrics,
		logger:         logger,
		expiringWindow: expiringWindow,
		today:          domain.Today,
	}
}

// Create validates and stores a new medicine.
func (s *InventoryService) Create(ctx context.Context, input CreateMedicineInput) (*domain.Medicine, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if input.Price < 0 || input.Price >= domain.AmountLimit {
		return nil, apperrors.InvalidInput(fmt.Sprintf("price must be between 0 and %.0f", domain.AmountLimit))
	}
	if input.Quantity < 0 || input.Quantity > domain.MaxQuantity {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must be between 0 and %d", domain.MaxQuantity))
	}
	if input.Discount < 0 {
		return nil, apperrors.InvalidInput("discount must be non-negative")
	}
	if input.Discount > input.Price {
		return nil, apperrors.InvalidInput("discount cannot exceed price")
	}
	if !domain.ValidDate(input.ExpireDate) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("expireDate %q must be a YYYY-MM-DD date", input.ExpireDate))
	}

	now := time.Now().UTC()
	m := &domain.Medicine{
		ID:         uuid.New().String(),
		Name:       name,
		Price:      domain.RoundCents(input.Price),
		Quantity:   input.Quantity,
		Discount:   domain.RoundCents(input.Discount),
		ExpireDate: input.ExpireDate,
		BatchID:    strings.TrimSpace(input.BatchID),
		Supplier:   strings.TrimSpace(input.Supplier),
		ImageURL:   strings.TrimSpace(input.ImageURL),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create medicine: %w", err)
	}

	s.logger.InfoContext(ctx, "medicine created",
		slog.String("medicine_id", m.ID),
		slog.String("name", m.Name),
		slog.Int("quantity", m.Quantity),
	)

	s.changed(ctx, m, event.ReasonCreated)
	return m, nil
}

// Get retrieves a medicine by id.
func (s *InventoryService) Get(ctx context.Context, id string) (*domain.Medicine, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get medicine: %w", err)
	}
	return m, nil
}

// List returns the whole catalog ordered by name.
func (s *InventoryService) List(ctx context.Context) ([]domain.Medicine, error) {
	return s.list(ctx, repository.MedicineFilter{})
}

// Expired returns medicines whose expiry date is before today.
func (s *InventoryService) Expired(ctx context.Context) ([]domain.Medicine, error) {
	return s.list(ctx, repository.MedicineFilter{ExpiredBefore: s.today()})
}

// Expiring returns medicines that expire between today and today+days,
// inclusive. A days value of zero uses the configured window.
func (s *InventoryService) Expiring(ctx context.Context, days int) ([]domain.Medicine, error) {
	if days == 0 {
		days = s.expiringWindow
	}
	if days < 0 || days > MaxExpiringDays {
		return nil, apperrors.InvalidInput(fmt.Sprintf("days must be between 1 and %d", MaxExpiringDays))
	}

	today := s.today()
	return s.list(ctx, repository.MedicineFilter{ExpiresFrom: today, ExpiresTo: domain.AddDays(today, days)})
}

// Discounted returns medicines carrying a standing discount.
func (s *InventoryService) Discounted(ctx context.Context) ([]domain.Medicine, error) {
	return s.list(ctx, repository.MedicineFilter{Discounted: true})
}

// OutOfStock returns medicines with no units on hand.
func (s *InventoryService) OutOfStock(ctx context.Context) ([]domain.Medicine, error) {
	return s.list(ctx, repository.MedicineFilter{OutOfStock: true})
}

func (s *InventoryService) list(ctx context.Context, filter repository.MedicineFilter) ([]domain.Medicine, error) {
	medicines, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}
	return medicines, nil
}

// Update applies a partial stock/discount update. The discount may not
// exceed the medicine's price.
func (s *InventoryService) Update(ctx context.Context, id string, upd domain.MedicineUpdate) (*domain.Medicine, error) {
	if upd.Quantity == nil && upd.Discount == nil {
		return nil, apperrors.InvalidInput("at least one of quantity or discount is required")
	}
	if upd.Quantity != nil && (*upd.Quantity < 0 || *upd.Quantity > domain.MaxQuantity) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must be between 0 and %d", domain.MaxQuantity))
	}
	if upd.Discount != nil {
		if *upd.Discount < 0 {
			return nil, apperrors.InvalidInput("discount must be non-negative")
		}

		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get medicine for update: %w", err)
		}
		if *upd.Discount > current.Price {
			return nil, apperrors.InvalidInput("discount cannot exceed price")
		}
		d := domain.RoundCents(*upd.Discount)
		upd.Discount = &d
	}

	m, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		return nil, fmt.Errorf("update medicine: %w", err)
	}

	s.logger.InfoContext(ctx, "medicine updated",
		slog.String("medicine_id", m.ID),
		slog.Int("quantity", m.Quantity),
		slog.Float64("discount", m.Discount),
	)

	s.changed(ctx, m, event.ReasonUpdated)
	return m, nil
}

// ApplyDiscount computes a discount from an operator-entered amount and
// stores it on the medicine.
func (s *InventoryService) ApplyDiscount(ctx context.Context, id string, mode domain.DiscountMode, amount float64) (*domain.Medicine, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get medicine for discount: %w", err)
	}

	discount, err := domain.ComputeDiscount(current.Price, mode, amount)
	if err != nil {
		return nil, err
	}

	m, err := s.repo.Update(ctx, id, domain.MedicineUpdate{Discount: &discount})
	if err != nil {
		return nil, fmt.Errorf("apply discount: %w", err)
	}
	s.metrics.DiscountsApplied.WithLabelValues(string(mode)).Inc()

	s.logger.InfoContext(ctx, "discount applied",
		slog.String("medicine_id", m.ID),
		slog.String("mode", string(mode)),
		slog.Float64("amount", amount),
		slog.Float64("discount", m.Discount),
	)

	s.changed(ctx, m, event.ReasonDiscount)
	return m, nil
}

// Delete removes a medicine from the catalog and the search index.
func (s *InventoryService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete medicine: %w", err)
	}

	if err := s.engine.Delete(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "failed to remove medicine from search index",
			slog.String("medicine_id", id),
			slog.String("error", err.Error()),
		)
	}
	if err := s.producer.PublishMedicineDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish inventory.updated event after delete",
			slog.String("medicine_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "medicine deleted", slog.String("medicine_id", id))
	return nil
}

// Search resolves free text through the search engine and loads the matches
// from the catalog, keeping the engine's ranking. Ids the index still holds
// for deleted medicines are dropped.
func (s *InventoryService) Search(ctx context.Context, q search.Query) ([]domain.Medicine, int, error) {
	result, err := s.engine.Search(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("search medicines: %w", err)
	}

	medicines := make([]domain.Medicine, 0, len(result.IDs))
	for _, id := range result.IDs {
		m, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				s.logger.WarnContext(ctx, "search index returned unknown medicine", slog.String("medicine_id", id))
				continue
			}
			return nil, 0, fmt.Errorf("load search hit: %w", err)
		}
		medicines = append(medicines, *m)
	}
	return medicines, result.Total, nil
}

// Reindex loads the whole catalog into the search engine.
func (s *InventoryService) Reindex(ctx context.Context) (int, error) {
	medicines, err := s.repo.List(ctx, repository.MedicineFilter{})
	if err != nil {
		return 0, fmt.Errorf("list medicines for reindex: %w", err)
	}
	if err := s.engine.BulkIndex(ctx, medicines); err != nil {
		return 0, fmt.Errorf("reindex medicines: %w", err)
	}
	return len(medicines), nil
}

// changed propagates a catalog write to the search index and the event
// stream. Failures are logged; the catalog write has already succeeded.
func (s *InventoryService) changed(ctx context.Context, m *domain.Medicine, reason string) {
	if err := s.engine.Index(ctx, m); err != nil {
		s.logger.WarnContext(ctx, "failed to index medicine",
			slog.String("medicine_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.producer.PublishInventoryUpdated(ctx, m, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish inventory.updated event",
			slog.String("medicine_id", m.ID),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
	}
}
