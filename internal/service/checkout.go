package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Sivaraj16/medicals/internal/domain"
	"github.com/Sivaraj16/medicals/internal/event"
	"github.com/Sivaraj16/medicals/internal/repository"
	apperrors "github.com/Sivaraj16/medicals/pkg/errors"
)

// PlaceOrderInput holds the data for a checkout. Subtotal, Tax and Total are
// the amounts the till computed; when set they must agree with the server's
// computation to the cent.
type PlaceOrderInput struct {
	Customer domain.Customer
	Items    []domain.OrderItem
	// TaxRate is a percentage. When nil, Tax is taken as the tax amount.
	TaxRate    *float64
	Subtotal   *float64
	Tax        *float64
	Total      *float64
	Date       *time.Time
	OperatorID string
}

// CheckoutService commits sales.
type CheckoutService struct {
	orders   repository.OrderRepository
	producer *event.Producer
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	orders repository.OrderRepository,
	producer *event.Producer,
	metrics *Metrics,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		orders:   orders,
		producer: producer,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// PlaceOrder builds an order from the input, then persists it and
// decrements stock in one transaction. Lines for medicines that are not in
// the catalog are kept on the order but move no stock.
func (s *CheckoutService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*domain.Order, error) {
	if len(input.Items) == 0 {
		return nil, apperrors.InvalidInput("order must contain at least one item")
	}

	tax, err := s.taxAmount(input)
	if err != nil {
		return nil, err
	}

	date := s.now()
	if input.Date != nil && !input.Date.IsZero() {
		date = *input.Date
	}

	order, err := domain.NewOrder(uuid.New().String(), input.Customer, input.Items, tax, date)
	if err != nil {
		return nil, err
	}
	if err := order.CheckClaimed(input.Subtotal, input.Tax, input.Total); err != nil {
		return nil, err
	}

	result, err := s.orders.PlaceOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	s.metrics.OrdersPlaced.Inc()
	if len(result.Skipped) > 0 {
		s.metrics.SkippedLines.Add(float64(len(result.Skipped)))
		s.logger.WarnContext(ctx, "checkout skipped unknown medicines",
			slog.String("order_id", order.ID),
			slog.Any("medicine_ids", result.Skipped),
		)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("operator_id", input.OperatorID),
		slog.String("customer", order.Customer.Name),
		slog.Int("items", len(order.Items)),
		slog.Float64("total", order.Total),
	)

	s.publish(ctx, order, result, input.OperatorID)
	return order, nil
}

func (s *CheckoutService) taxAmount(input PlaceOrderInput) (float64, error) {
	switch {
	case input.TaxRate != nil:
		if *input.TaxRate < 0 {
			return 0, apperrors.InvalidInput("taxRate must be non-negative")
		}
		lines := make([]domain.OrderItem, len(input.Items))
		copy(lines, input.Items)
		return domain.TaxFor(domain.LineTotals(lines), *input.TaxRate), nil
	case input.Tax != nil:
		return *input.Tax, nil
	default:
		return 0, nil
	}
}

func (s *CheckoutService) publish(ctx context.Context, order *domain.Order, result *domain.CheckoutResult, operatorID string) {
	if err := s.producer.PublishOrderPlaced(ctx, order, operatorID, len(result.Skipped)); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.placed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	for _, change := range result.Changes {
		if err := s.producer.PublishStockLevel(ctx, change, event.ReasonSold); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish inventory.updated event after sale",
				slog.String("medicine_id", change.MedicineID),
				slog.String("error", err.Error()),
			)
		}
	}

	for _, change := range result.Depleted() {
		s.metrics.StockDepletions.Inc()
		s.logger.InfoContext(ctx, "medicine sold out",
			slog.String("medicine_id", change.MedicineID),
			slog.String("name", change.Name),
		)
		if err := s.producer.PublishInventoryDepleted(ctx, change, order.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish inventory.depleted event",
				slog.String("medicine_id", change.MedicineID),
				slog.String("error", err.Error()),
			)
		}
	}
}
