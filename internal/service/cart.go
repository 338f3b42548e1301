package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Sivaraj16/medicals/internal/domain"
	"github.com/Sivaraj16/medicals/internal/repository"
	apperrors "github.com/Sivaraj16/medicals/pkg/errors"
)

// MaxCartLines is the maximum number of distinct medicines in one session.
const MaxCartLines = 100

// CartUpdate changes the customer or tax rate of a session. Nil fields are
// left alone.
type CartUpdate struct {
	Customer   *domain.Customer
	TaxPercent *float64
}

// CartService manages checkout sessions held in the cart store.
type CartService struct {
	store     repository.CartStore
	medicines repository.MedicineRepository
	checkout  *CheckoutService
	logger    *slog.Logger
	now       func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(
	store repository.CartStore,
	medicines repository.MedicineRepository,
	checkout *CheckoutService,
	logger *slog.Logger,
) *CartService {
	return &CartService{
		store:     store,
		medicines: medicines,
		checkout:  checkout,
		logger:    logger,
		now:       time.Now,
	}
}

// Open starts an empty checkout session.
func (s *CartService) Open(ctx context.Context, customer domain.Customer, taxPercent float64) (*domain.Cart, error) {
	if taxPercent < 0 {
		return nil, apperrors.InvalidInput("taxPercent must be non-negative")
	}

	now := s.now().UTC()
	cart := &domain.Cart{
		ID:         uuid.New().String(),
		Customer:   customer,
		TaxPercent: taxPercent,
		Lines:      []domain.CartLine{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("open cart: %w", err)
	}

	s.logger.InfoContext(ctx, "cart opened", slog.String("cart_id", cart.ID))
	return cart, nil
}

// Get retrieves a session.
func (s *CartService) Get(ctx context.Context, id string) (*domain.Cart, error) {
	cart, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// Update changes the customer and/or tax rate of a session.
func (s *CartService) Update(ctx context.Context, id string, upd CartUpdate) (*domain.Cart, error) {
	if upd.TaxPercent != nil && *upd.TaxPercent < 0 {
		return nil, apperrors.InvalidInput("taxPercent must be non-negative")
	}

	return s.mutate(ctx, id, func(cart *domain.Cart) error {
		if upd.Customer != nil {
			cart.Customer = *upd.Customer
		}
		if upd.TaxPercent != nil {
			cart.TaxPercent = *upd.TaxPercent
		}
		return nil
	})
}

// AddItem adds one unit of a catalog medicine to the session.
func (s *CartService) AddItem(ctx context.Context, id, medicineID string) (*domain.Cart, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	m, err := s.medicines.GetByID(ctx, medicineID)
	if err != nil {
		return nil, fmt.Errorf("get medicine for cart: %w", err)
	}

	return s.mutate(ctx, id, func(cart *domain.Cart) error {
		if len(cart.Lines) >= MaxCartLines && !hasLine(cart, medicineID) {
			return apperrors.InvalidInput(fmt.Sprintf("cart cannot hold more than %d medicines", MaxCartLines))
		}
		cart.AddItem(*m)
		return nil
	})
}

// UpdateQuantity sets the quantity of a line. A quantity below 1 leaves the
// session unchanged.
func (s *CartService) UpdateQuantity(ctx context.Context, id, medicineID string, qty int) (*domain.Cart, error) {
	return s.mutate(ctx, id, func(cart *domain.Cart) error {
		if !cart.UpdateQuantity(medicineID, qty) {
			return apperrors.NotFound("cart item", medicineID)
		}
		return nil
	})
}

// RemoveItem deletes a line from the session.
func (s *CartService) RemoveItem(ctx context.Context, id, medicineID string) (*domain.Cart, error) {
	return s.mutate(ctx, id, func(cart *domain.Cart) error {
		if !cart.Remove(medicineID) {
			return apperrors.NotFound("cart item", medicineID)
		}
		return nil
	})
}

// Discard deletes a session.
func (s *CartService) Discard(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("discard cart: %w", err)
	}
	s.logger.InfoContext(ctx, "cart discarded", slog.String("cart_id", id))
	return nil
}

// Checkout places an order from the session. The session is claimed before
// the order is committed, so a resubmitted checkout finds nothing to sell.
// An empty session or a failed commit puts the session back.
func (s *CartService) Checkout(ctx context.Context, id, operatorID string) (*domain.Order, error) {
	cart, err := s.store.Take(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("claim cart: %w", err)
	}
	if cart.IsEmpty() {
		s.restore(ctx, cart)
		return nil, apperrors.InvalidInput("cart is empty")
	}

	taxRate := cart.TaxPercent
	order, err := s.checkout.PlaceOrder(ctx, PlaceOrderInput{
		Customer:   cart.Customer,
		Items:      cart.OrderItems(),
		TaxRate:    &taxRate,
		OperatorID: operatorID,
	})
	if err != nil {
		s.restore(ctx, cart)
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart checked out",
		slog.String("cart_id", id),
		slog.String("order_id", order.ID),
	)
	return order, nil
}

// restore puts a claimed session back after a checkout that did not commit.
func (s *CartService) restore(ctx context.Context, cart *domain.Cart) {
	if err := s.store.Save(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to restore cart after checkout",
			slog.String("cart_id", cart.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CartService) mutate(ctx context.Context, id string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	cart, err := s.store.Update(ctx, id, func(cart *domain.Cart) error {
		if err := fn(cart); err != nil {
			return err
		}
		cart.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update cart: %w", err)
	}
	return cart, nil
}

func hasLine(cart *domain.Cart, medicineID string) bool {
	for _, l := range cart.Lines {
		if l.MedicineID == medicineID {
			return true
		}
	}
	return false
}
