package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sivaraj16/medicals/internal/domain"
	"github.com/Sivaraj16/medicals/internal/repository"
	apperrors "github.com/Sivaraj16/medicals/pkg/errors"
)

// OrderService serves the order history.
type OrderService struct {
	repo repository.OrderRepository
}

// NewOrderService creates a new order service.
func NewOrderService(repo repository.OrderRepository) *OrderService {
	return &OrderService{repo: repo}
}

// Get retrieves an order by id.
func (s *OrderService) Get(ctx context.Context, id string) (*domain.Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// List returns orders matching filter, most recent first.
func (s *OrderService) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	filter.Query = strings.TrimSpace(filter.Query)
	if filter.From != "" && !domain.ValidDate(filter.From) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("from %q must be a YYYY-MM-DD date", filter.From))
	}
	if filter.To != "" && !domain.ValidDate(filter.To) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("to %q must be a YYYY-MM-DD date", filter.To))
	}
	if filter.From != "" && filter.To != "" && filter.From > filter.To {
		return nil, apperrors.InvalidInput("from must not be after to")
	}

	orders, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
