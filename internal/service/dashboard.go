package service

import (
	"context"
	"fmt"

	"github.com/Sivaraj16/medicals/internal/domain"
	"github.com/Sivaraj16/medicals/internal/repository"
)

// DashboardService aggregates the catalog and the order history.
type DashboardService struct {
	medicines repository.MedicineRepository
	orders    repository.OrderRepository
	window    int
	today     func() string
}

// NewDashboardService creates a new dashboard service. window is the
// expiring-soon horizon in days.
func NewDashboardService(medicines repository.MedicineRepository, orders repository.OrderRepository, window int) *DashboardService {
	return &DashboardService{
		medicines: medicines,
		orders:    orders,
		window:    window,
		today:     domain.Today,
	}
}

// Summary computes the dashboard. Nothing is cached.
func (s *DashboardService) Summary(ctx context.Context) (*domain.DashboardSummary, error) {
	medicines, err := s.medicines.List(ctx, repository.MedicineFilter{})
	if err != nil {
		return nil, fmt.Errorf("list medicines for dashboard: %w", err)
	}
	refunded, err := s.orders.CountRefunded(ctx)
	if err != nil {
		return nil, fmt.Errorf("count refunded orders: %w", err)
	}

	summary := domain.Summarize(medicines, refunded, s.today(), s.window)
	return &summary, nil
}
