package repository

import (
	"context"

	"github.com/Sivaraj16/medicals/internal/domain"
)

// MedicineFilter narrows a catalog listing. Zero values mean no filter; set
// fields are combined with AND. Dates use domain.DateLayout.
type MedicineFilter struct {
	ExpiredBefore string
	ExpiresFrom   string
	ExpiresTo     string
	Discounted    bool
	OutOfStock    bool
}

// MedicineRepository defines catalog persistence operations.
type MedicineRepository interface {
	// Create inserts a new medicine.
	Create(ctx context.Context, m *domain.Medicine) error

	// GetByID retrieves a medicine by id.
	GetByID(ctx context.Context, id string) (*domain.Medicine, error)

	// List returns medicines matching filter, ordered by name.
	List(ctx context.Context, filter MedicineFilter) ([]domain.Medicine, error)

	// Update applies a partial quantity/discount update and returns the row.
	Update(ctx context.Context, id string, upd domain.MedicineUpdate) (*domain.Medicine, error)

	// Delete removes a medicine.
	Delete(ctx context.Context, id string) error
}

// OrderRepository defines order persistence operations.
type OrderRepository interface {
	// PlaceOrder inserts the order and its items and decrements stock for
	// every known medicine in a single transaction.
	PlaceOrder(ctx context.Context, o *domain.Order) (*domain.CheckoutResult, error)

	// GetByID retrieves an order with its items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// List returns orders matching filter, most recent first.
	List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)

	// CountRefunded counts orders whose total is not positive.
	CountRefunded(ctx context.Context) (int, error)
}

// RestockFilter defines filter criteria for listing restock requests.
type RestockFilter struct {
	Status  string
	Page    int
	PerPage int
}

// RestockRepository defines restock request persistence operations.
type RestockRepository interface {
	// Create inserts a new restock request.
	Create(ctx context.Context, req *domain.RestockRequest) error

	// GetByID retrieves a restock request.
	GetByID(ctx context.Context, id string) (*domain.RestockRequest, error)

	// List returns a page of requests with the total count.
	List(ctx context.Context, filter RestockFilter) ([]domain.RestockRequest, int, error)

	// HasPending reports whether a pending request exists for the medicine.
	HasPending(ctx context.Context, medicineID string) (bool, error)

	// Receive marks a pending request received and adds its quantity to the
	// medicine's stock in one transaction. It returns the new stock level.
	Receive(ctx context.Context, id string) (*domain.RestockRequest, int, error)

	// Cancel marks a pending request cancelled.
	Cancel(ctx context.Context, id string) (*domain.RestockRequest, error)
}

// CartStore defines checkout session persistence.
type CartStore interface {
	// Get retrieves a cart session by id.
	Get(ctx context.Context, id string) (*domain.Cart, error)

	// Save persists a cart session, refreshing its expiry.
	Save(ctx context.Context, cart *domain.Cart) error

	// Update applies fn to the stored session and persists the result
	// atomically with respect to other writers of the same session.
	Update(ctx context.Context, id string, fn func(*domain.Cart) error) (*domain.Cart, error)

	// Take reads and removes a session in one step. Concurrent callers
	// cannot both receive the same session.
	Take(ctx context.Context, id string) (*domain.Cart, error)

	// Delete removes a cart session.
	Delete(ctx context.Context, id string) error
}
