package search

import (
	"context"

	"github.com/Sivaraj16/medicals/internal/domain"
)

// DefaultLimit caps a search when the caller does not.
const DefaultLimit = 20

// MaxLimit is the largest page a search returns.
const MaxLimit = 100

// Document is the searchable projection of a medicine.
type Document struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Supplier   string  `json:"supplier,omitempty"`
	BatchID    string  `json:"batch_id,omitempty"`
	ExpireDate string  `json:"expire_date"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
}

// NewDocument projects a medicine into its index document.
func NewDocument(m *domain.Medicine) Document {
	return Document{
		ID:         m.ID,
		Name:       m.Name,
		Supplier:   m.Supplier,
		BatchID:    m.BatchID,
		ExpireDate: m.ExpireDate,
		Price:      m.Price,
		Quantity:   m.Quantity,
	}
}

// Query is a free-text catalog search.
type Query struct {
	Text  string
	Limit int
}

// NormalizedLimit clamps Limit to [1, MaxLimit], defaulting to DefaultLimit.
func (q Query) NormalizedLimit() int {
	switch {
	case q.Limit < 1:
		return DefaultLimit
	case q.Limit > MaxLimit:
		return MaxLimit
	default:
		return q.Limit
	}
}

// Result lists matching medicine ids, best match first. Total counts every
// match, not just the returned page.
type Result struct {
	IDs   []string
	Total int
}

// Engine indexes and searches the medicine catalog. The catalog store stays
// authoritative; the index only resolves text to ids.
type Engine interface {
	// Index adds or replaces one medicine.
	Index(ctx context.Context, m *domain.Medicine) error

	// Delete removes a medicine. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// Search resolves a query to matching ids.
	Search(ctx context.Context, q Query) (*Result, error)

	// BulkIndex adds or replaces many medicines.
	BulkIndex(ctx context.Context, medicines []domain.Medicine) error
}
