package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/Sivaraj16/medicals/internal/domain"
	"github.com/Sivaraj16/medicals/internal/search"
)

// Engine is an in-memory search.Engine using case-insensitive substring
// matching on name, supplier and batch id. Safe for concurrent use.
type Engine struct {
	mu   sync.RWMutex
	docs map[string]search.Document
}

// New creates an empty in-memory engine.
func New() *Engine {
	return &Engine{docs: make(map[string]search.Document)}
}

// Index adds or replaces one medicine.
func (e *Engine) Index(_ context.Context, m *domain.Medicine) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.docs[m.ID] = search.NewDocument(m)
	return nil
}

// Delete removes a medicine.
func (e *Engine) Delete(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.docs, id)
	return nil
}

// BulkIndex adds or replaces many medicines.
func (e *Engine) BulkIndex(_ context.Context, medicines []domain.Medicine) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range medicines {
		e.docs[medicines[i].ID] = search.NewDocument(&medicines[i])
	}
	return nil
}

type hit struct {
	rank int
	doc  search.Document
}

// Search ranks name prefix matches first, then other name matches, then
// supplier or batch matches. Ties sort by name.
func (e *Engine) Search(_ context.Context, q search.Query) (*search.Result, error) {
	text := strings.ToLower(strings.TrimSpace(q.Text))

	e.mu.RLock()
	hits := make([]hit, 0)
	for _, d := range e.docs {
		if r, ok := rank(d, text); ok {
			hits = append(hits, hit{rank: r, doc: d})
		}
	}
	e.mu.RUnlock()

	slices.SortFunc(hits, func(a, b hit) int {
		if a.rank != b.rank {
			return a.rank - b.rank
		}
		if c := strings.Compare(strings.ToLower(a.doc.Name), strings.ToLower(b.doc.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.doc.ID, b.doc.ID)
	})

	limit := min(q.NormalizedLimit(), len(hits))
	ids := make([]string, 0, limit)
	for _, h := range hits[:limit] {
		ids = append(ids, h.doc.ID)
	}
	return &search.Result{IDs: ids, Total: len(hits)}, nil
}

func rank(d search.Document, text string) (int, bool) {
	if text == "" {
		return 0, true
	}
	name := strings.ToLower(d.Name)
	switch {
	case strings.HasPrefix(name, text):
		return 0, true
	case strings.Contains(name, text):
		return 1, true
	case strings.Contains(strings.ToLower(d.Supplier), text),
		strings.Contains(strings.ToLower(d.BatchID), text):
		return 2, true
	}
	return 0, false
}
