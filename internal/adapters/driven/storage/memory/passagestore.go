package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/refrag/internal/core/domain"
	"github.com/custodia-labs/refrag/internal/core/ports/driven"
	"github.com/custodia-labs/refrag/internal/sensor"
)

// Ensure PassageStore implements the interface.
var _ driven.PassageStore = (*PassageStore)(nil)

// PassageStore is an in-memory implementation of driven.PassageStore.
// Retrieval is an exhaustive cosine scan; ties keep insertion order.
type PassageStore struct {
	mu       sync.RWMutex
	passages map[string]domain.Passage
	order    []string
}

// NewPassageStore creates a new in-memory passage store.
func NewPassageStore() *PassageStore {
	return &PassageStore{
		passages: make(map[string]domain.Passage),
	}
}

// Save inserts or replaces passages. Replacing keeps the original position.
func (s *PassageStore) Save(_ context.Context, passages []domain.Passage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range passages {
		if _, exists := s.passages[p.ID]; !exists {
			s.order = append(s.order, p.ID)
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now()
		}
		p.Vector = p.Vector.Clone()
		s.passages[p.ID] = p
	}
	return nil
}

// Get retrieves a passage by ID.
func (s *PassageStore) Get(_ context.Context, id string) (*domain.Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.passages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

// Delete removes a passage by ID.
func (s *PassageStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.passages[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.passages, id)
	s.order = slices.DeleteFunc(s.order, func(other string) bool { return other == id })
	return nil
}

// Count returns the number of stored passages.
func (s *PassageStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.passages), nil
}

// Dimensions returns the vector dimension of the first stored passage.
func (s *PassageStore) Dimensions(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return 0, nil
	}
	return len(s.passages[s.order[0]].Vector), nil
}

// Retrieve returns the k passages most similar to the query.
func (s *PassageStore) Retrieve(_ context.Context, query domain.Vector, k int) ([]domain.Candidate, error) {
	if k <= 0 {
		return []domain.Candidate{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type hit struct {
		passage domain.Passage
		score   float64
	}
	hits := make([]hit, 0, len(s.order))
	for _, id := range s.order {
		p := s.passages[id]
		score, err := sensor.Similarity(query, p.Vector)
		if err != nil {
			return nil, fmt.Errorf("passage %s: %w", id, err)
		}
		hits = append(hits, hit{passage: p, score: score})
	}

	slices.SortStableFunc(hits, func(a, b hit) int {
		return cmp.Compare(b.score, a.score)
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	candidates := make([]domain.Candidate, len(hits))
	for i, h := range hits {
		candidates[i] = h.passage.Candidate()
	}
	return candidates, nil
}

// Close is a no-op for the memory store.
func (s *PassageStore) Close() error {
	return nil
}
