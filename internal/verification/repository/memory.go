package repository

import (
	"context"
	"sync"

	"multidevice-identity/backend/internal/verification/domain"
)

// MemoryRepository is an in-memory Repository used by tests and local tooling.
type MemoryRepository struct {
	mu   sync.Mutex
	rows []*domain.Context
}

// NewMemoryRepository returns an empty in-memory verification context repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(ctx context.Context, c *domain.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.rows = append(r.rows, &cp)
	return nil
}

// GetLatestByUser returns the newest context; ties go to the greater id, as in Postgres.
func (r *MemoryRepository) GetLatestByUser(ctx context.Context, userID string) (*domain.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.Context
	for _, c := range r.rows {
		if c.UserID != userID {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) ||
			(c.CreatedAt.Equal(latest.CreatedAt) && c.ID > latest.ID) {
			latest = c
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

// Len returns the number of stored contexts.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}
