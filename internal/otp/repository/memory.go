package repository

import (
	"context"
	"sync"

	"multidevice-identity/backend/internal/otp/domain"
)

// MemoryRepository is an in-memory Repository used by tests and local tooling.
type MemoryRepository struct {
	mu    sync.Mutex
	m     map[string]*domain.OneTimePassword
	reads int
}

// NewMemoryRepository returns an empty in-memory OTP repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: map[string]*domain.OneTimePassword{}}
}

func (r *MemoryRepository) Create(ctx context.Context, o *domain.OneTimePassword) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *o
	r.m[o.ID] = &c
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.OneTimePassword, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	if o, ok := r.m[id]; ok {
		c := *o
		return &c, nil
	}
	return nil, nil
}

func (r *MemoryRepository) MarkUsed(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.m[id]
	if !ok || o.IsUsed {
		return false, nil
	}
	o.IsUsed = true
	return true, nil
}

// Reads returns how many GetByID calls were made.
func (r *MemoryRepository) Reads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads
}

// Len returns the number of stored codes.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}
