package repository

import (
	"context"
	"sync"
	"time"

	"multidevice-identity/backend/internal/device/domain"
)

// MemoryRepository is an in-memory Repository used by tests and local tooling.
type MemoryRepository struct {
	mu    sync.Mutex
	m     map[string]*domain.Device
	calls int
}

// NewMemoryRepository returns an empty in-memory device repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: map[string]*domain.Device{}}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if d, ok := r.m[id]; ok {
		c := *d
		return &c, nil
	}
	return nil, nil
}

func (r *MemoryRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	var out []*domain.Device
	for _, id := range ids {
		if d, ok := r.m[id]; ok {
			c := *d
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Exists(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	_, ok := r.m[id]
	return ok, nil
}

func (r *MemoryRepository) Create(ctx context.Context, d *domain.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	c := *d
	r.m[d.ID] = &c
	return nil
}

func (r *MemoryRepository) UpdateLastSeen(ctx context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	d, ok := r.m[id]
	if !ok {
		return false, nil
	}
	d.LastSeenAt = at
	return true, nil
}

func (r *MemoryRepository) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	d, ok := r.m[id]
	if !ok {
		return false, nil
	}
	d.IsActive = active
	return true, nil
}

// Len returns the number of stored devices.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}

// Calls returns how many repository methods have been invoked.
func (r *MemoryRepository) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
