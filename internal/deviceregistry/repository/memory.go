package repository

import (
	"context"
	"sync"

	"multidevice-identity/backend/internal/deviceregistry/domain"
)

// MemoryRepository is an in-memory Repository used by tests and local tooling.
type MemoryRepository struct {
	mu   sync.Mutex
	rows []*domain.Registration
}

// NewMemoryRepository returns an empty in-memory registry repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) FindDeviceID(ctx context.Context, userID, fingerprint string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, reg := range r.rows {
		if reg.UserID == userID && reg.Fingerprint == fingerprint {
			return reg.DeviceID, nil
		}
	}
	return "", nil
}

func (r *MemoryRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, reg := range r.rows {
		if reg.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) Create(ctx context.Context, reg *domain.Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if existing.UserID == reg.UserID && existing.Fingerprint == reg.Fingerprint {
			return ErrDuplicate
		}
	}
	c := *reg
	r.rows = append(r.rows, &c)
	return nil
}

func (r *MemoryRepository) ListDeviceIDsByUser(ctx context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, reg := range r.rows {
		if reg.UserID == userID {
			out = append(out, reg.DeviceID)
		}
	}
	return out, nil
}

// Len returns the number of stored registrations.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}
