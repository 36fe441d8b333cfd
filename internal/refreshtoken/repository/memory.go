package repository

import (
	"context"
	"sync"
	"time"

	"multidevice-identity/backend/internal/refreshtoken/domain"
)

// MemoryRepository is an in-memory Repository used by tests and local tooling.
type MemoryRepository struct {
	mu     sync.Mutex
	byID   map[string]*domain.RefreshToken
	byHash map[string]string
	reads  int
}

// NewMemoryRepository returns an empty in-memory refresh token repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: map[string]*domain.RefreshToken{}, byHash: map[string]string{}}
}

func (r *MemoryRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(t)
	return nil
}

func (r *MemoryRepository) put(t *domain.RefreshToken) {
	c := *t
	r.byID[t.ID] = &c
	r.byHash[t.TokenHash] = t.ID
}

func (r *MemoryRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	id, ok := r.byHash[tokenHash]
	if !ok {
		return nil, nil
	}
	return copyToken(r.byID[id]), nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	t, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return copyToken(t), nil
}

func (r *MemoryRepository) Revoke(ctx context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revoke(id, at), nil
}

func (r *MemoryRepository) revoke(id string, at time.Time) bool {
	t, ok := r.byID[id]
	if !ok || t.RevokedAt != nil {
		return false
	}
	t.RevokedAt = &at
	return true
}

func (r *MemoryRepository) Rotate(ctx context.Context, oldID string, next *domain.RefreshToken, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.revoke(oldID, at) {
		return ErrAlreadyRotated
	}
	r.put(next)
	r.byID[oldID].ReplacedByTokenID = next.ID
	return nil
}

// Reads returns how many lookups were made.
func (r *MemoryRepository) Reads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads
}

// Len returns the number of stored tokens.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func copyToken(t *domain.RefreshToken) *domain.RefreshToken {
	c := *t
	if t.RevokedAt != nil {
		at := *t.RevokedAt
		c.RevokedAt = &at
	}
	return &c
}
