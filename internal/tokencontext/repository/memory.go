package repository

import (
	"context"
	"sort"
	"sync"

	"multidevice-identity/backend/internal/tokencontext/domain"
)

// MemoryRepository is an in-memory Repository used by tests and local tooling.
type MemoryRepository struct {
	mu      sync.Mutex
	byToken map[string]*domain.TokenContext
}

// NewMemoryRepository returns an empty in-memory token context repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byToken: map[string]*domain.TokenContext{}}
}

func (r *MemoryRepository) Create(ctx context.Context, c *domain.TokenContext) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byToken[c.RefreshTokenID]; ok {
		return ErrDuplicate
	}
	cp := *c
	r.byToken[c.RefreshTokenID] = &cp
	return nil
}

func (r *MemoryRepository) GetActiveByRefreshTokenID(ctx context.Context, refreshTokenID string) (*domain.TokenContext, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byToken[refreshTokenID]
	if !ok || c.IsRevoked {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryRepository) RevokeByRefreshTokenID(ctx context.Context, refreshTokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byToken[refreshTokenID]
	if !ok || c.IsRevoked {
		return false, nil
	}
	c.IsRevoked = true
	return true, nil
}

func (r *MemoryRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.TokenContext, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.TokenContext
	for _, c := range r.byToken {
		if c.UserID == userID && !c.IsRevoked {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Get returns the context for the refresh token regardless of state, or nil.
func (r *MemoryRepository) Get(refreshTokenID string) *domain.TokenContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byToken[refreshTokenID]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

// Len returns the number of stored contexts.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byToken)
}
