package domain

import (
	"testing"
	"time"
)

func TestRefreshToken_ExpiryBoundary(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		expiresAt time.Time
		active    bool
	}{
		{"expires now", now, false},
		{"expires 1ms later", now.Add(time.Millisecond), true},
		{"expired 1ms ago", now.Add(-time.Millisecond), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := &RefreshToken{ExpiresAt: tt.expiresAt}
			if got := tok.IsActive(now); got != tt.active {
				t.Errorf("IsActive = %v, want %v", got, tt.active)
			}
		})
	}
}

func TestRefreshToken_Revoked(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tok := &RefreshToken{ExpiresAt: now.Add(time.Hour), RevokedAt: &now}
	if !tok.IsRevoked() || tok.IsActive(now) {
		t.Errorf("revoked token: IsRevoked=%v IsActive=%v", tok.IsRevoked(), tok.IsActive(now))
	}
}
