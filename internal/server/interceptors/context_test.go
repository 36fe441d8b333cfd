package interceptors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithIdentity(t *testing.T) {
	ctx := WithIdentity(context.Background(), "user-1", "alice@example.com", "member")

	userID, ok := GetUserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-1", userID)
	email, ok := GetEmail(ctx)
	assert.True(t, ok)
	assert.Equal(t, "alice@example.com", email)
	role, ok := GetRole(ctx)
	assert.True(t, ok)
	assert.Equal(t, "member", role)
}

func TestGetters_Unset(t *testing.T) {
	ctx := context.Background()
	_, ok := GetUserID(ctx)
	assert.False(t, ok)
	_, ok = GetEmail(ctx)
	assert.False(t, ok)
	_, ok = GetRole(ctx)
	assert.False(t, ok)
}
