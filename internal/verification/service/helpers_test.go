package service

import (
	"time"

	"multidevice-identity/backend/internal/platform/ids"
	userdomain "multidevice-identity/backend/internal/user/domain"
)

func newUser(email string) *userdomain.User {
	return &userdomain.User{ID: ids.New(), Email: email, CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}
