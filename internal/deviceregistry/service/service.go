package service

import (
	"context"
	"errors"

	devicedomain "multidevice-identity/backend/internal/device/domain"
	"multidevice-identity/backend/internal/deviceregistry/domain"
	"multidevice-identity/backend/internal/deviceregistry/repository"
	"multidevice-identity/backend/internal/platform/clock"
	"multidevice-identity/backend/internal/platform/errs"
	"multidevice-identity/backend/internal/platform/ids"
)

// DefaultMaxDevices is the per-user device cap used when none is configured.
const DefaultMaxDevices = 5

// Sentinel errors for the registry service.
var (
	ErrInvalidUserID         = errs.New(errs.ErrInvalidArgument, "user id is required")
	ErrNilDeviceDetails      = errs.New(errs.ErrInvalidArgument, "device details are required")
	ErrUserNotFound          = errs.New(errs.ErrEntityNotFound, "user not found")
	ErrDeviceLimitReached    = errs.New(errs.ErrBusinessRuleViolation, "device limit reached")
	ErrDuplicateRegistration = errs.New(errs.ErrBusinessRuleViolation, "duplicate device registration")
)

// RegistryRepo is the registration persistence used by RegistryService.
type RegistryRepo interface {
	FindDeviceID(ctx context.Context, userID, fingerprint string) (string, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	Create(ctx context.Context, r *domain.Registration) error
	ListDeviceIDsByUser(ctx context.Context, userID string) ([]string, error)
}

// UserChecker reports whether a user exists.
type UserChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Devices is the subset of the device service used by the registry.
type Devices interface {
	Create(ctx context.Context, browser, os, userAgent, ip string) (string, error)
	UpdateLastSeen(ctx context.Context, id string) (bool, error)
	GetByIDs(ctx context.Context, ids []string) ([]*devicedomain.Device, error)
}

// Fingerprinter derives the dedup key for a user's device.
type Fingerprinter interface {
	Fingerprint(userID string, d domain.DeviceDetails) string
}

// RegistryService maps (user, fingerprint) pairs to devices and enforces the per-user device cap.
type RegistryService struct {
	repo       RegistryRepo
	users      UserChecker
	devices    Devices
	fp         Fingerprinter
	clock      clock.Clock
	maxDevices int
}

// NewRegistryService returns a RegistryService. maxDevices <= 0 uses DefaultMaxDevices.
func NewRegistryService(repo RegistryRepo, users UserChecker, devices Devices, fp Fingerprinter, clk clock.Clock, maxDevices int) *RegistryService {
	if clk == nil {
		clk = clock.System{}
	}
	if maxDevices <= 0 {
		maxDevices = DefaultMaxDevices
	}
	return &RegistryService{repo: repo, users: users, devices: devices, fp: fp, clock: clk, maxDevices: maxDevices}
}

// AssociateDevice returns the device id for the user's device, creating the device and its
// registration on first sight. It performs several writes and must run inside the caller's transaction.
func (s *RegistryService) AssociateDevice(ctx context.Context, userID string, details *domain.DeviceDetails) (string, error) {
	if !ids.Valid(userID) {
		return "", ErrInvalidUserID
	}
	if details == nil {
		return "", ErrNilDeviceDetails
	}
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrUserNotFound
	}

	fingerprint := s.fp.Fingerprint(userID, *details)
	deviceID, err := s.repo.FindDeviceID(ctx, userID, fingerprint)
	if err != nil {
		return "", err
	}
	if deviceID != "" {
		if _, err := s.devices.UpdateLastSeen(ctx, deviceID); err != nil {
			return "", err
		}
		return deviceID, nil
	}

	count, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if count >= s.maxDevices {
		return "", ErrDeviceLimitReached
	}

	deviceID, err = s.devices.Create(ctx, details.Browser, details.OS, details.UserAgent, details.IPAddress)
	if err != nil {
		return "", err
	}
	reg := &domain.Registration{
		ID:          ids.New(),
		UserID:      userID,
		DeviceID:    deviceID,
		Fingerprint: fingerprint,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.Create(ctx, reg); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", ErrDuplicateRegistration
		}
		return "", err
	}
	return deviceID, nil
}

// ListDevices returns the devices registered to the user.
func (s *RegistryService) ListDevices(ctx context.Context, userID string) ([]*devicedomain.Device, error) {
	if !ids.Valid(userID) {
		return nil, ErrInvalidUserID
	}
	deviceIDs, err := s.repo.ListDeviceIDsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.devices.GetByIDs(ctx, deviceIDs)
}

// OwnsDevice reports whether deviceID is registered to userID.
func (s *RegistryService) OwnsDevice(ctx context.Context, userID, deviceID string) (bool, error) {
	if !ids.Valid(userID) || !ids.Valid(deviceID) {
		return false, nil
	}
	deviceIDs, err := s.repo.ListDeviceIDsByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, id := range deviceIDs {
		if id == deviceID {
			return true, nil
		}
	}
	return false, nil
}
