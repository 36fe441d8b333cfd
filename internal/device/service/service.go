package service

import (
	"context"
	"strings"
	"time"

	"multidevice-identity/backend/internal/device/domain"
	"multidevice-identity/backend/internal/platform/clock"
	"multidevice-identity/backend/internal/platform/errs"
	"multidevice-identity/backend/internal/platform/ids"
)

// Sentinel errors for the device service.
var (
	ErrBlankBrowser = errs.New(errs.ErrInvalidArgument, "browser is required")
	ErrBlankOS      = errs.New(errs.ErrInvalidArgument, "os is required")
	ErrInvalidID    = errs.New(errs.ErrInvalidArgument, "device id is required")
)

// DeviceRepo is the device persistence used by DeviceService.
type DeviceRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Device, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Device, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, d *domain.Device) error
	UpdateLastSeen(ctx context.Context, id string, at time.Time) (bool, error)
	SetActive(ctx context.Context, id string, active bool) (bool, error)
}

// DeviceService creates and maintains device records.
type DeviceService struct {
	repo  DeviceRepo
	clock clock.Clock
}

// NewDeviceService returns a DeviceService. A nil clock uses the system clock.
func NewDeviceService(repo DeviceRepo, clk clock.Clock) *DeviceService {
	if clk == nil {
		clk = clock.System{}
	}
	return &DeviceService{repo: repo, clock: clk}
}

// Create persists a new active device for browser and os and returns its id.
// userAgent and ip are informational and may be empty.
func (s *DeviceService) Create(ctx context.Context, browser, os, userAgent, ip string) (string, error) {
	browser = domain.Normalize(browser)
	os = domain.Normalize(os)
	if browser == "" {
		return "", ErrBlankBrowser
	}
	if os == "" {
		return "", ErrBlankOS
	}
	now := s.clock.Now()
	d := &domain.Device{
		ID:          ids.New(),
		Name:        domain.Name(browser, os),
		Browser:     browser,
		OS:          os,
		UserAgent:   strings.TrimSpace(userAgent),
		CreatedByIP: strings.TrimSpace(ip),
		CreatedAt:   now,
		LastSeenAt:  now,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return "", err
	}
	return d.ID, nil
}

// GetByID returns the device for id, or nil if it does not exist.
func (s *DeviceService) GetByID(ctx context.Context, id string) (*domain.Device, error) {
	if !ids.Valid(id) {
		return nil, ErrInvalidID
	}
	return s.repo.GetByID(ctx, id)
}

// GetByIDs returns the devices found for deviceIDs. Empty input returns an empty slice without touching storage.
func (s *DeviceService) GetByIDs(ctx context.Context, deviceIDs []string) ([]*domain.Device, error) {
	if len(deviceIDs) == 0 {
		return []*domain.Device{}, nil
	}
	for _, id := range deviceIDs {
		if !ids.Valid(id) {
			return nil, ErrInvalidID
		}
	}
	out, err := s.repo.GetByIDs(ctx, deviceIDs)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*domain.Device{}
	}
	return out, nil
}

// Exists reports whether the device exists. Malformed ids report false without a storage call.
func (s *DeviceService) Exists(ctx context.Context, id string) (bool, error) {
	if !ids.Valid(id) {
		return false, nil
	}
	return s.repo.Exists(ctx, id)
}

// UpdateLastSeen bumps last_seen_at to now. It returns false when the device is unknown.
func (s *DeviceService) UpdateLastSeen(ctx context.Context, id string) (bool, error) {
	if !ids.Valid(id) {
		return false, ErrInvalidID
	}
	return s.repo.UpdateLastSeen(ctx, id, s.clock.Now())
}

// Disable marks the device inactive. Disabling an already inactive device still returns true.
func (s *DeviceService) Disable(ctx context.Context, id string) (bool, error) {
	if !ids.Valid(id) {
		return false, ErrInvalidID
	}
	return s.repo.SetActive(ctx, id, false)
}
