package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	devicerepo "multidevice-identity/backend/internal/device/repository"
	deviceservice "multidevice-identity/backend/internal/device/service"
	"multidevice-identity/backend/internal/deviceregistry"
	"multidevice-identity/backend/internal/deviceregistry/domain"
	"multidevice-identity/backend/internal/deviceregistry/repository"
	"multidevice-identity/backend/internal/platform/clock"
	"multidevice-identity/backend/internal/platform/errs"
	"multidevice-identity/backend/internal/platform/ids"
)

type fakeUsers struct {
	ids map[string]bool
}

func (f *fakeUsers) Exists(ctx context.Context, id string) (bool, error) {
	return f.ids[id], nil
}

type harness struct {
	svc     *RegistryService
	reg     *repository.MemoryRepository
	devices *devicerepo.MemoryRepository
	clock   *clock.Manual
	userID  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clk := clock.NewManual(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	reg := repository.NewMemoryRepository()
	devices := devicerepo.NewMemoryRepository()
	fp, err := deviceregistry.NewFingerprinter([]byte("test-key"))
	if err != nil {
		t.Fatalf("NewFingerprinter: %v", err)
	}
	userID := ids.New()
	users := &fakeUsers{ids: map[string]bool{userID: true}}
	svc := NewRegistryService(reg, users, deviceservice.NewDeviceService(devices, clk), fp, clk, 0)
	return &harness{svc: svc, reg: reg, devices: devices, clock: clk, userID: userID}
}

func details(i int) *domain.DeviceDetails {
	return &domain.DeviceDetails{Browser: "Chrome", OS: "Windows", UserAgent: fmt.Sprintf("agent-%d", i), IPAddress: "198.51.100.7"}
}

func TestAssociateDevice_NewDevice(t *testing.T) {
	h := newHarness(t)
	id, err := h.svc.AssociateDevice(context.Background(), h.userID, details(0))
	if err != nil {
		t.Fatalf("AssociateDevice: %v", err)
	}
	if !ids.Valid(id) {
		t.Errorf("device id %q is not a valid id", id)
	}
	if h.reg.Len() != 1 || h.devices.Len() != 1 {
		t.Errorf("registrations=%d devices=%d, want 1/1", h.reg.Len(), h.devices.Len())
	}
}

func TestAssociateDevice_SameFingerprintReusesDevice(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	first, err := h.svc.AssociateDevice(ctx, h.userID, details(0))
	if err != nil {
		t.Fatalf("AssociateDevice: %v", err)
	}
	h.clock.Advance(time.Hour)
	second, err := h.svc.AssociateDevice(ctx, h.userID, details(0))
	if err != nil {
		t.Fatalf("AssociateDevice: %v", err)
	}
	if first != second {
		t.Errorf("device ids differ: %q vs %q", first, second)
	}
	if h.reg.Len() != 1 || h.devices.Len() != 1 {
		t.Errorf("registrations=%d devices=%d, want 1/1", h.reg.Len(), h.devices.Len())
	}
	d, _ := h.devices.GetByID(ctx, first)
	if !d.LastSeenAt.Equal(h.clock.Now()) {
		t.Errorf("LastSeenAt = %v, want %v", d.LastSeenAt, h.clock.Now())
	}
}

func TestAssociateDevice_DeviceLimit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	for i := 0; i < DefaultMaxDevices; i++ {
		if _, err := h.svc.AssociateDevice(ctx, h.userID, details(i)); err != nil {
			t.Fatalf("AssociateDevice #%d: %v", i+1, err)
		}
	}
	_, err := h.svc.AssociateDevice(ctx, h.userID, details(DefaultMaxDevices))
	if !errors.Is(err, ErrDeviceLimitReached) || !errors.Is(err, errs.ErrBusinessRuleViolation) {
		t.Fatalf("6th AssociateDevice err = %v, want ErrDeviceLimitReached", err)
	}
	if h.reg.Len() != DefaultMaxDevices || h.devices.Len() != DefaultMaxDevices {
		t.Errorf("registrations=%d devices=%d after limit, want %d", h.reg.Len(), h.devices.Len(), DefaultMaxDevices)
	}
	// A known device still resolves at the cap.
	if _, err := h.svc.AssociateDevice(ctx, h.userID, details(0)); err != nil {
		t.Errorf("known device at cap: %v", err)
	}
}

func TestAssociateDevice_UserNotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.AssociateDevice(context.Background(), ids.New(), details(0))
	if !errors.Is(err, errs.ErrEntityNotFound) {
		t.Fatalf("err = %v, want ErrEntityNotFound", err)
	}
	if h.devices.Len() != 0 || h.reg.Len() != 0 {
		t.Error("rows were written for a missing user")
	}
}

func TestAssociateDevice_InvalidArguments(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.svc.AssociateDevice(ctx, "", details(0)); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("empty user err = %v", err)
	}
	if _, err := h.svc.AssociateDevice(ctx, h.userID, nil); !errors.Is(err, ErrNilDeviceDetails) {
		t.Errorf("nil details err = %v", err)
	}
	blank := &domain.DeviceDetails{Browser: " ", OS: "linux"}
	if _, err := h.svc.AssociateDevice(ctx, h.userID, blank); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("blank browser err = %v", err)
	}
	if h.reg.Len() != 0 {
		t.Error("registration written for invalid input")
	}
}

func TestListDevicesAndOwnsDevice(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, _ := h.svc.AssociateDevice(ctx, h.userID, details(0))
	b, _ := h.svc.AssociateDevice(ctx, h.userID, details(1))
	got, err := h.svc.ListDevices(ctx, h.userID)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListDevices returned %d devices, want 2", len(got))
	}
	seen := map[string]bool{}
	for _, d := range got {
		seen[d.ID] = true
	}
	if !seen[a] || !seen[b] {
		t.Errorf("ListDevices = %v, want %s and %s", seen, a, b)
	}
	if ok, _ := h.svc.OwnsDevice(ctx, h.userID, a); !ok {
		t.Error("OwnsDevice(own) = false")
	}
	if ok, _ := h.svc.OwnsDevice(ctx, ids.New(), a); ok {
		t.Error("OwnsDevice(other user) = true")
	}
}
