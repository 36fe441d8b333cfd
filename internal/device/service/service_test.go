package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"multidevice-identity/backend/internal/device/repository"
	"multidevice-identity/backend/internal/platform/clock"
	"multidevice-identity/backend/internal/platform/errs"
	"multidevice-identity/backend/internal/platform/ids"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService() (*DeviceService, *repository.MemoryRepository, *clock.Manual) {
	repo := repository.NewMemoryRepository()
	clk := clock.NewManual(t0)
	return NewDeviceService(repo, clk), repo, clk
}

func TestCreate_NormalizesName(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()
	tests := []struct {
		browser, os, want string
	}{
		{"Chrome", "Windows", "chrome_windows"},
		{"  Firefox ", " Linux", "firefox_linux"},
		{"SAFARI", "MacOS", "safari_macos"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			id, err := svc.Create(ctx, tt.browser, tt.os, "ua", "10.0.0.1")
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			d, err := repo.GetByID(ctx, id)
			if err != nil || d == nil {
				t.Fatalf("GetByID: %v, %v", d, err)
			}
			if d.Name != tt.want {
				t.Errorf("Name = %q, want %q", d.Name, tt.want)
			}
			if !d.IsActive {
				t.Error("new device should be active")
			}
			if !d.CreatedAt.Equal(t0) || !d.LastSeenAt.Equal(t0) {
				t.Errorf("timestamps = %v / %v, want %v", d.CreatedAt, d.LastSeenAt, t0)
			}
		})
	}
}

func TestCreate_BlankInputs(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()
	tests := []struct {
		name, browser, os string
	}{
		{"empty browser", "", "linux"},
		{"blank browser", "   ", "linux"},
		{"empty os", "chrome", ""},
		{"blank os", "chrome", "\t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.browser, tt.os, "", "")
			if !errors.Is(err, errs.ErrInvalidArgument) {
				t.Errorf("Create err = %v, want ErrInvalidArgument", err)
			}
		})
	}
	if repo.Len() != 0 {
		t.Errorf("repo has %d devices, want 0", repo.Len())
	}
}

func TestGetByID_InvalidID(t *testing.T) {
	svc, _, _ := newTestService()
	for _, id := range []string{"", "00000000-0000-0000-0000-000000000000"} {
		if _, err := svc.GetByID(context.Background(), id); !errors.Is(err, errs.ErrInvalidArgument) {
			t.Errorf("GetByID(%q) err = %v, want ErrInvalidArgument", id, err)
		}
	}
}

func TestGetByIDs(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()
	before := repo.Calls()
	got, err := svc.GetByIDs(ctx, nil)
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(got) != 0 || got == nil {
		t.Errorf("GetByIDs(nil) = %v, want empty non-nil slice", got)
	}
	if repo.Calls() != before {
		t.Error("GetByIDs on empty input must not query storage")
	}
	a, _ := svc.Create(ctx, "chrome", "linux", "", "")
	b, _ := svc.Create(ctx, "firefox", "linux", "", "")
	got, err = svc.GetByIDs(ctx, []string{a, b, ids.New()})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("GetByIDs returned %d devices, want 2", len(got))
	}
	if _, err := svc.GetByIDs(ctx, []string{a, ""}); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("GetByIDs with empty id err = %v, want ErrInvalidArgument", err)
	}
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()
	before := repo.Calls()
	ok, err := svc.Exists(ctx, "")
	if err != nil || ok {
		t.Errorf("Exists(\"\") = %v, %v; want false, nil", ok, err)
	}
	if repo.Calls() != before {
		t.Error("Exists on empty id must not query storage")
	}
	id, _ := svc.Create(ctx, "chrome", "linux", "", "")
	if ok, _ := svc.Exists(ctx, id); !ok {
		t.Error("Exists(created) = false")
	}
	if ok, _ := svc.Exists(ctx, ids.New()); ok {
		t.Error("Exists(unknown) = true")
	}
}

func TestUpdateLastSeen(t *testing.T) {
	ctx := context.Background()
	svc, repo, clk := newTestService()
	id, _ := svc.Create(ctx, "chrome", "linux", "", "")
	clk.Advance(time.Hour)
	ok, err := svc.UpdateLastSeen(ctx, id)
	if err != nil || !ok {
		t.Fatalf("UpdateLastSeen = %v, %v", ok, err)
	}
	d, _ := repo.GetByID(ctx, id)
	if !d.LastSeenAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("LastSeenAt = %v, want %v", d.LastSeenAt, t0.Add(time.Hour))
	}
	if !d.CreatedAt.Equal(t0) {
		t.Errorf("CreatedAt changed to %v", d.CreatedAt)
	}
	ok, err = svc.UpdateLastSeen(ctx, ids.New())
	if err != nil || ok {
		t.Errorf("UpdateLastSeen(unknown) = %v, %v; want false, nil", ok, err)
	}
}

func TestDisable_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()
	id, _ := svc.Create(ctx, "chrome", "linux", "", "")
	for i := 0; i < 2; i++ {
		ok, err := svc.Disable(ctx, id)
		if err != nil || !ok {
			t.Fatalf("Disable #%d = %v, %v", i+1, ok, err)
		}
	}
	d, _ := repo.GetByID(ctx, id)
	if d.IsActive {
		t.Error("device still active after Disable")
	}
	if ok, _ := svc.Disable(ctx, ids.New()); ok {
		t.Error("Disable(unknown) = true")
	}
}
