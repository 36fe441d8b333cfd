package handler

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	identityv1 "multidevice-identity/backend/api/identity/v1"
	"multidevice-identity/backend/internal/devotp"
	"multidevice-identity/backend/internal/platform/clock"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestGetOTP_Success(t *testing.T) {
	store := devotp.NewMemoryStore(clock.NewManual(t0))
	store.Put(context.Background(), "alice@example.com", "123456", t0.Add(15*time.Minute))
	srv := NewServer(store)

	resp, err := srv.GetOTP(context.Background(), &identityv1.GetOTPRequest{Email: " Alice@Example.com "})
	if err != nil {
		t.Fatalf("GetOTP: %v", err)
	}
	if resp.Otp != "123456" {
		t.Errorf("otp = %q, want %q", resp.Otp, "123456")
	}
	if resp.Note != devOTPNote {
		t.Errorf("note = %q, want %q", resp.Note, devOTPNote)
	}
}

func TestGetOTP_EmptyEmail(t *testing.T) {
	srv := NewServer(devotp.NewMemoryStore(nil))
	_, err := srv.GetOTP(context.Background(), &identityv1.GetOTPRequest{Email: "  "})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestGetOTP_NotFound(t *testing.T) {
	srv := NewServer(devotp.NewMemoryStore(nil))
	_, err := srv.GetOTP(context.Background(), &identityv1.GetOTPRequest{Email: "bob@example.com"})
	if status.Code(err) != codes.NotFound {
		t.Errorf("code = %v, want NotFound", status.Code(err))
	}
}

func TestGetOTP_Expired(t *testing.T) {
	clk := clock.NewManual(t0)
	store := devotp.NewMemoryStore(clk)
	store.Put(context.Background(), "alice@example.com", "123456", t0.Add(time.Minute))
	clk.Advance(2 * time.Minute)

	_, err := NewServer(store).GetOTP(context.Background(), &identityv1.GetOTPRequest{Email: "alice@example.com"})
	if status.Code(err) != codes.NotFound {
		t.Errorf("code = %v, want NotFound", status.Code(err))
	}
}
