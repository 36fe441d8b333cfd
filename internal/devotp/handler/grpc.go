// Package handler implements the dev-only gRPC DevService (GetOTP).
package handler

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	identityv1 "multidevice-identity/backend/api/identity/v1"
	"multidevice-identity/backend/internal/devotp"
)

const devOTPNote = "DEV MODE ONLY"

// Server implements DevService. Only registered when dev OTP is enabled and not production.
type Server struct {
	store devotp.Store
}

// NewServer returns a DevService server that reads OTP from the given store.
func NewServer(store devotp.Store) *Server {
	return &Server{store: store}
}

var _ identityv1.DevServiceServer = (*Server)(nil)

// GetOTP returns the last plain OTP sent to the email from the dev store. Returns NotFound if missing or expired.
func (s *Server) GetOTP(ctx context.Context, req *identityv1.GetOTPRequest) (*identityv1.GetOTPResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return nil, status.Error(codes.InvalidArgument, "email is required")
	}
	otp, ok := s.store.Get(ctx, email)
	if !ok {
		return nil, status.Error(codes.NotFound, "OTP not found or expired")
	}
	return &identityv1.GetOTPResponse{
		Otp:  otp,
		Note: devOTPNote,
	}, nil
}
