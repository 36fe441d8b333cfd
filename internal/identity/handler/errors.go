package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	identityservice "multidevice-identity/backend/internal/identity/service"
	"multidevice-identity/backend/internal/platform/errs"
)

// toStatus maps a service error to a gRPC status. Internal errors are logged and their text is
// not sent to the client.
func toStatus(ctx context.Context, log *slog.Logger, method string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, identityservice.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, errs.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, errs.ErrEntityNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, errs.ErrBusinessRuleViolation):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, errs.ErrInvalidOperation):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}
	log.ErrorContext(ctx, "identity: rpc failed", "method", method, "error", err)
	return status.Error(codes.Internal, "internal error")
}

// validationStatus turns validator errors into InvalidArgument naming the first failing field.
func validationStatus(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return status.Errorf(codes.InvalidArgument, "%s: failed %s", fe.Field(), fe.Tag())
	}
	return status.Error(codes.InvalidArgument, err.Error())
}
