package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/dualcal/internal/common"
	"github.com/dmitrijs2005/dualcal/internal/logging"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code maps a service error onto a gRPC status code.
func Code(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, common.ErrUnauthenticated), errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return codes.Unauthenticated
	case errors.Is(err, common.ErrPermissionDenied):
		return codes.PermissionDenied
	case errors.Is(err, common.ErrInvalidArgument):
		return codes.InvalidArgument
	case errors.Is(err, common.ErrorNotFound):
		return codes.NotFound
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

func (s *GRPCServer) toStatus(ctx context.Context, method string, err error) error {
	code := Code(err)
	if code == codes.Internal {
		s.logger.Error(ctx, "request failed", "method", method, logging.Err(err))
	}
	return status.Error(code, err.Error())
}
