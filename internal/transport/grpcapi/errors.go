package grpcapi

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Leganyst/association-portal/internal/authz"
	"github.com/Leganyst/association-portal/internal/model"
	"github.com/Leganyst/association-portal/internal/workflow"
)

// toStatus переводит доменные ошибки в коды gRPC.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var code codes.Code
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrEventNotValidated),
		errors.Is(err, model.ErrNotProvisioned):
		code = codes.FailedPrecondition
	case errors.Is(err, workflow.ErrDuplicateName):
		code = codes.AlreadyExists
	case errors.Is(err, authz.ErrForbidden),
		errors.Is(err, workflow.ErrRoleCannotApprove):
		code = codes.PermissionDenied
	case errors.Is(err, workflow.ErrInvalidActor):
		code = codes.Unauthenticated
	case errors.Is(err, workflow.ErrInvalidDecision),
		errors.Is(err, workflow.ErrUnknownRole):
		code = codes.InvalidArgument
	case errors.Is(err, workflow.ErrStalePlan):
		code = codes.Aborted
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}
