package grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/identity"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
)

func (s *GRPCServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	s.logger.Info(ctx, "Registration request")

	err := s.sessions.Register(ctx, services.RegisterInput{
		Email:     field(req, "email"),
		Password:  field(req, "password"),
		FirstName: field(req, "first_name"),
		LastName:  field(req, "last_name"),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return message(common.MsgRegistered)
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.sessions.Login(ctx, field(req, "email"), field(req, "password"))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrInvalidCredentials) {
			return nil, status.Error(codes.Unauthenticated, common.MsgInvalidLogin)
		}
		return nil, toStatus(err)
	}

	return newStruct(map[string]any{
		"token":     res.Token,
		"expiresAt": res.ExpiresAt.UTC().Format(time.RFC3339),
		"user":      profileFields(res.User),
	})
}

func (s *GRPCServer) Profile(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	id, ok := identity.FromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, common.MsgUnauthorized)
	}

	p, err := s.sessions.GetProfile(ctx, id.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, status.Error(codes.NotFound, common.MsgUserNotFound)
		}
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"user": profileFields(p)})
}

// Logout behaves like the HTTP handler: the gate interceptor rejects an
// already revoked token with Unauthenticated, so MsgAlreadyInvalidated only
// comes back when a concurrent logout wins between the gate and the ledger.
func (s *GRPCServer) Logout(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.sessions.Logout(ctx, bearerFromMetadata(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	if res == services.LogoutAlreadyInvalidated {
		return message(common.MsgAlreadyInvalidated)
	}
	return message(common.MsgLoggedOut)
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrDuplicateEmail):
		return status.Error(codes.AlreadyExists, common.MsgEmailExists)
	case errors.Is(err, common.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, common.MsgBadRequest)
	case errors.Is(err, common.ErrMissingToken):
		return status.Error(codes.Unauthenticated, common.MsgMissingToken)
	case errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, common.MsgInvalidToken)
	case errors.Is(err, common.ErrStoreUnavailable):
		return status.Error(codes.Unavailable, common.MsgServiceUnavailable)
	default:
		return status.Error(codes.Internal, common.MsgInternal)
	}
}

func field(req *structpb.Struct, key string) string {
	if req == nil {
		return ""
	}
	return req.GetFields()[key].GetStringValue()
}

func message(msg string) (*structpb.Struct, error) {
	return newStruct(map[string]any{"message": msg})
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, common.MsgInternal)
	}
	return st, nil
}

func profileFields(p *models.Profile) map[string]any {
	return map[string]any{
		"id":        p.ID,
		"firstName": p.FirstName,
		"lastName":  p.LastName,
		"email":     p.Email,
		"status":    string(p.Status),
		"createdAt": p.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt": p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
