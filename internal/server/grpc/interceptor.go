package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/identity"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
)

// bearerFromMetadata reads "authorization: Bearer <token>" from incoming
// metadata.
func bearerFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(common.AuthorizationMetadataKey)
	if len(values) == 0 {
		return ""
	}
	return common.BearerToken(values[0])
}

// authInterceptor is the request gate. Same policy as the HTTP gate: absent
// token continues anonymously, revoked or invalid tokens and ledger outages
// are rejected, anything else continues anonymously after logging.
func (s *GRPCServer) authInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if _, ok := s.public[info.FullMethod]; ok {
		return handler(ctx, req)
	}

	token := bearerFromMetadata(ctx)
	if token == "" {
		s.metrics.GateDecision("grpc", metrics.GateAnonymous)
		return handler(ctx, req)
	}

	id, err := s.authenticate(ctx, token)
	switch {
	case err == nil:
		s.metrics.GateDecision("grpc", metrics.GateAuthenticated)
		ctx = identity.WithIdentity(ctx, id)
	case errors.Is(err, common.ErrInvalidToken):
		s.metrics.GateDecision("grpc", metrics.GateRejected)
		s.logger.Info(ctx, "gate rejected token", "method", info.FullMethod, "error", err)
		return nil, status.Error(codes.Unauthenticated, common.MsgInvalidToken)
	case errors.Is(err, services.ErrLedgerUnavailable):
		s.metrics.GateDecision("grpc", metrics.GateRejected)
		s.logger.Error(ctx, "gate failed closed: revocation ledger unavailable", "method", info.FullMethod, "error", err)
		return nil, status.Error(codes.Unauthenticated, common.MsgUnauthorized)
	default:
		s.metrics.GateDecision("grpc", metrics.GateFailOpen)
		s.logger.Warn(ctx, "gate could not resolve identity, continuing unauthenticated",
			"method", info.FullMethod, "error", err)
	}

	return handler(ctx, req)
}

func (s *GRPCServer) authenticate(ctx context.Context, token string) (id identity.Identity, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic in gate: %v", common.ErrInternal, r)
		}
	}()
	return s.sessions.Authenticate(ctx, token)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Info(ctx, "grpc.request",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, err
}
