package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/identity"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
)

// gate resolves the bearer token, if any, to an identity on the request
// context.
//
// No token: the request continues unauthenticated. Revoked or invalid
// token, or a failed ledger lookup: 401 and the chain stops. Unknown user or
// any other failure, panics included: logged, and the request continues
// unauthenticated.
func (s *Server) gate(c *gin.Context) {
	if _, ok := s.public[c.FullPath()]; ok {
		c.Next()
		return
	}

	ctx := c.Request.Context()
	token := common.BearerToken(c.GetHeader(common.AuthorizationHeaderName))
	if token == "" {
		s.metrics.GateDecision("http", metrics.GateAnonymous)
		c.Next()
		return
	}

	id, err := s.authenticate(ctx, token)
	switch {
	case err == nil:
		s.metrics.GateDecision("http", metrics.GateAuthenticated)
		c.Request = c.Request.WithContext(identity.WithIdentity(ctx, id))
	case errors.Is(err, common.ErrInvalidToken):
		s.metrics.GateDecision("http", metrics.GateRejected)
		s.logger.Info(ctx, "gate rejected token", "path", c.Request.URL.Path, "error", err)
		abortMessage(c, http.StatusUnauthorized, common.MsgInvalidToken)
		return
	case errors.Is(err, services.ErrLedgerUnavailable):
		s.metrics.GateDecision("http", metrics.GateRejected)
		s.logger.Error(ctx, "gate failed closed: revocation ledger unavailable", "path", c.Request.URL.Path, "error", err)
		abortMessage(c, http.StatusUnauthorized, common.MsgUnauthorized)
		return
	default:
		s.metrics.GateDecision("http", metrics.GateFailOpen)
		s.logger.Warn(ctx, "gate could not resolve identity, continuing unauthenticated",
			"path", c.Request.URL.Path, "error", err)
	}

	c.Next()
}

func (s *Server) authenticate(ctx context.Context, token string) (id identity.Identity, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic in gate: %v", common.ErrInternal, r)
		}
	}()
	return s.sessions.Authenticate(ctx, token)
}
