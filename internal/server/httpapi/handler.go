package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/identity"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
)

type registerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeMessage(c, http.StatusBadRequest, common.MsgBadRequest)
		return
	}

	err := s.sessions.Register(c.Request.Context(), services.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	switch {
	case err == nil:
		writeMessage(c, http.StatusOK, common.MsgRegistered)
	case errors.Is(err, common.ErrDuplicateEmail):
		writeMessage(c, http.StatusBadRequest, common.MsgEmailExists)
	case errors.Is(err, common.ErrInvalidInput):
		writeMessage(c, http.StatusBadRequest, common.MsgBadRequest)
	default:
		writeServiceError(c, err)
	}
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeMessage(c, http.StatusBadRequest, common.MsgBadRequest)
		return
	}

	res, err := s.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrInvalidCredentials) {
			writeMessage(c, http.StatusUnauthorized, common.MsgInvalidLogin)
			return
		}
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     res.Token,
		"expiresAt": res.ExpiresAt,
		"user":      res.User,
	})
}

func (s *Server) profile(c *gin.Context) {
	id, ok := identity.FromContext(c.Request.Context())
	if !ok {
		writeMessage(c, http.StatusUnauthorized, common.MsgUnauthorized)
		return
	}

	p, err := s.sessions.GetProfile(c.Request.Context(), id.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeMessage(c, http.StatusNotFound, common.MsgUserNotFound)
			return
		}
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": p})
}

// logout reads the token from the header itself, so it works whether or not
// the gate attached an identity.
//
// The gate answers 401 for a token that is already revoked, so a repeated
// logout normally never reaches this handler. MsgAlreadyInvalidated is only
// sent when another logout revokes the token after this request passed the
// gate.
func (s *Server) logout(c *gin.Context) {
	token := common.BearerToken(c.GetHeader(common.AuthorizationHeaderName))

	res, err := s.sessions.Logout(c.Request.Context(), token)
	switch {
	case err == nil && res == services.LogoutAlreadyInvalidated:
		writeMessage(c, http.StatusOK, common.MsgAlreadyInvalidated)
	case err == nil:
		writeMessage(c, http.StatusOK, common.MsgLoggedOut)
	case errors.Is(err, common.ErrMissingToken):
		writeMessage(c, http.StatusUnauthorized, common.MsgMissingToken)
	case errors.Is(err, common.ErrInvalidToken):
		writeMessage(c, http.StatusUnauthorized, common.MsgInvalidToken)
	default:
		writeServiceError(c, err)
	}
}

func (s *Server) healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok\n")
}

func (s *Server) readyz(c *gin.Context) {
	if err := s.sessions.Ready(c.Request.Context()); err != nil {
		s.logger.Info(c.Request.Context(), "readyz.db.not_ready", "error", err)
		c.String(http.StatusServiceUnavailable, "db not ready\n")
		return
	}
	c.String(http.StatusOK, "ready\n")
}
