// Package services contains server-side business logic. SessionService
// handles registration, login, profile lookup, logout and the per-request
// token authentication used by the HTTP and gRPC gates.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/identity"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/revocations"
)

// ErrLedgerUnavailable marks a failed revocation lookup during
// Authenticate. Gates reject such requests instead of letting them through.
var ErrLedgerUnavailable = errors.New("revocation ledger unavailable")

// TokenCodec issues and parses session tokens.
type TokenCodec interface {
	Issue(subject string) (string, time.Time, error)
	Parse(token string) (*auth.Claims, error)
	Validate(token string) bool
	ExpiryOf(token string) (time.Time, error)
}

// PasswordHasher is a one-way hash with a constant-time verifier.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.Profile
}

// LogoutResult tells a fresh revocation apart from a repeated logout.
type LogoutResult int

const (
	LogoutRevoked LogoutResult = iota + 1
	LogoutAlreadyInvalidated
)

// dummyPassword is hashed once and verified against when a login names an
// unknown email, so both failure paths cost one bcrypt comparison.
const dummyPassword = "authkeeper-dummy-password"

type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ledger      revocations.Repository
	codec       TokenCodec
	hasher      PasswordHasher
	logger      logging.Logger
	metrics     *metrics.Metrics
	now         func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewSessionService wires the service. ledger may be backed by the same
// database as the users or by MongoDB. m may be nil.
func NewSessionService(db *sql.DB, rm repomanager.RepositoryManager, ledger revocations.Repository,
	codec TokenCodec, hasher PasswordHasher, l logging.Logger, m *metrics.Metrics) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: rm,
		ledger:      ledger,
		codec:       codec,
		hasher:      hasher,
		logger:      l.With("module", "session_service"),
		metrics:     m,
		now:         time.Now,
	}
}

// Register creates an active user. The existence check and the insert share
// one transaction, and the unique constraint on email backs it up. The
// password is hashed before the transaction opens so bcrypt never holds a
// connection.
func (s *SessionService) Register(ctx context.Context, in RegisterInput) error {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		s.metrics.SessionOp("register", "invalid_input")
		return common.ErrInvalidInput
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.metrics.SessionOp("register", "error")
		s.logger.Error(ctx, "registration failed", "email", in.Email, "error", err)
		return fmt.Errorf("%w: hash password: %w", common.ErrInternal, err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		exists, err := repo.ExistsByEmail(ctx, in.Email)
		if err != nil {
			return err
		}
		if exists {
			return common.ErrDuplicateEmail
		}

		now := s.now().UTC()
		_, err = repo.Create(ctx, &models.User{
			Email:        in.Email,
			PasswordHash: hash,
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			Status:       models.StatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		return err
	})

	switch {
	case err == nil:
		s.metrics.SessionOp("register", "ok")
		s.logger.Info(ctx, "user registered", "email", in.Email)
		return nil
	case errors.Is(err, common.ErrDuplicateEmail):
		s.metrics.SessionOp("register", "duplicate_email")
		s.logger.Info(ctx, "registration rejected: email exists", "email", in.Email)
		return common.ErrDuplicateEmail
	default:
		s.metrics.SessionOp("register", "error")
		s.logger.Error(ctx, "registration failed", "email", in.Email, "error", err)
		// Unclassified errors here come from begin or commit.
		if errors.Is(err, common.ErrStoreUnavailable) || errors.Is(err, common.ErrInternal) {
			return err
		}
		return fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}
}

// Login verifies credentials and issues a token. Unknown email yields
// common.ErrNotFound and a wrong password common.ErrInvalidCredentials;
// transports report both the same way.
func (s *SessionService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repomanager.Users(s.db).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.hasher.Verify(s.getDummyHash(), password)
			s.metrics.SessionOp("login", "not_found")
			s.logger.Info(ctx, "login failed: unknown email", "email", email)
			return nil, common.ErrNotFound
		}
		s.metrics.SessionOp("login", "error")
		s.logger.Error(ctx, "login lookup failed", "email", email, "error", err)
		return nil, storeOrInternal(err)
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		s.metrics.SessionOp("login", "invalid_credentials")
		s.logger.Info(ctx, "login failed: wrong password", "email", email)
		return nil, common.ErrInvalidCredentials
	}

	token, expiresAt, err := s.codec.Issue(user.Email)
	if err != nil {
		s.metrics.SessionOp("login", "error")
		s.logger.Error(ctx, "token issue failed", "email", email, "error", err)
		return nil, common.ErrInternal
	}

	s.metrics.SessionOp("login", "ok")
	s.logger.Info(ctx, "login succeeded", "user_id", user.ID)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user.ToProfile()}, nil
}

// GetProfile returns the profile for email, which must come from the
// identity attached by a gate.
func (s *SessionService) GetProfile(ctx context.Context, email string) (*models.Profile, error) {
	user, err := s.repomanager.Users(s.db).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		s.logger.Error(ctx, "profile lookup failed", "email", email, "error", err)
		return nil, storeOrInternal(err)
	}
	return user.ToProfile(), nil
}

// Logout revokes token. A second logout of the same token reports
// LogoutAlreadyInvalidated. Success is reported only once the ledger write
// has returned.
func (s *SessionService) Logout(ctx context.Context, token string) (LogoutResult, error) {
	if strings.TrimSpace(token) == "" {
		s.metrics.SessionOp("logout", "missing_token")
		return 0, common.ErrMissingToken
	}
	if !s.codec.Validate(token) {
		s.metrics.SessionOp("logout", "invalid_token")
		return 0, common.ErrInvalidToken
	}

	revoked, err := s.ledger.IsRevoked(ctx, token)
	if err != nil {
		s.metrics.SessionOp("logout", "error")
		s.logger.Error(ctx, "revocation lookup failed", "error", err)
		return 0, storeOrInternal(err)
	}
	if revoked {
		s.metrics.SessionOp("logout", "already_invalidated")
		return LogoutAlreadyInvalidated, nil
	}

	expiresAt, err := s.codec.ExpiryOf(token)
	if err != nil {
		s.metrics.SessionOp("logout", "invalid_token")
		return 0, common.ErrInvalidToken
	}

	if err := s.ledger.Revoke(ctx, token, expiresAt); err != nil {
		s.metrics.SessionOp("logout", "error")
		s.logger.Error(ctx, "revocation write failed", "error", err)
		return 0, storeOrInternal(err)
	}

	s.metrics.TokenRevoked()
	s.metrics.SessionOp("logout", "ok")
	s.logger.Info(ctx, "token revoked", "expires_at", expiresAt)
	return LogoutRevoked, nil
}

// Authenticate resolves a bearer token to an identity. The ledger is
// consulted before the signature. Errors:
//   - ErrLedgerUnavailable (wrapping common.ErrStoreUnavailable): ledger lookup failed.
//   - common.ErrInvalidToken: revoked, badly signed or expired.
//   - common.ErrNotFound: the subject no longer exists.
//   - anything else: user lookup failed.
func (s *SessionService) Authenticate(ctx context.Context, token string) (identity.Identity, error) {
	revoked, err := s.ledger.IsRevoked(ctx, token)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}
	if revoked {
		return identity.Identity{}, fmt.Errorf("%w: revoked", common.ErrInvalidToken)
	}

	claims, err := s.codec.Parse(token)
	if err != nil {
		return identity.Identity{}, common.ErrInvalidToken
	}

	user, err := s.repomanager.Users(s.db).FindByEmail(ctx, claims.Subject)
	if err != nil {
		return identity.Identity{}, err
	}

	return identity.Identity{
		UserID:    user.ID,
		Email:     user.Email,
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Ready pings the credential store.
func (s *SessionService) Ready(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *SessionService) getDummyHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.logger.Warn(context.Background(), "dummy hash failed", "error", err)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

// storeOrInternal keeps store failures recognizable and folds everything
// else into common.ErrInternal.
func storeOrInternal(err error) error {
	if errors.Is(err, common.ErrStoreUnavailable) || errors.Is(err, common.ErrInternal) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrInternal, err)
}
