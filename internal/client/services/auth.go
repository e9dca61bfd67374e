// Package services contains application services for the authkeeper CLI.
// The auth service keeps the session token in the local store and drops it
// whenever the server reports it as no longer valid.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
)

var ErrNotLoggedIn = errors.New("not logged in")

// SessionState is what the local store knows about the current session.
type SessionState struct {
	Email     string
	ExpiresAt time.Time
}

// AuthService defines session operations for the CLI.
type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (string, error)
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Profile(ctx context.Context) (*models.Profile, error)
	Logout(ctx context.Context) (string, error)
	Status(ctx context.Context) (*SessionState, error)
	Ping(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
}

func NewAuthService(client client.Client, db *sql.DB) AuthService {
	return &authService{client: client, db: db}
}

func (a *authService) getMetadataRepo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

func (a *authService) Register(ctx context.Context, req models.RegisterRequest) (string, error) {
	return a.client.Register(ctx, req)
}

// Login authenticates against the server and persists the session.
func (a *authService) Login(ctx context.Context, email, password string) (*models.Session, error) {
	s, err := a.client.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	if err := a.saveSession(ctx, s); err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	return s, nil
}

func (a *authService) saveSession(ctx context.Context, s *models.Session) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.getMetadataRepo(tx)
		if err := repo.Set(ctx, metadata.KeyToken, []byte(s.Token)); err != nil {
			return err
		}
		if err := repo.Set(ctx, metadata.KeyEmail, []byte(s.User.Email)); err != nil {
			return err
		}
		return repo.Set(ctx, metadata.KeyExpiresAt, []byte(s.ExpiresAt.UTC().Format(time.RFC3339)))
	})
}

func (a *authService) token(ctx context.Context) (string, error) {
	v, err := a.getMetadataRepo(a.db).Get(ctx, metadata.KeyToken)
	if err != nil {
		return "", err
	}
	if len(v) == 0 {
		return "", ErrNotLoggedIn
	}
	return string(v), nil
}

// Profile fetches the current user. A 401 clears the stored session.
func (a *authService) Profile(ctx context.Context) (*models.Profile, error) {
	token, err := a.token(ctx)
	if err != nil {
		return nil, err
	}

	p, err := a.client.Profile(ctx, token)
	if err != nil {
		if client.IsUnauthorized(err) {
			if cerr := a.clearSession(ctx); cerr != nil {
				return nil, errors.Join(err, cerr)
			}
		}
		return nil, err
	}
	return p, nil
}

// Logout revokes the token on the server and clears the stored session.
// The session is kept when the server could not be reached.
func (a *authService) Logout(ctx context.Context) (string, error) {
	token, err := a.token(ctx)
	if err != nil {
		return "", err
	}

	msg, err := a.client.Logout(ctx, token)
	if err != nil && !client.IsUnauthorized(err) {
		return "", err
	}

	if cerr := a.clearSession(ctx); cerr != nil {
		return "", cerr
	}
	return msg, err
}

func (a *authService) Status(ctx context.Context) (*SessionState, error) {
	repo := a.getMetadataRepo(a.db)

	if _, err := a.token(ctx); err != nil {
		return nil, err
	}

	email, err := repo.Get(ctx, metadata.KeyEmail)
	if err != nil {
		return nil, err
	}
	state := &SessionState{Email: string(email)}

	exp, err := repo.Get(ctx, metadata.KeyExpiresAt)
	if err != nil {
		return nil, err
	}
	if t, perr := time.Parse(time.RFC3339, string(exp)); perr == nil {
		state.ExpiresAt = t
	}
	return state, nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) clearSession(ctx context.Context) error {
	return a.getMetadataRepo(a.db).Clear(ctx)
}
