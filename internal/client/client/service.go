// Package client talks to the authkeeper HTTP API and opens the local
// token store.
package client

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
)

type Client interface {
	Register(ctx context.Context, req models.RegisterRequest) (string, error)
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Profile(ctx context.Context, token string) (*models.Profile, error)
	Logout(ctx context.Context, token string) (string, error)
	Ping(ctx context.Context) error
}
