// Package users is the credential store: user records keyed by a unique
// email, backed by PostgreSQL or SQLite.
package users

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type Repository interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// Create inserts user. It returns common.ErrDuplicateEmail when the
	// email is already taken.
	Create(ctx context.Context, user *models.User) (*models.User, error)
}
