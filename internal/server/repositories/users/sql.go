package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// queries differ between dialects only in placeholder syntax.
type queries struct {
	exists string
	find   string
	create string
}

var postgresQueries = queries{
	exists: `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`,
	find: `SELECT id, email, password_hash, first_name, last_name, status, created_at, updated_at
		 FROM users
		 WHERE email = $1`,
	create: `INSERT INTO users (id, email, password_hash, first_name, last_name, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
}

var sqliteQueries = queries{
	exists: `SELECT EXISTS (SELECT 1 FROM users WHERE email = ?)`,
	find: `SELECT id, email, password_hash, first_name, last_name, status, created_at, updated_at
		 FROM users
		 WHERE email = ?`,
	create: `INSERT INTO users (id, email, password_hash, first_name, last_name, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
}

// SQLRepository implements Repository over database/sql.
type SQLRepository struct {
	db dbx.DBTX
	q  queries
}

func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: postgresQueries}
}

func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: sqliteQueries}
}

func (r *SQLRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, r.q.exists, email).Scan(&exists); err != nil {
		return false, dbError(err)
	}
	return exists, nil
}

func (r *SQLRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, r.q.find, email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.Status, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, dbError(err)
	}

	return user, nil
}

// Create assigns a UUID when user.ID is empty.
func (r *SQLRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx, r.q.create,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		string(user.Status), user.CreatedAt.UTC(), user.UpdatedAt.UTC())

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, dbError(err)
	}

	return user, nil
}

func dbError(err error) error {
	return fmt.Errorf("%w: db error: %w", common.ErrStoreUnavailable, err)
}
