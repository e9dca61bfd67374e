package revocations

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
)

type queries struct {
	isRevoked string
	revoke    string
	purge     string
	// timeArg converts a timestamp to the column representation.
	timeArg func(time.Time) any
}

var postgresQueries = queries{
	isRevoked: `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_hash = $1)`,
	revoke: `INSERT INTO revoked_tokens (token_hash, expires_at, revoked_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (token_hash) DO NOTHING`,
	purge:   `DELETE FROM revoked_tokens WHERE expires_at <= $1`,
	timeArg: func(t time.Time) any { return t.UTC() },
}

var sqliteQueries = queries{
	isRevoked: `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_hash = ?)`,
	revoke: `INSERT INTO revoked_tokens (token_hash, expires_at, revoked_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (token_hash) DO NOTHING`,
	purge:   `DELETE FROM revoked_tokens WHERE expires_at <= ?`,
	timeArg: func(t time.Time) any { return t.Unix() },
}

// SQLRepository implements Repository over database/sql. Writes go through
// the handle it was built with and are committed when Revoke returns unless
// that handle is a transaction.
type SQLRepository struct {
	db  dbx.DBTX
	q   queries
	now func() time.Time
}

func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: postgresQueries, now: time.Now}
}

func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: sqliteQueries, now: time.Now}
}

func (r *SQLRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	var revoked bool
	if err := r.db.QueryRowContext(ctx, r.q.isRevoked, HashToken(token)).Scan(&revoked); err != nil {
		return false, dbError(err)
	}
	return revoked, nil
}

func (r *SQLRepository) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, r.q.revoke,
		HashToken(token), r.q.timeArg(expiresAt), r.q.timeArg(r.now()))
	if err != nil {
		return dbError(err)
	}
	return nil
}

func (r *SQLRepository) Purge(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.q.purge, r.q.timeArg(now))
	if err != nil {
		return 0, dbError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbError(err)
	}
	return n, nil
}

func dbError(err error) error {
	return fmt.Errorf("%w: db error: %w", common.ErrStoreUnavailable, err)
}
