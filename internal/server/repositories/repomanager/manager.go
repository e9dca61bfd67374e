// Package repomanager vends dialect-specific SQL repositories and runs the
// embedded goose migrations for the configured driver.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/migrations"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/revocations"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Revocations(db dbx.DBTX) revocations.Repository
	// DriverName is the database/sql driver to open DSNs with.
	DriverName() string
}

// New returns the manager for driver ("postgres" or "sqlite").
func New(driver string) (RepositoryManager, error) {
	switch driver {
	case "postgres":
		return &PostgresRepositoryManager{}, nil
	case "sqlite":
		return &SQLiteRepositoryManager{}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

// connTuner is implemented by managers whose driver needs DSN parameters or
// pool limits applied at open time.
type connTuner interface {
	tuneDSN(dsn string) string
	tunePool(db *sql.DB)
}

// Open opens and pings the database for m.
func Open(ctx context.Context, m RepositoryManager, dsn string) (*sql.DB, error) {
	tuner, tuned := m.(connTuner)
	if tuned {
		dsn = tuner.tuneDSN(dsn)
	}
	db, err := sql.Open(m.DriverName(), dsn)
	if err != nil {
		return nil, err
	}
	if tuned {
		tuner.tunePool(db)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// SetMigrationLogger routes goose output through l. goose keeps its logger
// globally, so this affects every migration run in the process.
func SetMigrationLogger(l logging.Logger) {
	goose.SetLogger(logging.NewPrintfAdapter(l.With("module", "migrations")))
}

func runMigrations(ctx context.Context, db *sql.DB, dialect, dir string) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("migrate %s: %w", dialect, err)
	}
	return nil
}
