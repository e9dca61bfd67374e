// Package testdb opens migrated throwaway databases for tests.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

// SQLite returns a migrated in-memory SQLite database private to t.
// It is closed when the test ends.
func SQLite(t testing.TB) *sql.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	m := &repomanager.SQLiteRepositoryManager{}
	db, err := repomanager.Open(context.Background(), m, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err := m.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}
