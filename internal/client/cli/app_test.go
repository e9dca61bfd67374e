package cli

import (
	"bufio"
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/config"
	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/dmitrijs2005/authkeeper/internal/server/testdb"
)

// newStack starts a real HTTP API on SQLite and an App pointed at it.
func newStack(t *testing.T, input ...string) (*App, *bytes.Buffer) {
	t.Helper()

	db := testdb.SQLite(t)
	rm := &repomanager.SQLiteRepositoryManager{}
	svc := services.NewSessionService(db, rm, rm.Revocations(db),
		auth.NewCodec([]byte("secret"), time.Hour, "authkeeper"),
		auth.NewBcryptHasher(bcrypt.MinCost), logging.Nop{}, nil)
	srv := httptest.NewServer(httpapi.NewServer("", svc, logging.Nop{}, nil).Handler())
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.ServerURL = srv.URL
	cfg.TokenStore = filepath.Join(t.TempDir(), "cli.db")

	app, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)

	var out bytes.Buffer
	app.out = &out
	app.reader = bufio.NewReader(strings.NewReader(strings.Join(input, "\n") + "\n"))
	return app, &out
}

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	old := readPassword
	readPassword = func(int) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { readPassword = old })
}

func TestApp_SessionLifecycle(t *testing.T) {
	capturePrint(t)
	stubPassword(t, "p1")

	app, out := newStack(t,
		"status",
		"register", "Ann", "Lee", "ann@x.com",
		"login", "ann@x.com",
		"status",
		"profile",
		"logout",
		"profile",
		"exit",
	)
	app.Run(context.Background())

	got := out.String()
	assert.Contains(t, got, "Not logged in")
	assert.Contains(t, got, "User registered successfully")
	assert.Contains(t, got, "Logged in as ann@x.com")
	assert.Contains(t, got, "Name:       Ann Lee")
	assert.Contains(t, got, "Status:     active")
	assert.Contains(t, got, "Logged out successfully")
	assert.Contains(t, got, "profile failed: not logged in")
	assert.NotContains(t, got, "warning: server")
}

func TestApp_RevokedTokenIsDropped(t *testing.T) {
	stubPassword(t, "p1")
	app, out := newStack(t, "", "", "bob@x.com", "bob@x.com")
	ctx := context.Background()

	require.NoError(t, app.Register(ctx))
	require.NoError(t, app.Login(ctx))
	require.True(t, app.isLoggedIn(ctx))

	// revoke the stored token without going through the CLI
	tok, err := metadata.NewSQLiteRepository(app.db).Get(ctx, metadata.KeyToken)
	require.NoError(t, err)
	_, err = client.NewHTTPClient(app.config.ServerURL, time.Second).Logout(ctx, string(tok))
	require.NoError(t, err)

	assert.ErrorIs(t, app.Profile(ctx), client.ErrUnauthorized)
	assert.Contains(t, out.String(), "Session is no longer valid, please log in again")
	assert.False(t, app.isLoggedIn(ctx))

	require.NoError(t, app.Status(ctx))
	assert.Contains(t, out.String(), "Not logged in")
}

func TestApp_LoginWrongPassword(t *testing.T) {
	stubPassword(t, "p1")
	app, out := newStack(t, "", "", "c@x.com", "c@x.com")
	ctx := context.Background()
	require.NoError(t, app.Register(ctx))

	stubPassword(t, "wrong")
	assert.ErrorIs(t, app.Login(ctx), client.ErrUnauthorized)
	assert.Contains(t, out.String(), "Invalid email or password")
	assert.False(t, app.isLoggedIn(ctx))
}
