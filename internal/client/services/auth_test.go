package services

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/metadata"
)

type fakeClient struct {
	session    *models.Session
	loginErr   error
	profile    *models.Profile
	profileErr error
	logoutMsg  string
	logoutErr  error
	pingErr    error

	lastToken string
}

func (f *fakeClient) Register(_ context.Context, req models.RegisterRequest) (string, error) {
	return "registered " + req.Email, nil
}
func (f *fakeClient) Login(context.Context, string, string) (*models.Session, error) {
	return f.session, f.loginErr
}
func (f *fakeClient) Profile(_ context.Context, token string) (*models.Profile, error) {
	f.lastToken = token
	return f.profile, f.profileErr
}
func (f *fakeClient) Logout(_ context.Context, token string) (string, error) {
	f.lastToken = token
	return f.logoutMsg, f.logoutErr
}
func (f *fakeClient) Ping(context.Context) error { return f.pingErr }

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "cli.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func storedToken(t *testing.T, db *sql.DB) string {
	t.Helper()
	v, err := metadata.NewSQLiteRepository(db).Get(context.Background(), metadata.KeyToken)
	require.NoError(t, err)
	return string(v)
}

func loggedIn(t *testing.T, fc *fakeClient) (AuthService, *sql.DB) {
	t.Helper()
	db := setupDB(t)
	fc.session = &models.Session{
		Token:     "tok",
		ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		User:      models.Profile{Email: "a@x.com"},
	}
	svc := NewAuthService(fc, db)
	_, err := svc.Login(context.Background(), "a@x.com", "p1")
	require.NoError(t, err)
	return svc, db
}

func TestLogin_PersistsSession(t *testing.T) {
	svc, db := loggedIn(t, &fakeClient{})

	assert.Equal(t, "tok", storedToken(t, db))

	st, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", st.Email)
	assert.True(t, st.ExpiresAt.Equal(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestLogin_ServerErrorStoresNothing(t *testing.T) {
	db := setupDB(t)
	svc := NewAuthService(&fakeClient{loginErr: client.ErrUnauthorized}, db)

	_, err := svc.Login(context.Background(), "a@x.com", "bad")
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Empty(t, storedToken(t, db))
}

func TestNotLoggedIn(t *testing.T) {
	svc := NewAuthService(&fakeClient{}, setupDB(t))
	ctx := context.Background()

	_, err := svc.Profile(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	_, err = svc.Logout(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	_, err = svc.Status(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestProfile_SendsStoredToken(t *testing.T) {
	fc := &fakeClient{profile: &models.Profile{Email: "a@x.com"}}
	svc, _ := loggedIn(t, fc)

	p, err := svc.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", p.Email)
	assert.Equal(t, "tok", fc.lastToken)
}

func TestProfile_UnauthorizedClearsSession(t *testing.T) {
	fc := &fakeClient{profileErr: client.ErrUnauthorized}
	svc, db := loggedIn(t, fc)

	_, err := svc.Profile(context.Background())
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Empty(t, storedToken(t, db))
}

func TestProfile_UnavailableKeepsSession(t *testing.T) {
	svc, db := loggedIn(t, &fakeClient{profileErr: client.ErrUnavailable})

	_, err := svc.Profile(context.Background())
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.Equal(t, "tok", storedToken(t, db))
}

func TestLogout(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantErr   error
		wantToken string
	}{
		{name: "ok"},
		{name: "already invalid", err: client.ErrUnauthorized, wantErr: client.ErrUnauthorized},
		{name: "server down", err: client.ErrUnavailable, wantErr: client.ErrUnavailable, wantToken: "tok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeClient{logoutMsg: "Logged out successfully", logoutErr: tt.err}
			svc, db := loggedIn(t, fc)

			msg, err := svc.Logout(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "Logged out successfully", msg)
			}
			assert.Equal(t, "tok", fc.lastToken)
			assert.Equal(t, tt.wantToken, storedToken(t, db))
		})
	}
}

func TestRegisterAndPing_Delegate(t *testing.T) {
	svc := NewAuthService(&fakeClient{pingErr: errors.New("down")}, setupDB(t))

	msg, err := svc.Register(context.Background(), models.RegisterRequest{Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "registered a@x.com", msg)
	assert.EqualError(t, svc.Ping(context.Background()), "down")
}
