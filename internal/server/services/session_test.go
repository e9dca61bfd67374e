package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/revocations"
	usersrepo "github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
)

// --- fakes ---

type fakeUsersRepo struct {
	users map[string]*models.User

	existsErr error
	findErr   error
	createErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{users: map[string]*models.User{}}
}

func (f *fakeUsersRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.users[email]
	return ok, nil
}

func (f *fakeUsersRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	u, ok := f.users[email]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if u.ID == "" {
		u.ID = "u-" + u.Email
	}
	cp := *u
	f.users[u.Email] = &cp
	return u, nil
}

type fakeLedger struct {
	entries map[string]time.Time

	isErr     error
	revokeErr error
	purgeN    int64
	purgeErr  error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: map[string]time.Time{}}
}

func (f *fakeLedger) IsRevoked(ctx context.Context, token string) (bool, error) {
	if f.isErr != nil {
		return false, f.isErr
	}
	_, ok := f.entries[token]
	return ok, nil
}

func (f *fakeLedger) Revoke(ctx context.Context, token string, exp time.Time) error {
	if f.revokeErr != nil {
		return f.revokeErr
	}
	f.entries[token] = exp
	return nil
}

func (f *fakeLedger) Purge(ctx context.Context, now time.Time) (int64, error) {
	return f.purgeN, f.purgeErr
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	l *fakeLedger
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository { return m.u }
func (m *fakeRepoManager) Revocations(db dbx.DBTX) revocations.Repository { return m.l }
func (m *fakeRepoManager) DriverName() string { return "fake" }

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

// --- helpers ---

type fixture struct {
	svc    *SessionService
	mock   sqlmock.Sqlmock
	users  *fakeUsersRepo
	ledger *fakeLedger
	clock  *clock
	codec  *auth.Codec
	hasher *auth.BcryptHasher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	c := &clock{t: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}
	codec := auth.NewCodec([]byte("k"), time.Hour, "authkeeper", auth.WithClock(c.Now))
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	u, l := newFakeUsersRepo(), newFakeLedger()

	svc := NewSessionService(db, &fakeRepoManager{u: u, l: l}, l, codec, hasher, logging.Nop{}, metrics.New())
	svc.now = c.Now
	return &fixture{svc: svc, mock: mock, users: u, ledger: l, clock: c, codec: codec, hasher: hasher}
}

func (f *fixture) seedUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	u := &models.User{ID: "u-" + email, Email: email, PasswordHash: hash, FirstName: "Ann", Status: models.StatusActive}
	f.users.users[email] = u
	return u
}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	err := f.svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "p1", FirstName: "Ann", LastName: "Lee"})
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	u := f.users.users["a@x.com"]
	require.NotNil(t, u)
	assert.Equal(t, models.StatusActive, u.Status)
	assert.Equal(t, "Ann", u.FirstName)
	assert.Equal(t, f.clock.t, u.CreatedAt)
	assert.NotEqual(t, "p1", u.PasswordHash)
	assert.True(t, f.hasher.Verify(u.PasswordHash, "p1"))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "a@x.com", "p1")
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	err := f.svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "p2"})
	assert.ErrorIs(t, err, common.ErrDuplicateEmail)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRegister_UniqueViolationFromStore(t *testing.T) {
	f := newFixture(t)
	f.users.createErr = common.ErrDuplicateEmail
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	err := f.svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "p1"})
	assert.ErrorIs(t, err, common.ErrDuplicateEmail)
}

func TestRegister_StoreError(t *testing.T) {
	f := newFixture(t)
	f.users.existsErr = errors.Join(common.ErrStoreUnavailable, errors.New("db down"))
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	err := f.svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "p1"})
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	assert.Empty(t, f.users.users)
}

func TestRegister_BeginError(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	err := f.svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "p1"})
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}

func TestRegister_InvalidInput(t *testing.T) {
	f := newFixture(t)

	for _, in := range []RegisterInput{{Email: "", Password: "p"}, {Email: "  ", Password: "p"}, {Email: "a@x.com"}} {
		assert.ErrorIs(t, f.svc.Register(context.Background(), in), common.ErrInvalidInput)
	}
	require.NoError(t, f.mock.ExpectationsWereMet())
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "a@x.com", "p1")

	res, err := f.svc.Login(context.Background(), "a@x.com", "p1")
	require.NoError(t, err)

	assert.True(t, f.codec.Validate(res.Token))
	sub, err := f.codec.SubjectOf(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", sub)
	assert.Equal(t, f.clock.t.Add(time.Hour), res.ExpiresAt)
	assert.Equal(t, u.ToProfile(), res.User)
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "a@x.com", "p1")

	res, err := f.svc.Login(context.Background(), "a@x.com", "wrong")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	assert.Nil(t, res)

	res, err = f.svc.Login(context.Background(), "ghost@x.com", "p1")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Nil(t, res)
	assert.NotEmpty(t, f.svc.dummyHash, "unknown email still pays for a hash comparison")
}

func TestLogin_StoreError(t *testing.T) {
	f := newFixture(t)
	f.users.findErr = errors.Join(common.ErrStoreUnavailable, errors.New("db down"))

	_, err := f.svc.Login(context.Background(), "a@x.com", "p1")
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, common.ErrNotFound)
}

// --- GetProfile ---

func TestGetProfile(t *testing.T) {
	f := newFixture(t)
	a := f.seedUser(t, "a@x.com", "p1")
	f.seedUser(t, "b@x.com", "p2")

	p, err := f.svc.GetProfile(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, a.ToProfile(), p)

	_, err = f.svc.GetProfile(context.Background(), "ghost@x.com")
	assert.ErrorIs(t, err, common.ErrNotFound)

	f.users.findErr = errors.New("boom")
	_, err = f.svc.GetProfile(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, common.ErrInternal)
}

// --- Logout ---

func TestLogout_RevokesThenIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "a@x.com", "p1")
	res, err := f.svc.Login(context.Background(), "a@x.com", "p1")
	require.NoError(t, err)

	out, err := f.svc.Logout(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, LogoutRevoked, out)
	assert.True(t, res.ExpiresAt.Equal(f.ledger.entries[res.Token]))

	out, err = f.svc.Logout(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, LogoutAlreadyInvalidated, out)
}

func TestLogout_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Logout(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrMissingToken)
	_, err = f.svc.Logout(context.Background(), "   ")
	assert.ErrorIs(t, err, common.ErrMissingToken)

	_, err = f.svc.Logout(context.Background(), "not.a.jwt")
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	tok, _, err := f.codec.Issue("a@x.com")
	require.NoError(t, err)
	f.clock.t = f.clock.t.Add(2 * time.Hour)
	_, err = f.svc.Logout(context.Background(), tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	assert.Empty(t, f.ledger.entries)
}

func TestLogout_LedgerFailureIsNotSuccess(t *testing.T) {
	f := newFixture(t)
	tok, _, err := f.codec.Issue("a@x.com")
	require.NoError(t, err)

	f.ledger.revokeErr = errors.Join(common.ErrStoreUnavailable, errors.New("write failed"))
	out, err := f.svc.Logout(context.Background(), tok)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	assert.Zero(t, out)

	f.ledger.revokeErr = nil
	f.ledger.isErr = errors.Join(common.ErrStoreUnavailable, errors.New("read failed"))
	_, err = f.svc.Logout(context.Background(), tok)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}

// --- Authenticate ---

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "a@x.com", "p1")
	tok, exp, err := f.codec.Issue("a@x.com")
	require.NoError(t, err)

	id, err := f.svc.Authenticate(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)
	assert.Equal(t, "a@x.com", id.Email)
	assert.Equal(t, tok, id.Token)
	assert.True(t, id.ExpiresAt.Equal(exp))
}

func TestAuthenticate_Rejections(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "a@x.com", "p1")
	tok, _, err := f.codec.Issue("a@x.com")
	require.NoError(t, err)
	ghostTok, _, err := f.codec.Issue("ghost@x.com")
	require.NoError(t, err)

	_, err = f.svc.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = f.svc.Authenticate(context.Background(), ghostTok)
	assert.ErrorIs(t, err, common.ErrNotFound)

	f.ledger.entries[tok] = time.Now()
	_, err = f.svc.Authenticate(context.Background(), tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestAuthenticate_RevokedCheckedBeforeSignature(t *testing.T) {
	f := newFixture(t)
	f.ledger.entries["garbage"] = time.Now()

	_, err := f.svc.Authenticate(context.Background(), "garbage")
	require.ErrorIs(t, err, common.ErrInvalidToken)
	assert.Contains(t, err.Error(), "revoked")
}

func TestAuthenticate_StoreFailures(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "a@x.com", "p1")
	tok, _, err := f.codec.Issue("a@x.com")
	require.NoError(t, err)

	f.ledger.isErr = errors.Join(common.ErrStoreUnavailable, errors.New("ledger down"))
	_, err = f.svc.Authenticate(context.Background(), tok)
	assert.ErrorIs(t, err, ErrLedgerUnavailable)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)

	f.ledger.isErr = nil
	f.users.findErr = errors.Join(common.ErrStoreUnavailable, errors.New("users down"))
	_, err = f.svc.Authenticate(context.Background(), tok)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrLedgerUnavailable)
}

func TestAuthenticate_ExpiresAfterTTL(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "a@x.com", "p1")
	res, err := f.svc.Login(context.Background(), "a@x.com", "p1")
	require.NoError(t, err)

	_, err = f.svc.Authenticate(context.Background(), res.Token)
	require.NoError(t, err)

	f.clock.t = f.clock.t.Add(time.Hour)
	_, err = f.svc.Authenticate(context.Background(), res.Token)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestReady(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectPing()
	assert.NoError(t, f.svc.Ready(context.Background()))

	f.mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.ErrorIs(t, f.svc.Ready(context.Background()), common.ErrStoreUnavailable)
}
