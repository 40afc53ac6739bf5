package services

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/farmledger/internal/client/store"
	"github.com/dmitrijs2005/farmledger/internal/common"
	"github.com/dmitrijs2005/farmledger/internal/cryptox"
	"github.com/dmitrijs2005/farmledger/internal/logging"

	_ "modernc.org/sqlite"
)

// authRemote overrides the auth-related calls of fakeRemote.
type authRemote struct {
	fakeRemote

	salt     []byte
	saltErr  error
	loginErr error

	registeredUsername string
	registeredSalt     []byte
	registeredVerifier []byte
	loginVerifier      []byte
	loggedOut          bool
}

func (r *authRemote) Register(ctx context.Context, username string, salt, verifier []byte) error {
	r.registeredUsername = username
	r.registeredSalt = salt
	r.registeredVerifier = verifier
	return nil
}

func (r *authRemote) GetSalt(ctx context.Context, username string) ([]byte, error) {
	if r.saltErr != nil {
		return nil, r.saltErr
	}
	return r.salt, nil
}

func (r *authRemote) Login(ctx context.Context, username string, verifier []byte) error {
	if r.loginErr != nil {
		return r.loginErr
	}
	r.loginVerifier = verifier
	return nil
}

func (r *authRemote) Logout() { r.loggedOut = true }

func setupSession(t *testing.T) (*SessionService, *store.Store, *authRemote) {
	t.Helper()

	st, err := store.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	rc := &authRemote{salt: []byte("0123456789abcdef")}
	return NewSessionService(rc, st, logging.NewJSON(io.Discard)), st, rc
}

func TestRegisterDerivesVerifierClientSide(t *testing.T) {
	svc, _, rc := setupSession(t)

	require.NoError(t, svc.Register(context.Background(), "alice", []byte("password")))
	assert.Equal(t, "alice", rc.registeredUsername)
	require.NotEmpty(t, rc.registeredSalt)

	want := cryptox.MakeVerifier(cryptox.DeriveKey([]byte("password"), rc.registeredSalt))
	assert.Equal(t, want, rc.registeredVerifier, "the server receives the verifier, never the password")
}

func TestOnlineLoginActivatesSessionAndCachesCredentials(t *testing.T) {
	svc, st, rc := setupSession(t)
	ctx := context.Background()

	var events []bool
	svc.OnChange(func(active bool) { events = append(events, active) })

	require.NoError(t, svc.OnlineLogin(ctx, "alice", []byte("password")))
	assert.True(t, svc.Authenticated())
	assert.Equal(t, "alice", svc.Username())
	assert.Equal(t, []bool{true}, events)

	want := cryptox.MakeVerifier(cryptox.DeriveKey([]byte("password"), rc.salt))
	assert.Equal(t, want, rc.loginVerifier)

	cached, err := st.Metadata().Get(ctx, metaUsername)
	require.NoError(t, err)
	assert.Equal(t, "alice", string(cached))
}

func TestOnlineLoginFailurePropagates(t *testing.T) {
	svc, _, rc := setupSession(t)
	rc.loginErr = errors.New("invalid credentials")

	err := svc.OnlineLogin(context.Background(), "alice", []byte("wrong"))
	assert.Error(t, err)
	assert.False(t, svc.Authenticated())
}

func TestOfflineLoginAgainstCachedCredentials(t *testing.T) {
	svc, _, _ := setupSession(t)
	ctx := context.Background()

	require.NoError(t, svc.OnlineLogin(ctx, "alice", []byte("password")))
	svc.Logout(ctx)
	require.False(t, svc.Authenticated())

	require.NoError(t, svc.OfflineLogin(ctx, "alice", []byte("password")))
	assert.True(t, svc.Authenticated())
	assert.Equal(t, "alice", svc.Username())
}

func TestOfflineLoginRejectsWrongPassword(t *testing.T) {
	svc, _, _ := setupSession(t)
	ctx := context.Background()

	require.NoError(t, svc.OnlineLogin(ctx, "alice", []byte("password")))
	svc.Logout(ctx)

	err := svc.OfflineLogin(ctx, "alice", []byte("wrong"))
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	assert.False(t, svc.Authenticated())
}

func TestOfflineLoginRejectsUnknownUser(t *testing.T) {
	svc, _, _ := setupSession(t)
	ctx := context.Background()

	require.NoError(t, svc.OnlineLogin(ctx, "alice", []byte("password")))
	svc.Logout(ctx)

	err := svc.OfflineLogin(ctx, "bob", []byte("password"))
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestOfflineLoginWithoutCache(t *testing.T) {
	svc, _, _ := setupSession(t)

	err := svc.OfflineLogin(context.Background(), "alice", []byte("password"))
	assert.ErrorIs(t, err, ErrLocalDataNotAvailable)
}

func TestLogoutNotifiesAndDropsToken(t *testing.T) {
	svc, _, rc := setupSession(t)
	ctx := context.Background()

	var events []bool
	svc.OnChange(func(active bool) { events = append(events, active) })

	require.NoError(t, svc.OnlineLogin(ctx, "alice", []byte("password")))
	svc.Logout(ctx)

	assert.False(t, svc.Authenticated())
	assert.Empty(t, svc.Username())
	assert.True(t, rc.loggedOut)
	assert.Equal(t, []bool{true, false}, events)
}

func TestClearOfflineData(t *testing.T) {
	svc, st, _ := setupSession(t)
	ctx := context.Background()

	require.NoError(t, svc.OnlineLogin(ctx, "alice", []byte("password")))
	require.NoError(t, svc.ClearOfflineData(ctx))

	err := svc.OfflineLogin(ctx, "alice", []byte("password"))
	assert.ErrorIs(t, err, ErrLocalDataNotAvailable)

	cached, err := st.Metadata().Get(ctx, metaUsername)
	require.NoError(t, err)
	assert.Nil(t, cached)
}
