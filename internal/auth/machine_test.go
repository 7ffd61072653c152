package auth

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/api"
	"fintrack/internal/core"
	"fintrack/internal/session"
)

type fakeBackend struct {
	mu        sync.Mutex
	accounts  map[string]core.Account
	findErr   error
	createErr error
	finds     int
	creates   int
	// gate, when set, blocks FindUser until it is closed.
	gate    chan struct{}
	entered chan struct{}
}

func newFakeBackend(accounts ...core.Account) *fakeBackend {
	b := &fakeBackend{accounts: map[string]core.Account{}}
	for _, a := range accounts {
		b.accounts[a.Username] = a
	}
	return b
}

func (b *fakeBackend) FindUser(ctx context.Context, username string) ([]core.Account, error) {
	b.mu.Lock()
	b.finds++
	gate, entered := b.gate, b.entered
	b.mu.Unlock()

	if gate != nil {
		if entered != nil {
			close(entered)
		}
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.findErr != nil {
		return nil, b.findErr
	}
	if a, ok := b.accounts[username]; ok {
		return []core.Account{a}, nil
	}
	return []core.Account{}, nil
}

func (b *fakeBackend) CreateUser(ctx context.Context, username, password string) (core.ID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.creates++
	if b.createErr != nil {
		return "", b.createErr
	}
	id := core.ID("u" + username)
	b.accounts[username] = core.Account{ID: id, Username: username, Password: password}
	return id, nil
}

func (b *fakeBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.finds + b.creates
}

type recorder struct {
	mu    sync.Mutex
	views []View
}

func (r *recorder) Navigate(v View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *recorder) list() []View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]View(nil), r.views...)
}

var annAccount = core.Account{ID: "1", Username: "ann", Password: "Secret"}

func TestNew_ResolvesFromStore(t *testing.T) {
	m := New(session.NewMemory(), newFakeBackend())
	assert.Equal(t, Unauthenticated, m.State())
	assert.False(t, m.Loading())

	stored := core.NewIdentity(annAccount)
	m = New(session.NewMemory(stored), newFakeBackend())
	assert.Equal(t, Authenticated, m.State())
	got, ok := m.Identity()
	require.True(t, ok)
	assert.Equal(t, stored, got)
}

func TestLogin_Credentials(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantOK   bool
	}{
		{"exact match", "ann", "Secret", true},
		{"case differs", "ann", "secret", false},
		{"trailing space", "ann", "Secret ", false},
		{"prefix", "ann", "Secre", false},
		{"unknown user", "ghost", "pw", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := session.NewMemory()
			nav := &recorder{}
			m := New(store, newFakeBackend(annAccount), WithNavigator(nav))

			err := m.Login(context.Background(), tt.username, tt.password)
			if tt.wantOK {
				require.NoError(t, err)
				assert.Equal(t, Authenticated, m.State())
				assert.Empty(t, m.LastError())
				stored, ok := store.Load()
				require.True(t, ok)
				assert.Equal(t, core.Identity{ID: "1", Username: "ann", Token: core.PlaceholderToken}, stored)
				assert.Equal(t, []View{ViewDashboard}, nav.list())
				return
			}
			assert.ErrorIs(t, err, ErrIncorrectCredentials)
			assert.Equal(t, Unauthenticated, m.State())
			assert.Equal(t, MsgIncorrectCredentials, m.LastError())
			assert.Empty(t, nav.list())
		})
	}
}

func TestLogin_GhostUser(t *testing.T) {
	m := New(session.NewMemory(), newFakeBackend())
	err := m.Login(context.Background(), "ghost", "pw")
	require.Error(t, err)
	assert.Equal(t, "Username or password is incorrect", m.LastError())
	assert.Equal(t, Unauthenticated, m.State())
	assert.False(t, m.Loading())
}

func TestLogin_FailureClearsStoredSession(t *testing.T) {
	store := session.NewMemory(core.NewIdentity(annAccount))
	m := New(store, newFakeBackend(annAccount))
	require.Equal(t, Authenticated, m.State())

	require.Error(t, m.Login(context.Background(), "ann", "wrong"))
	assert.Equal(t, Unauthenticated, m.State())
	_, ok := store.Load()
	assert.False(t, ok)
	_, ok = m.OwnerID()
	assert.False(t, ok)
}

func TestLogin_ServerError(t *testing.T) {
	b := newFakeBackend(annAccount)
	b.findErr = &api.Error{Status: http.StatusInternalServerError, Message: "database unavailable"}
	m := New(session.NewMemory(), b)

	require.Error(t, m.Login(context.Background(), "ann", "Secret"))
	assert.Equal(t, "database unavailable", m.LastError())

	b.findErr = errors.New("connection refused")
	require.Error(t, m.Login(context.Background(), "ann", "Secret"))
	assert.Equal(t, MsgLoginFailed, m.LastError())
	assert.Equal(t, Unauthenticated, m.State())
}

func TestLogin_ClearsLastErrorBeforeRequest(t *testing.T) {
	b := newFakeBackend(annAccount)
	m := New(session.NewMemory(), b)
	require.Error(t, m.Login(context.Background(), "ann", "nope"))
	require.NotEmpty(t, m.LastError())

	b.gate = make(chan struct{})
	b.entered = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- m.Login(context.Background(), "ann", "Secret") }()

	<-b.entered
	assert.Empty(t, m.LastError())
	assert.Equal(t, AuthenticatingLogin, m.State())
	assert.True(t, m.Loading())
	close(b.gate)
	require.NoError(t, <-done)
}

func TestLogin_MissingCredentials(t *testing.T) {
	for _, creds := range [][2]string{{"", "pw"}, {"ann", ""}, {"", ""}} {
		store := session.NewMemory(core.NewIdentity(annAccount))
		b := newFakeBackend(annAccount)
		m := New(store, b)
		require.Equal(t, Authenticated, m.State())

		assert.ErrorIs(t, m.Login(context.Background(), creds[0], creds[1]), ErrMissingCredentials)
		assert.Equal(t, Unauthenticated, m.State())
		assert.Equal(t, MsgMissingCredentials, m.LastError())
		_, ok := store.Load()
		assert.False(t, ok, "stored session cleared")
		assert.Zero(t, b.calls())
	}
}

func TestSignup_MissingCredentialsKeepsState(t *testing.T) {
	b := newFakeBackend()
	m := New(session.NewMemory(), b)

	assert.ErrorIs(t, m.Signup(context.Background(), "bob", ""), ErrMissingCredentials)
	assert.Equal(t, Unauthenticated, m.State())
	assert.Equal(t, MsgMissingCredentials, m.LastError())
	assert.Zero(t, b.calls())
}

func TestLogin_WhitespacePasswordIsCompared(t *testing.T) {
	blank := core.Account{ID: "7", Username: "zed", Password: "   "}
	b := newFakeBackend(blank)
	m := New(session.NewMemory(), b)

	require.NoError(t, m.Login(context.Background(), "zed", "   "))
	assert.Equal(t, Authenticated, m.State())
	assert.Equal(t, 1, b.calls())

	require.NoError(t, m.Logout())
	assert.ErrorIs(t, m.Login(context.Background(), "zed", "  "), ErrIncorrectCredentials)
	assert.Equal(t, MsgIncorrectCredentials, m.LastError())
}

func TestLogin_BusyRejectsSecondTransition(t *testing.T) {
	b := newFakeBackend(annAccount)
	b.gate = make(chan struct{})
	b.entered = make(chan struct{})
	m := New(session.NewMemory(), b)

	done := make(chan error, 1)
	go func() { done <- m.Login(context.Background(), "ann", "Secret") }()
	<-b.entered

	assert.ErrorIs(t, m.Login(context.Background(), "ann", "Secret"), ErrBusy)
	assert.ErrorIs(t, m.Signup(context.Background(), "bob", "pw"), ErrBusy)
	assert.Equal(t, AuthenticatingLogin, m.State())

	close(b.gate)
	require.NoError(t, <-done)
	assert.Equal(t, Authenticated, m.State())
	assert.Zero(t, b.creates)
}

func TestLogout_SupersedesInFlightLogin(t *testing.T) {
	b := newFakeBackend(annAccount)
	b.gate = make(chan struct{})
	b.entered = make(chan struct{})
	store := session.NewMemory()
	nav := &recorder{}
	m := New(store, b, WithNavigator(nav))

	done := make(chan error, 1)
	go func() { done <- m.Login(context.Background(), "ann", "Secret") }()
	<-b.entered

	require.NoError(t, m.Logout())
	close(b.gate)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, Unauthenticated, m.State())
	_, ok := store.Load()
	assert.False(t, ok, "stale login must not persist a session")
	assert.Equal(t, []View{ViewLogin}, nav.list())
}

func TestLogout_Idempotent(t *testing.T) {
	b := newFakeBackend(annAccount)
	store := session.NewMemory()
	nav := &recorder{}
	m := New(store, b, WithNavigator(nav))

	require.NoError(t, m.Logout())
	require.NoError(t, m.Logout())
	assert.Equal(t, Unauthenticated, m.State())
	assert.Zero(t, b.calls())

	require.NoError(t, m.Login(context.Background(), "ann", "Secret"))
	require.NoError(t, m.Logout())
	assert.Equal(t, Unauthenticated, m.State())
	_, ok := store.Load()
	assert.False(t, ok)
	assert.Equal(t, []View{ViewLogin, ViewLogin, ViewDashboard, ViewLogin}, nav.list())
}

func TestSignup_ChainsIntoLogin(t *testing.T) {
	b := newFakeBackend()
	store := session.NewMemory()
	nav := &recorder{}
	m := New(store, b, WithNavigator(nav))

	require.NoError(t, m.Signup(context.Background(), "bob", "pw"))
	assert.Equal(t, Authenticated, m.State())
	id, ok := m.Identity()
	require.True(t, ok)
	assert.Equal(t, "bob", id.Username)
	assert.Equal(t, 1, b.creates)
	assert.Equal(t, 1, b.finds)
	assert.Equal(t, []View{ViewDashboard}, nav.list())

	require.NoError(t, m.Logout())
	require.NoError(t, m.Login(context.Background(), "bob", "pw"))
	assert.Equal(t, Authenticated, m.State())
}

func TestSignup_FailureRestoresPriorState(t *testing.T) {
	b := newFakeBackend(annAccount)
	b.createErr = &api.Error{Status: http.StatusConflict, Message: "username already exists"}
	stored := core.NewIdentity(annAccount)
	m := New(session.NewMemory(stored), b)

	require.Error(t, m.Signup(context.Background(), "ann", "x"))
	assert.Equal(t, Authenticated, m.State())
	assert.Equal(t, "username already exists", m.LastError())
	got, _ := m.Identity()
	assert.Equal(t, stored, got)

	b.createErr = errors.New("timeout")
	m = New(session.NewMemory(), b)
	require.Error(t, m.Signup(context.Background(), "zed", "x"))
	assert.Equal(t, Unauthenticated, m.State())
	assert.Equal(t, MsgSignupFailed, m.LastError())
	assert.Zero(t, b.finds)
}
