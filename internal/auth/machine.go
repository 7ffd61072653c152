// Package auth owns the login, signup and logout transitions and the
// current identity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"fintrack/internal/api"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/session"
)

type State int

const (
	Unauthenticated State = iota
	AuthenticatingLogin
	AuthenticatingSignup
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case AuthenticatingLogin:
		return "authenticating_login"
	case AuthenticatingSignup:
		return "authenticating_signup"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) busy() bool {
	return s == AuthenticatingLogin || s == AuthenticatingSignup
}

// User-facing messages kept in lastError.
const (
	MsgIncorrectCredentials = "Username or password is incorrect"
	MsgLoginFailed          = "An error occurred during login"
	MsgSignupFailed         = "An error occurred during signup"
	MsgMissingCredentials   = "Username and password are required"
)

var (
	ErrBusy                 = errors.New("auth: another transition is in progress")
	ErrMissingCredentials   = errors.New("auth: username and password are required")
	ErrIncorrectCredentials = errors.New("auth: " + strings.ToLower(MsgIncorrectCredentials))
	// ErrSuperseded is returned when a newer transition (typically a logout)
	// started while this one was waiting on the network. Its result is dropped.
	ErrSuperseded = errors.New("auth: transition superseded")
)

// Backend is the subset of the data API used for authentication.
type Backend interface {
	FindUser(ctx context.Context, username string) ([]core.Account, error)
	CreateUser(ctx context.Context, username, password string) (core.ID, error)
}

var _ Backend = (*api.Client)(nil)

// Machine is safe for concurrent use. No lock is held while a request is
// in flight.
type Machine struct {
	mu       sync.Mutex
	state    State
	identity core.Identity
	lastErr  string
	loading  bool
	epoch    uint64

	store   session.Store
	backend Backend
	nav     Navigator
	logger  *log.Logger
}

type Option func(*Machine)

func WithNavigator(n Navigator) Option {
	return func(m *Machine) {
		if n != nil {
			m.nav = n
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l.WithComponent(log.ComponentAuth)
		}
	}
}

// New resolves the initial state from store before returning.
func New(store session.Store, backend Backend, opts ...Option) *Machine {
	m := &Machine{
		store:   store,
		backend: backend,
		nav:     NopNavigator{},
		logger:  log.Discard().WithComponent(log.ComponentAuth),
		loading: true,
	}
	for _, opt := range opts {
		opt(m)
	}

	if id, ok := store.Load(); ok {
		m.identity = id
		m.state = Authenticated
	}
	m.loading = false
	return m
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Identity returns the current identity, if authenticated.
func (m *Machine) Identity() (core.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Authenticated {
		return core.Identity{}, false
	}
	return m.identity, true
}

// OwnerID returns the id that scopes every record request.
func (m *Machine) OwnerID() (core.ID, bool) {
	id, ok := m.Identity()
	return id.ID, ok
}

func (m *Machine) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Machine) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Login looks the user up and compares the password byte for byte.
// Empty credentials fail like a mismatch, without a request.
func (m *Machine) Login(ctx context.Context, username, password string) error {
	m.mu.Lock()
	if m.state.busy() {
		m.mu.Unlock()
		return ErrBusy
	}
	if !hasCredentials(username, password) {
		m.epoch++
		m.state = Unauthenticated
		m.identity = core.Identity{}
		m.lastErr = MsgMissingCredentials
		m.loading = false
		clearErr := m.store.Clear()
		m.mu.Unlock()

		if clearErr != nil {
			m.logger.WarnContext(ctx, "Cannot clear session", log.FieldError, clearErr)
		}
		return ErrMissingCredentials
	}
	epoch := m.begin(AuthenticatingLogin)
	m.mu.Unlock()

	return m.login(ctx, epoch, username, password)
}

// Signup creates the account and then logs in with the same credentials.
// On failure the machine returns to the state it was in before.
func (m *Machine) Signup(ctx context.Context, username, password string) error {
	m.mu.Lock()
	if m.state.busy() {
		m.mu.Unlock()
		return ErrBusy
	}
	if !hasCredentials(username, password) {
		m.lastErr = MsgMissingCredentials
		m.mu.Unlock()
		return ErrMissingCredentials
	}
	prev := m.state
	epoch := m.begin(AuthenticatingSignup)
	m.mu.Unlock()

	_, err := m.backend.CreateUser(ctx, username, password)

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		m.state = prev
		m.lastErr = api.Message(err, MsgSignupFailed)
		m.loading = false
		m.mu.Unlock()

		m.logger.WarnContext(ctx, "Signup failed",
			log.FieldUsername, username,
			log.FieldError, err)
		return fmt.Errorf("signup: %w", err)
	}
	epoch = m.begin(AuthenticatingLogin)
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "Account created", log.FieldUsername, username)
	return m.login(ctx, epoch, username, password)
}

// Logout forgets the identity and never touches the network. Any
// transition still in flight is superseded.
func (m *Machine) Logout() error {
	m.mu.Lock()
	m.epoch++
	wasAuthenticated := m.state == Authenticated
	m.state = Unauthenticated
	m.identity = core.Identity{}
	m.loading = false
	err := m.store.Clear()
	m.mu.Unlock()

	if wasAuthenticated {
		m.logger.Info("Logged out")
	}
	m.nav.Navigate(ViewLogin)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// begin must be called with mu held.
func (m *Machine) begin(s State) uint64 {
	m.epoch++
	m.state = s
	m.lastErr = ""
	m.loading = true
	return m.epoch
}

func (m *Machine) login(ctx context.Context, epoch uint64, username, password string) error {
	accounts, err := m.backend.FindUser(ctx, username)

	var failure error
	var message string
	switch {
	case err != nil:
		failure = fmt.Errorf("login: %w", err)
		message = api.Message(err, MsgLoginFailed)
	case len(accounts) == 0 || accounts[0].Password != password:
		failure = ErrIncorrectCredentials
		message = MsgIncorrectCredentials
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return ErrSuperseded
	}

	var identity core.Identity
	if failure == nil {
		identity = core.NewIdentity(accounts[0])
		if err := m.store.Save(identity); err != nil {
			failure = fmt.Errorf("login: save session: %w", err)
			message = MsgLoginFailed
		}
	}

	m.loading = false
	if failure != nil {
		m.state = Unauthenticated
		m.identity = core.Identity{}
		m.lastErr = message
		clearErr := m.store.Clear()
		m.mu.Unlock()

		m.logger.WarnContext(ctx, "Login failed",
			log.FieldUsername, username,
			log.FieldError, failure)
		if clearErr != nil {
			m.logger.WarnContext(ctx, "Cannot clear session", log.FieldError, clearErr)
		}
		return failure
	}

	m.state = Authenticated
	m.identity = identity
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "Login succeeded",
		log.FieldUsername, identity.Username,
		log.FieldUserID, identity.ID.String())
	m.nav.Navigate(ViewDashboard)
	return nil
}

// Credentials are compared as given, so only empty values are missing.
func hasCredentials(username, password string) bool {
	return username != "" && password != ""
}
