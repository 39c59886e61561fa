// Package session exposes the current authenticated identity to every
// screen and keeps it live. Screens receive the manager by handle at
// construction and subscribe for transitions; there is no ambient lookup.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nicolasssh/cosplaiii/internal/client/api"
	"github.com/nicolasssh/cosplaiii/internal/client/models"
	"github.com/nicolasssh/cosplaiii/internal/client/repositories/prefs"
	"github.com/nicolasssh/cosplaiii/internal/logging"
)

// refreshSlack is how close to expiry an ID token may get before Token
// refreshes it instead of handing it out.
const refreshSlack = time.Minute

// IdentityAPI is the slice of the identity client the manager needs.
type IdentityAPI interface {
	SignIn(ctx context.Context, email string, password []byte) (*api.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*api.AuthResult, error)
}

// Manager owns the auth state: present/absent identity, the token pair,
// and the subscriber set. Callbacks fire once at registration with the
// current state and then once per transition; ordering between
// independent subscribers is unspecified.
type Manager struct {
	identity IdentityAPI
	store    prefs.Repository
	log      logging.Logger

	mu      sync.Mutex
	user    *models.UserSession
	token   string
	refresh string
	expiry  time.Time
	subs    map[int]func(*models.UserSession)
	nextSub int

	nowFn func() time.Time
}

func NewManager(identity IdentityAPI, store prefs.Repository, log logging.Logger) *Manager {
	return &Manager{
		identity: identity,
		store:    store,
		log:      log,
		subs:     make(map[int]func(*models.UserSession)),
		nowFn:    time.Now,
	}
}

// Subscribe registers fn, invokes it immediately with the current state
// (possibly signed out), and returns the unsubscribe handle. The handle
// must be called on screen teardown to avoid leaks; calling it twice is
// harmless.
func (m *Manager) Subscribe(fn func(*models.UserSession)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	current := m.snapshot()
	m.mu.Unlock()

	fn(current)

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Current returns the signed-in identity, if any.
func (m *Manager) Current() (models.UserSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return models.UserSession{}, false
	}
	return *m.user, true
}

// SignIn exchanges credentials with the identity backend and adopts the
// resulting session.
func (m *Manager) SignIn(ctx context.Context, email string, password []byte) error {
	auth, err := m.identity.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	return m.Adopt(ctx, auth)
}

// Adopt installs the token pair from a successful credential exchange
// (sign-in, sign-up, or a token-rotating account update), persists it for
// cold-start restore, and notifies subscribers.
func (m *Manager) Adopt(ctx context.Context, auth *api.AuthResult) error {
	expiry, err := api.TokenExpiry(auth.IDToken)
	if err != nil {
		return err
	}

	m.mu.Lock()
	sameUser := m.user != nil && m.user.UID == auth.UID && m.user.Email == auth.Email
	m.user = &models.UserSession{UID: auth.UID, Email: auth.Email}
	m.token = auth.IDToken
	m.refresh = auth.RefreshToken
	m.expiry = expiry
	m.mu.Unlock()

	if err := m.persist(ctx, auth); err != nil {
		m.log.Warn(ctx, "failed to cache session", "error", err)
	}

	// Token rotation for the same user is not an auth-state transition.
	if !sameUser {
		m.notify()
	}
	return nil
}

// SignOut clears the in-memory and cached session and notifies
// subscribers with the signed-out state.
func (m *Manager) SignOut(ctx context.Context) {
	m.mu.Lock()
	m.user = nil
	m.token = ""
	m.refresh = ""
	m.expiry = time.Time{}
	m.mu.Unlock()

	for _, key := range []string{
		prefs.KeySessionUID, prefs.KeySessionEmail,
		prefs.KeySessionToken, prefs.KeySessionRefresh,
	} {
		if err := m.store.Delete(ctx, key); err != nil {
			m.log.Warn(ctx, "failed to clear cached session", "key", key, "error", err)
		}
	}

	m.notify()
}

// Restore loads a cached session at cold start. A missing cache is not an
// error; an expired cached token is refreshed lazily by Token.
func (m *Manager) Restore(ctx context.Context) error {
	uid, err := m.store.Get(ctx, prefs.KeySessionUID)
	if err != nil {
		if errors.Is(err, prefs.ErrNoValue) {
			return nil
		}
		return err
	}
	email, _ := m.store.Get(ctx, prefs.KeySessionEmail)
	token, _ := m.store.Get(ctx, prefs.KeySessionToken)
	refresh, _ := m.store.Get(ctx, prefs.KeySessionRefresh)

	expiry, err := api.TokenExpiry(token)
	if err != nil {
		// Unreadable cached token: treat the cache as absent.
		m.log.Warn(ctx, "discarding unreadable cached token", "error", err)
		return nil
	}

	m.mu.Lock()
	m.user = &models.UserSession{UID: uid, Email: email}
	m.token = token
	m.refresh = refresh
	m.expiry = expiry
	m.mu.Unlock()

	m.notify()
	return nil
}

// Token returns a valid ID token for authenticated backend calls,
// refreshing it first when it is about to expire. Signed-out callers get
// an empty token, which backends treat as anonymous.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	user, token, refresh, expiry := m.user, m.token, m.refresh, m.expiry
	m.mu.Unlock()

	if user == nil || token == "" {
		return "", nil
	}
	if m.nowFn().Add(refreshSlack).Before(expiry) {
		return token, nil
	}
	if refresh == "" {
		return token, nil
	}

	auth, err := m.identity.Refresh(ctx, refresh)
	if err != nil {
		return "", err
	}
	auth.Email = user.Email
	if auth.UID == "" {
		auth.UID = user.UID
	}
	if err := m.Adopt(ctx, auth); err != nil {
		return "", err
	}

	m.mu.Lock()
	token = m.token
	m.mu.Unlock()
	return token, nil
}

func (m *Manager) persist(ctx context.Context, auth *api.AuthResult) error {
	pairs := map[string]string{
		prefs.KeySessionUID:     auth.UID,
		prefs.KeySessionEmail:   auth.Email,
		prefs.KeySessionToken:   auth.IDToken,
		prefs.KeySessionRefresh: auth.RefreshToken,
	}
	for key, value := range pairs {
		if err := m.store.Set(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) snapshot() *models.UserSession {
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

func (m *Manager) notify() {
	m.mu.Lock()
	current := m.snapshot()
	fns := make([]func(*models.UserSession), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(current)
	}
}
