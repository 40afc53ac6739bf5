// Package services contains application services for the farmledger client:
// session management, the sync engine, the record facade used by the UI
// layer, and analytics over local data.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/farmledger/internal/client/remote"
	"github.com/dmitrijs2005/farmledger/internal/client/store"
	"github.com/dmitrijs2005/farmledger/internal/common"
	"github.com/dmitrijs2005/farmledger/internal/cryptox"
	"github.com/dmitrijs2005/farmledger/internal/logging"
)

// Metadata keys for the offline login cache.
const (
	metaUsername = "username"
	metaSalt     = "salt"
	metaVerifier = "verifier"
)

// ErrLocalDataNotAvailable is returned by OfflineLogin when no cached
// credentials exist on this device.
var ErrLocalDataNotAvailable = errors.New("local auth data not available")

// SessionService owns the user session: register, online/offline login,
// logout, and login/logout notifications consumed by the sync engine.
type SessionService struct {
	remote remote.Client
	store  *store.Store
	log    logging.Logger

	mu        sync.RWMutex
	username  string
	active    bool
	callbacks []func(active bool)
}

func NewSessionService(remote remote.Client, store *store.Store, log logging.Logger) *SessionService {
	return &SessionService{remote: remote, store: store, log: log}
}

// Authenticated reports whether a user session is active.
func (s *SessionService) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Username returns the current user's name, or "" without a session.
func (s *SessionService) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// OnChange registers a callback fired after every login (true) and
// logout (false).
func (s *SessionService) OnChange(cb func(active bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

func (s *SessionService) setSession(username string, active bool) {
	s.mu.Lock()
	s.username = username
	s.active = active
	callbacks := make([]func(bool), len(s.callbacks))
	copy(callbacks, s.callbacks)
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb(active)
	}
}

// Register creates a new account: the client generates the salt, derives the
// key locally and sends only the verifier to the server.
func (s *SessionService) Register(ctx context.Context, username string, password []byte) error {
	salt, err := cryptox.NewSalt()
	if err != nil {
		return fmt.Errorf("salt generation error: %w", err)
	}

	key := cryptox.DeriveKey(password, salt)
	verifier := cryptox.MakeVerifier(key)

	if err := s.remote.Register(ctx, username, salt, verifier); err != nil {
		return fmt.Errorf("register error: %w", err)
	}
	return nil
}

// OnlineLogin authenticates against the server, refreshes the offline cache,
// and activates the session.
func (s *SessionService) OnlineLogin(ctx context.Context, username string, password []byte) error {
	salt, err := s.remote.GetSalt(ctx, username)
	if err != nil {
		return fmt.Errorf("get salt error: %w", err)
	}

	key := cryptox.DeriveKey(password, salt)
	verifier := cryptox.MakeVerifier(key)

	if err := s.remote.Login(ctx, username, verifier); err != nil {
		return fmt.Errorf("login error: %w", err)
	}

	if err := s.saveOfflineData(ctx, username, salt, verifier); err != nil {
		// The session is valid; a failed cache write only disables the next
		// offline login.
		s.log.Warn(ctx, "failed to save offline auth data", "error", err)
	}

	s.setSession(username, true)
	return nil
}

// OfflineLogin verifies the password against locally cached credentials and
// activates the session without touching the network. Remote calls made under
// an offline session fail with Unauthorized until the next online login.
func (s *SessionService) OfflineLogin(ctx context.Context, username string, password []byte) error {
	meta := s.store.Metadata()

	savedUsername, err := meta.Get(ctx, metaUsername)
	if err != nil {
		return err
	}
	if savedUsername == nil {
		return ErrLocalDataNotAvailable
	}
	if string(savedUsername) != username {
		return common.ErrUnauthorized
	}

	salt, err := meta.Get(ctx, metaSalt)
	if err != nil {
		return err
	}
	savedVerifier, err := meta.Get(ctx, metaVerifier)
	if err != nil {
		return err
	}
	if salt == nil || savedVerifier == nil {
		return ErrLocalDataNotAvailable
	}

	key := cryptox.DeriveKey(password, salt)
	if !cryptox.VerifierMatches(savedVerifier, cryptox.MakeVerifier(key)) {
		return common.ErrUnauthorized
	}

	s.setSession(username, true)
	return nil
}

func (s *SessionService) saveOfflineData(ctx context.Context, username string, salt, verifier []byte) error {
	meta := s.store.Metadata()
	if err := meta.Set(ctx, metaUsername, []byte(username)); err != nil {
		return err
	}
	if err := meta.Set(ctx, metaSalt, salt); err != nil {
		return err
	}
	return meta.Set(ctx, metaVerifier, verifier)
}

// ClearOfflineData wipes the cached credentials.
func (s *SessionService) ClearOfflineData(ctx context.Context) error {
	return s.store.Metadata().Clear(ctx)
}

// Logout ends the session and notifies subscribers so periodic sync stops.
func (s *SessionService) Logout(ctx context.Context) {
	if lo, ok := s.remote.(interface{ Logout() }); ok {
		lo.Logout()
	}
	s.setSession("", false)
}
