// Package session holds the current visitor's authentication state
package session

import (
	"context"
	"sync"

	"github.com/findosh/contactdesk/internal/logging"
	"github.com/findosh/contactdesk/internal/models"
	"github.com/findosh/contactdesk/internal/storage"
)

// Store is the persisted session of the application.
// Every mutation is saved through the blob; save failures are logged and
// the in-memory state stays authoritative.
type Store struct {
	mu       sync.RWMutex
	state    models.SessionState
	hydrated bool

	blob storage.Blob
	log  logging.Logger
}

// NewStore creates a logged-out, not yet hydrated store
func NewStore(blob storage.Blob, log logging.Logger) *Store {
	return &Store{
		state: models.LoggedOut(),
		blob:  blob,
		log:   log.With("store", blob.Key()),
	}
}

// Restore loads the persisted session once. A missing or unreadable blob
// leaves the store logged out. The store is hydrated afterwards either way.
// A mutation that happened first wins over the persisted state.
func (s *Store) Restore(ctx context.Context) {
	var state models.SessionState
	found, err := storage.LoadState(ctx, s.blob, &state)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hydrated {
		return
	}
	if err != nil {
		s.log.Warn(ctx, "persistence warning", "error", err)
	} else if found {
		s.state = state.Normalize()
	}
	s.hydrated = true

	s.log.Debug(ctx, "session restored", "authenticated", s.state.IsAuthenticated)
}

// Hydrated reports whether the persisted session has been restored
func (s *Store) Hydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hydrated
}

// Login authenticates the session as user, replacing any previous user
func (s *Store) Login(ctx context.Context, user models.User) {
	s.set(ctx, models.AuthenticatedAs(user))
	s.log.Info(ctx, "logged in", "user_id", user.ID)
}

// Logout clears the session
func (s *Store) Logout(ctx context.Context) {
	s.set(ctx, models.LoggedOut())
	s.log.Info(ctx, "logged out")
}

// CurrentUser returns a copy of the logged-in user, or nil
func (s *Store) CurrentUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state.User == nil {
		return nil
	}
	u := *s.state.User
	return &u
}

// State returns a copy of the session state
func (s *Store) State() models.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Normalize()
}

// IsAuthenticated reports whether a user is logged in
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsAuthenticated
}

func (s *Store) set(ctx context.Context, state models.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
	// A mutation settles the state even if Restore never ran
	s.hydrated = true

	if err := storage.SaveState(ctx, s.blob, state); err != nil {
		s.log.Warn(ctx, "persistence warning", "error", err)
	}
}
