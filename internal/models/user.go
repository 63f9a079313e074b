// Package models defines core domain types
package models

// User is the identity returned by the authentication endpoint.
// It never carries a password.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// SessionState is the persisted authentication state.
// IsAuthenticated is true iff User is non-nil.
type SessionState struct {
	User            *User `json:"user"`
	IsAuthenticated bool  `json:"isAuthenticated"`
}

// LoggedOut returns the initial session state
func LoggedOut() SessionState {
	return SessionState{}
}

// AuthenticatedAs returns a session state for the given user.
// The user is copied so the session owns it.
func AuthenticatedAs(user User) SessionState {
	return SessionState{User: &user, IsAuthenticated: true}
}

// Normalize restores the IsAuthenticated/User invariant on state read
// from an untrusted blob.
func (s SessionState) Normalize() SessionState {
	if s.User == nil || !s.IsAuthenticated {
		return LoggedOut()
	}
	return AuthenticatedAs(*s.User)
}
