package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticatedAs_CopiesUser(t *testing.T) {
	u := User{ID: "1", Email: "test@example.com", Name: "Test User"}
	state := AuthenticatedAs(u)

	u.Name = "Changed"

	require.NotNil(t, state.User)
	assert.True(t, state.IsAuthenticated)
	assert.Equal(t, "Test User", state.User.Name)
}

func TestSessionState_Normalize(t *testing.T) {
	u := &User{ID: "1"}

	tests := []struct {
		name     string
		in       SessionState
		wantAuth bool
	}{
		{"logged out", SessionState{}, false},
		{"flag without user", SessionState{IsAuthenticated: true}, false},
		{"user without flag", SessionState{User: u}, false},
		{"authenticated", SessionState{User: u, IsAuthenticated: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			assert.Equal(t, tt.wantAuth, got.IsAuthenticated)
			assert.Equal(t, tt.wantAuth, got.User != nil)
		})
	}
}

func TestSessionState_JSONShape(t *testing.T) {
	data, err := json.Marshal(AuthenticatedAs(User{ID: "1", Email: "a@b.co", Name: "A"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":{"id":"1","email":"a@b.co","name":"A"},"isAuthenticated":true}`, string(data))

	data, err = json.Marshal(LoggedOut())
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":null,"isAuthenticated":false}`, string(data))
}
