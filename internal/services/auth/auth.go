// Package auth provides the credential roster and signed form tokens
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/findosh/contactdesk/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrDuplicateAccount   = errors.New("duplicate account email")
)

// Account is a roster entry. The password is only kept as a bcrypt hash.
type Account struct {
	User         models.User
	PasswordHash []byte
}

// Credential is a plain-text roster entry used to build a Roster
type Credential struct {
	ID       string
	Email    string
	Password string
	Name     string
}

// DefaultCredentials is the fixed roster of the application
var DefaultCredentials = []Credential{
	{ID: "1", Email: "test@example.com", Password: "password123", Name: "Test User"},
	{ID: "2", Email: "admin@example.com", Password: "admin123", Name: "Admin User"},
}

// Roster checks email/password pairs against a fixed in-memory list
type Roster struct {
	accounts map[string]Account
	// compared against for unknown emails, hashed at the roster's cost
	dummyHash []byte
}

// NewRoster hashes the given credentials
func NewRoster(creds []Credential, cost int) (*Roster, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte(strings.Repeat("x", 16)), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	r := &Roster{accounts: make(map[string]Account, len(creds)), dummyHash: dummy}

	for _, c := range creds {
		if _, ok := r.accounts[c.Email]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAccount, c.Email)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), cost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}

		r.accounts[c.Email] = Account{
			User:         models.User{ID: c.ID, Email: c.Email, Name: c.Name},
			PasswordHash: hash,
		}
	}

	return r, nil
}

// DefaultRoster builds the fixed application roster
func DefaultRoster() (*Roster, error) {
	return NewRoster(DefaultCredentials, bcrypt.DefaultCost)
}

// Authenticate returns the user whose email and password match exactly
func (r *Roster) Authenticate(email, password string) (models.User, error) {
	account, ok := r.accounts[email]
	if !ok {
		// Keep timing similar for unknown emails
		bcrypt.CompareHashAndPassword(r.dummyHash, []byte(password))
		return models.User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	return account.User, nil
}

// Size returns the number of accounts
func (r *Roster) Size() int {
	return len(r.accounts)
}
