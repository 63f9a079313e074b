package workflow

import (
	"context"
	"time"

	"github.com/findosh/contactdesk/internal/logging"
	"github.com/findosh/contactdesk/internal/models"
	"github.com/findosh/contactdesk/internal/validation"
)

// Authenticator checks credentials against the authentication endpoint
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (models.User, error)
}

// SessionStore is the mutable session the login workflow drives
type SessionStore interface {
	Login(ctx context.Context, user models.User)
	Logout(ctx context.Context)
}

// LoginOutcome is the result of a login attempt that did not fail
type LoginOutcome struct {
	Form   validation.LoginForm
	Errors validation.FieldErrors
	User   *models.User
}

// Valid reports whether the form passed validation
func (o LoginOutcome) Valid() bool {
	return len(o.Errors) == 0
}

// Login runs the login form workflow
type Login struct {
	auth    Authenticator
	session SessionStore
	log     logging.Logger
	timeout time.Duration
}

// NewLogin creates the workflow. timeout bounds the endpoint call.
func NewLogin(auth Authenticator, session SessionStore, log logging.Logger, timeout time.Duration) *Login {
	return &Login{
		auth:    auth,
		session: session,
		log:     log.With("workflow", "login"),
		timeout: timeout,
	}
}

// Submit validates the form and authenticates it. On success the session
// is logged in as the returned user. Credential and transport errors are
// returned unchanged and leave the session as it was.
func (l *Login) Submit(ctx context.Context, form validation.LoginForm) (LoginOutcome, error) {
	res := validation.ValidateLogin(form)
	if !res.OK() {
		form.Password = ""
		return LoginOutcome{Form: form, Errors: res.Errors}, nil
	}
	creds := res.Value

	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	user, err := l.auth.Authenticate(callCtx, creds.Email, creds.Password)
	creds.Password = ""
	if err != nil {
		l.log.Info(ctx, "login rejected", "email", creds.Email, "error", err)
		return LoginOutcome{Form: creds}, err
	}

	l.session.Login(ctx, user)
	return LoginOutcome{Form: creds, User: &user}, nil
}

// Logout clears the session
func (l *Login) Logout(ctx context.Context) {
	l.session.Logout(ctx)
}
