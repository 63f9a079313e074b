package handlers

import (
	"errors"
	"net/http"

	"github.com/findosh/contactdesk/internal/services/remote"
	"github.com/findosh/contactdesk/internal/validation"
)

// LoginPage renders the login page
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	data := h.page(r, "Login")
	data["Form"] = validation.LoginForm{}
	h.render(w, r, http.StatusOK, "login.html", data)
}

// Login handles login form submission
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.loginError(w, r, http.StatusBadRequest, validation.LoginForm{}, nil, "Invalid request")
		return
	}

	form := validation.LoginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}

	out, err := h.login.Submit(r.Context(), form)
	if err != nil {
		if errors.Is(err, remote.ErrInvalidCredentials) {
			h.loginError(w, r, http.StatusUnauthorized, out.Form, nil, "Invalid credentials")
			return
		}

		msg := "Something went wrong"
		var te *remote.TransportError
		if errors.As(err, &te) && te.Message != "" {
			msg = te.Message
		}
		h.log.Error(r.Context(), "login failed", "error", err)
		h.loginError(w, r, http.StatusBadGateway, out.Form, nil, msg)
		return
	}

	if !out.Valid() {
		h.loginError(w, r, http.StatusUnprocessableEntity, out.Form, out.Errors, "")
		return
	}

	h.redirect(w, r, "/contact")
}

func (h *Handler) loginError(w http.ResponseWriter, r *http.Request, status int, form validation.LoginForm, errs validation.FieldErrors, notice string) {
	data := h.page(r, "Login")
	data["Form"] = form
	data["Errors"] = errs
	data["Notice"] = notice
	h.render(w, r, status, "login.html", data)
}

// Logout handles user logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.login.Logout(r.Context())
	h.redirect(w, r, "/login")
}
