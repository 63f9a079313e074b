package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
)

// CSRFFieldName is the form field carrying the CSRF token
const CSRFFieldName = "csrf_token"

// CSRF protects state-changing page requests. Paths under any of the
// exempt prefixes are not checked. When secure is false the cookie is sent
// over plain HTTP.
func CSRF(key []byte, secure bool, exempt ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		protect := csrf.Protect(key,
			csrf.Secure(secure),
			csrf.Path("/"),
			csrf.HttpOnly(true),
			csrf.SameSite(csrf.SameSiteLaxMode),
			csrf.FieldName(CSRFFieldName),
			csrf.ErrorHandler(http.HandlerFunc(csrfFailure)),
		)(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			for _, prefix := range exempt {
				if strings.HasPrefix(r.URL.Path, prefix) {
					r = csrf.UnsafeSkipCheck(r)
					break
				}
			}
			protect.ServeHTTP(w, r)
		})
	}
}

func csrfFailure(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Forbidden - "+csrf.FailureReason(r).Error(), http.StatusForbidden)
}
