package handlers

import (
	"io/fs"
	"net/http"

	"github.com/findosh/contactdesk/internal/middleware"
)

// Routes registers every page and endpoint on a new mux
func (h *Handler) Routes(guard *middleware.Guard, static fs.FS) *http.ServeMux {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	// Public routes
	mux.HandleFunc("/", h.Home)
	mux.Handle("/login", guard.RedirectIfAuthenticated("/contact", methods(h.LoginPage, h.Login)))
	mux.HandleFunc("/logout", postOnly(h.Logout))

	// Protected routes (require authentication)
	mux.Handle("/contact", guard.RequireAuth(methods(h.ContactPage, h.SubmitContact)))
	mux.Handle("/submissions", guard.RequireAuth(http.HandlerFunc(h.Submissions)))

	// Collaborator endpoints
	mux.HandleFunc("/apis/login", postOnly(h.APILogin))
	mux.HandleFunc("/apis/contact", postOnly(h.APIContact))

	return mux
}

// methods dispatches GET to get and POST to post
func methods(get, post http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			get(w, r)
		case http.MethodPost:
			post(w, r)
		default:
			w.Header().Set("Allow", "GET, HEAD, POST")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

func postOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}
