package handlers

import "net/http"

// Home renders the landing page
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.NotFound(w, r)
		return
	}
	h.render(w, r, http.StatusOK, "home.html", h.page(r, "Home"))
}
