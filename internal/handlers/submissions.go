package handlers

import "net/http"

// Submissions lists the stored submissions, newest first
func (h *Handler) Submissions(w http.ResponseWriter, r *http.Request) {
	data := h.page(r, "Submissions")
	data["Submissions"] = h.ledger.ListNewestFirst()
	h.render(w, r, http.StatusOK, "submissions.html", data)
}
