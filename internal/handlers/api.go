package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/findosh/contactdesk/internal/models"
	"github.com/findosh/contactdesk/internal/services/remote"
)

// maxAPIBody caps the size of JSON request bodies
const maxAPIBody = 64 << 10

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// APILogin is the mock authentication endpoint
func (h *Handler) APILogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAPIBody)).Decode(&req); err != nil {
		h.jsonError(w, "Something went wrong", http.StatusInternalServerError)
		return
	}

	user, err := h.roster.Authenticate(req.Email, req.Password)
	if err != nil {
		h.jsonError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	h.writeJSON(w, http.StatusOK, remote.LoginResponse{Success: true, User: user})
}

// APIContact is the mock contact endpoint. It answers after the configured
// delay and echoes the payload.
func (h *Handler) APIContact(w http.ResponseWriter, r *http.Request) {
	var input models.SubmissionInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAPIBody)).Decode(&input); err != nil {
		h.jsonError(w, "Failed to process your request", http.StatusInternalServerError)
		return
	}

	if h.cfg.SubmitDelay > 0 {
		timer := time.NewTimer(h.cfg.SubmitDelay)
		select {
		case <-timer.C:
		case <-r.Context().Done():
			timer.Stop()
			return
		}
	}

	h.log.Info(r.Context(), "contact form submission", "email", input.Email, "subject", input.Subject)

	h.writeJSON(w, http.StatusOK, remote.Ack{
		Success: true,
		Message: "Your message has been sent successfully!",
		Data:    input,
	})
}
