package handlers

import (
	"errors"
	"net/http"

	"github.com/findosh/contactdesk/internal/models"
	"github.com/findosh/contactdesk/internal/services/workflow"
	"github.com/findosh/contactdesk/internal/validation"
)

const (
	noticeSendFailed  = "Failed to send message. Please try again."
	noticeInFlight    = "Your message is already being sent."
	noticeFormExpired = "This form has expired, please try again."
)

// contactForm is the state of a rendered contact form
type contactForm struct {
	input    models.SubmissionInput
	token    string
	errors   validation.FieldErrors
	notice   string
	inFlight bool
}

// ContactPage renders an empty contact form for the current user
func (h *Handler) ContactPage(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	h.renderFreshContact(w, r, http.StatusOK, user, "")
}

// SubmitContact handles contact form submission
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	if err := r.ParseForm(); err != nil {
		h.renderFreshContact(w, r, http.StatusBadRequest, user, "Invalid request")
		return
	}

	input := models.SubmissionInput{
		FullName:    r.PostFormValue("fullName"),
		Email:       r.PostFormValue("email"),
		PhoneNumber: r.PostFormValue("phoneNumber"),
		Subject:     r.PostFormValue("subject"),
		Message:     r.PostFormValue("message"),
	}
	token := r.PostFormValue("form_token")

	formID, err := h.forms.Verify(token, user.ID)
	if err != nil {
		h.log.Info(r.Context(), "form token rejected", "error", err)
		form, ferr := h.newContactForm(user)
		if ferr != nil {
			h.fail(w, r, ferr)
			return
		}
		form.input = input
		form.notice = noticeFormExpired
		h.renderContact(w, r, http.StatusBadRequest, form)
		return
	}

	out, err := h.contact.Submit(r.Context(), formID, input)
	if out.Detached {
		// nobody is waiting for this response
		return
	}

	form := contactForm{input: out.Input, token: token}
	switch {
	case errors.Is(err, workflow.ErrInFlight):
		form.input = input
		form.notice = noticeInFlight
		form.inFlight = true
		h.renderContact(w, r, http.StatusConflict, form)
	case err != nil:
		h.log.Error(r.Context(), "contact submission failed", "error", err)
		form.notice = noticeSendFailed
		h.renderContact(w, r, http.StatusBadGateway, form)
	case !out.Valid():
		form.errors = out.Errors
		h.renderContact(w, r, http.StatusUnprocessableEntity, form)
	default:
		data := h.page(r, "Message Sent")
		data["Submission"] = out.Submission
		data["SubmissionCount"] = out.Count
		h.render(w, r, http.StatusOK, "contact_success.html", data)
	}
}

// newContactForm issues a form instance prefilled with the user's email
func (h *Handler) newContactForm(user models.User) (contactForm, error) {
	tok, err := h.forms.Issue(user.ID)
	if err != nil {
		return contactForm{}, err
	}
	return contactForm{
		input: models.SubmissionInput{Email: user.Email},
		token: tok.Token,
	}, nil
}

func (h *Handler) renderFreshContact(w http.ResponseWriter, r *http.Request, status int, user models.User, notice string) {
	form, err := h.newContactForm(user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	form.notice = notice
	h.renderContact(w, r, status, form)
}

func (h *Handler) renderContact(w http.ResponseWriter, r *http.Request, status int, form contactForm) {
	data := h.page(r, "Contact")
	data["Form"] = form.input
	data["FormToken"] = form.token
	data["Errors"] = form.errors
	data["Notice"] = form.notice
	data["InFlight"] = form.inFlight
	h.render(w, r, status, "contact.html", data)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
