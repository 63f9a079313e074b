// Package workflow orchestrates form validation, collaborator calls and
// store updates
package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/findosh/contactdesk/internal/logging"
	"github.com/findosh/contactdesk/internal/models"
	"github.com/findosh/contactdesk/internal/services/remote"
	"github.com/findosh/contactdesk/internal/validation"
)

// ErrInFlight is returned when a form instance is already being submitted
var ErrInFlight = errors.New("submission already in progress")

// Submitter sends a contact payload to the contact endpoint
type Submitter interface {
	SubmitContact(ctx context.Context, input models.SubmissionInput) (*remote.Ack, error)
}

// SubmissionLedger records successful submissions
type SubmissionLedger interface {
	AddSubmission(ctx context.Context, input models.SubmissionInput) models.ContactSubmission
	Count() int
}

// Outcome is the result of a contact submission that did not fail
type Outcome struct {
	// Input is the normalized payload, or the raw one when invalid
	Input  models.SubmissionInput
	Errors validation.FieldErrors

	Submission *models.ContactSubmission
	Count      int

	// Detached is set when the caller went away while the endpoint call
	// was outstanding; the submission is stored but nobody is listening.
	Detached bool
}

// Valid reports whether the input passed validation
func (o Outcome) Valid() bool {
	return len(o.Errors) == 0
}

// Contact runs the contact form workflow
type Contact struct {
	submitter Submitter
	ledger    SubmissionLedger
	log       logging.Logger
	timeout   time.Duration

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewContact creates the workflow. timeout bounds the endpoint call.
func NewContact(submitter Submitter, ledger SubmissionLedger, log logging.Logger, timeout time.Duration) *Contact {
	return &Contact{
		submitter: submitter,
		ledger:    ledger,
		log:       log.With("workflow", "contact"),
		timeout:   timeout,
		inFlight:  make(map[string]struct{}),
	}
}

// Submit validates input, sends it to the contact endpoint and records it
// in the ledger on success. formID identifies the rendered form instance;
// while its submission is outstanding further submits return ErrInFlight.
//
// Invalid input yields an Outcome with Errors and a nil error. Endpoint
// failures are returned as errors and leave the ledger untouched.
func (c *Contact) Submit(ctx context.Context, formID string, input models.SubmissionInput) (Outcome, error) {
	res := validation.ValidateContact(input)
	if !res.OK() {
		return Outcome{Input: input, Errors: res.Errors}, nil
	}
	payload := res.Value

	if !c.acquire(formID) {
		return Outcome{Input: payload}, ErrInFlight
	}
	defer c.release(formID)

	// The call has no cancellation path of its own: it runs to completion
	// even if the caller goes away.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	if _, err := c.submitter.SubmitContact(callCtx, payload); err != nil {
		c.log.Warn(ctx, "contact submission failed", "form_id", formID, "error", err)
		return Outcome{Input: payload}, err
	}

	sub := c.ledger.AddSubmission(context.WithoutCancel(ctx), payload)

	return Outcome{
		Input:      payload,
		Submission: &sub,
		Count:      c.ledger.Count(),
		Detached:   ctx.Err() != nil,
	}, nil
}

// InFlight reports whether formID has an outstanding submission
func (c *Contact) InFlight(formID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[formID]
	return ok
}

func (c *Contact) acquire(formID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.inFlight[formID]; ok {
		return false
	}
	c.inFlight[formID] = struct{}{}
	return true
}

func (c *Contact) release(formID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, formID)
}
