package models

import (
	"sort"
	"time"
)

// TimestampLayout is ISO-8601 with millisecond precision, always UTC ("Z")
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// SubmissionInput holds the caller-supplied contact form fields
type SubmissionInput struct {
	FullName    string `json:"fullName" validate:"required,min=2"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
	Subject     string `json:"subject" validate:"required"`
	Message     string `json:"message" validate:"required,notblank,min=10"`
}

// ContactSubmission is a stored, immutable contact form submission.
// ID and SubmittedAt are assigned by the ledger.
type ContactSubmission struct {
	ID          string `json:"id"`
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
	SubmittedAt string `json:"submittedAt"`
}

// NewContactSubmission builds a record from input with the given id and time
func NewContactSubmission(id string, input SubmissionInput, at time.Time) ContactSubmission {
	return ContactSubmission{
		ID:          id,
		FullName:    input.FullName,
		Email:       input.Email,
		PhoneNumber: input.PhoneNumber,
		Subject:     input.Subject,
		Message:     input.Message,
		SubmittedAt: FormatTimestamp(at),
	}
}

// Input returns the caller-supplied part of the submission
func (s ContactSubmission) Input() SubmissionInput {
	return SubmissionInput{
		FullName:    s.FullName,
		Email:       s.Email,
		PhoneNumber: s.PhoneNumber,
		Subject:     s.Subject,
		Message:     s.Message,
	}
}

// SubmittedTime parses SubmittedAt. Unparseable values yield the zero time.
func (s ContactSubmission) SubmittedTime() time.Time {
	t, err := ParseTimestamp(s.SubmittedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// LedgerState is the persisted submission ledger
type LedgerState struct {
	Submissions  []ContactSubmission `json:"submissions"`
	HasSubmitted bool                `json:"hasSubmitted"`
}

// Clone returns a copy that shares no slice memory with s
func (s LedgerState) Clone() LedgerState {
	subs := make([]ContactSubmission, len(s.Submissions))
	copy(subs, s.Submissions)
	return LedgerState{Submissions: subs, HasSubmitted: s.HasSubmitted}
}

// SortNewestFirst returns a copy of subs ordered by SubmittedAt descending.
// Ties keep insertion order.
func SortNewestFirst(subs []ContactSubmission) []ContactSubmission {
	sorted := make([]ContactSubmission, len(subs))
	copy(sorted, subs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SubmittedTime().After(sorted[j].SubmittedTime())
	})
	return sorted
}

// FormatTimestamp renders t in TimestampLayout
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts any RFC 3339 timestamp, with or without fractions
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
