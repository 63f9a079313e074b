package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInput() SubmissionInput {
	return SubmissionInput{
		FullName:    "Jane Doe",
		Email:       "jane@example.com",
		PhoneNumber: "555-123-4567",
		Subject:     "Hello",
		Message:     "Just saying hello.",
	}
}

func TestNewContactSubmission(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 123456789, time.FixedZone("EST", -5*3600))
	s := NewContactSubmission("abc", sampleInput(), at)

	assert.Equal(t, "abc", s.ID)
	assert.Equal(t, "2024-03-09T19:05:07.123Z", s.SubmittedAt)
	assert.Equal(t, sampleInput(), s.Input())
	assert.True(t, s.SubmittedTime().Equal(at.Truncate(time.Millisecond)))
}

func TestContactSubmission_JSONShape(t *testing.T) {
	s := NewContactSubmission("1", sampleInput(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	data, err := json.Marshal(s)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"id":"1",
		"fullName":"Jane Doe",
		"email":"jane@example.com",
		"phoneNumber":"555-123-4567",
		"subject":"Hello",
		"message":"Just saying hello.",
		"submittedAt":"2024-01-01T00:00:00.000Z"
	}`, string(data))
}

func TestSubmittedTime_Invalid(t *testing.T) {
	s := ContactSubmission{SubmittedAt: "yesterday"}
	assert.True(t, s.SubmittedTime().IsZero())
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	subs := []ContactSubmission{
		NewContactSubmission("a", sampleInput(), base),
		NewContactSubmission("b", sampleInput(), base.Add(2*time.Minute)),
		NewContactSubmission("c", sampleInput(), base.Add(time.Minute)),
		NewContactSubmission("d", sampleInput(), base.Add(2*time.Minute)),
	}

	sorted := SortNewestFirst(subs)

	ids := make([]string, len(sorted))
	for i, s := range sorted {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"b", "d", "c", "a"}, ids)
	assert.Equal(t, "a", subs[0].ID, "input must not be reordered")
}

func TestLedgerState_Clone(t *testing.T) {
	orig := LedgerState{Submissions: []ContactSubmission{{ID: "1"}}, HasSubmitted: true}
	clone := orig.Clone()

	clone.Submissions[0].ID = "changed"

	assert.Equal(t, "1", orig.Submissions[0].ID)
	assert.True(t, clone.HasSubmitted)
}
