// Package ledger stores contact form submissions in the order they were made
package ledger

import (
	"context"
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/findosh/contactdesk/internal/logging"
	"github.com/findosh/contactdesk/internal/models"
	"github.com/findosh/contactdesk/internal/storage"
	"github.com/oklog/ulid/v2"
)

// Ledger is an append-only list of submissions persisted after every append.
// Stored entries are never modified, removed or reordered.
type Ledger struct {
	mu      sync.RWMutex
	state   models.LedgerState
	entropy io.Reader
	now     func() time.Time

	blob storage.Blob
	log  logging.Logger
}

// Option configures a Ledger
type Option func(*Ledger)

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithEntropy overrides the randomness used for submission ids
func WithEntropy(r io.Reader) Option {
	return func(l *Ledger) { l.entropy = ulid.Monotonic(r, 0) }
}

// New creates an empty ledger
func New(blob storage.Blob, log logging.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		state:   models.LedgerState{Submissions: []models.ContactSubmission{}},
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
		blob:    blob,
		log:     log.With("store", blob.Key()),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Restore loads the persisted ledger. A missing or unreadable blob leaves
// the ledger empty.
func (l *Ledger) Restore(ctx context.Context) {
	var state models.LedgerState
	found, err := storage.LoadState(ctx, l.blob, &state)
	if err != nil {
		l.log.Warn(ctx, "persistence warning", "error", err)
		return
	}
	if !found {
		return
	}

	if state.Submissions == nil {
		state.Submissions = []models.ContactSubmission{}
	}
	if len(state.Submissions) > 0 {
		state.HasSubmitted = true
	}

	l.mu.Lock()
	l.state = state
	l.mu.Unlock()

	l.log.Debug(ctx, "ledger restored", "count", len(state.Submissions))
}

// AddSubmission appends a new record built from input, assigning its id
// and timestamp. Input is not re-validated and never deduplicated.
func (l *Ledger) AddSubmission(ctx context.Context, input models.SubmissionInput) models.ContactSubmission {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	id := ulid.MustNew(ulid.Timestamp(now), l.entropy)
	sub := models.NewContactSubmission(id.String(), input, now)

	l.state.Submissions = append(l.state.Submissions, sub)
	l.state.HasSubmitted = true

	if err := storage.SaveState(ctx, l.blob, l.state); err != nil {
		l.log.Warn(ctx, "persistence warning", "error", err)
	}

	l.log.Info(ctx, "submission stored", "id", sub.ID, "count", len(l.state.Submissions))
	return sub
}

// ListSubmissions returns all records in insertion order
func (l *Ledger) ListSubmissions() []models.ContactSubmission {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Clone().Submissions
}

// ListNewestFirst returns all records ordered by submission time, newest first
func (l *Ledger) ListNewestFirst() []models.ContactSubmission {
	return models.SortNewestFirst(l.ListSubmissions())
}

// Count returns the number of stored records
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.state.Submissions)
}

// HasSubmitted reports whether at least one submission was ever appended
func (l *Ledger) HasSubmitted() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.HasSubmitted
}

// State returns a copy of the ledger state
func (l *Ledger) State() models.LedgerState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Clone()
}
