// Package journal records terminal transaction outcomes for conciliation.
// Persistence is an external collaborator concern: the core never reads
// the journal back on the payment path.
package journal

import (
	"context"
	"sync"
	"time"

	"github.com/austrobank/interswitch/internal/domain"
)

// Entry is one journaled outcome, approved or declined.
type Entry struct {
	TransactionID string
	Kind          string
	AmountMicros  int64
	IssuerCode    string
	ReceiverCode  string
	MaskedPAN     string
	Status        string
	ErrorCode     domain.ErrorCode
	Message       string
	RecordedAt    time.Time
}

// Recorder accepts journal entries. Record is best-effort: the payment
// result is already terminal when it is called.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// MemoryRecorder keeps entries in memory, newest last.
type MemoryRecorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryRecorder returns an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (r *MemoryRecorder) Record(_ context.Context, entry Entry) error {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (r *MemoryRecorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
