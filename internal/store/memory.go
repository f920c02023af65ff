package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/thermo-relay/internal/logic"
)

// MemoryStore keeps records in process memory. It is used when no database
// is configured and as a test double.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
	now     func() time.Time

	// Coerce, if set, transforms each reading before it is stored,
	// simulating a backend that loses precision.
	Coerce func(logic.Reading) logic.Reading

	// InsertError, if set, will be returned by Insert.
	InsertError error

	// LatestError, if set, will be returned by Latest.
	LatestError error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Insert stores r with a fresh id and timestamp.
func (m *MemoryStore) Insert(ctx context.Context, r logic.Reading) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertError != nil {
		return Record{}, m.InsertError
	}
	if m.Coerce != nil {
		r = m.Coerce(r)
	}

	rec := Record{
		ID:         uuid.NewString(),
		Celsius:    r.Celsius,
		Fahrenheit: r.Fahrenheit,
		RecordedAt: m.now().UTC(),
	}
	m.records = append(m.records, rec)
	return rec, nil
}

// Latest returns the last inserted record.
func (m *MemoryStore) Latest(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LatestError != nil {
		return Record{}, m.LatestError
	}
	if len(m.records) == 0 {
		return Record{}, ErrNotFound
	}
	return m.records[len(m.records)-1], nil
}

// Records returns a copy of everything stored so far.
func (m *MemoryStore) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...)
}

// SetInsertError sets or clears the error returned by Insert.
func (m *MemoryStore) SetInsertError(err error) {
	m.mu.Lock()
	m.InsertError = err
	m.mu.Unlock()
}

// Close is a no-op.
func (m *MemoryStore) Close(ctx context.Context) error {
	return nil
}
