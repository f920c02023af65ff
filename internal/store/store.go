// Package store persists temperature readings and verifies each write.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sweeney/thermo-relay/internal/logic"
)

// Collection is the table/collection holding one document per reading.
const Collection = "temperature_readings"

var (
	// ErrNotFound is returned by Latest when nothing has been stored yet.
	ErrNotFound = errors.New("store: no temperature readings available")

	// ErrStoreFailed wraps any transport or backend error during write or read-back.
	ErrStoreFailed = errors.New("store: write failed")

	// ErrVerificationFailed means the stored record differs from what was written.
	ErrVerificationFailed = errors.New("store: verification failed")
)

// Record is a reading as held by the durable store.
type Record struct {
	ID         string    `json:"id"`
	Celsius    float64   `json:"celsius"`
	Fahrenheit float64   `json:"fahrenheit"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Reading returns the temperature part of the record.
func (r Record) Reading() logic.Reading {
	return logic.Reading{Celsius: r.Celsius, Fahrenheit: r.Fahrenheit}
}

// Store is a durable home for readings.
type Store interface {
	// Insert writes r and returns the record as the store holds it.
	Insert(ctx context.Context, r logic.Reading) (Record, error)

	// Latest returns the most recently stored record, or ErrNotFound.
	Latest(ctx context.Context) (Record, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}
