package store

import (
	"context"
	"fmt"
	"log"

	"github.com/sweeney/thermo-relay/internal/logic"
)

// DefaultTolerance is the maximum absolute difference accepted on read-back.
const DefaultTolerance = 0.01

// Persister writes readings and confirms them by reading the stored record back.
type Persister struct {
	store     Store
	tolerance float64
}

// NewPersister returns a Persister over s. A non-positive tolerance selects
// DefaultTolerance.
func NewPersister(s Store, tolerance float64) *Persister {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Persister{store: s, tolerance: tolerance}
}

// StoreAndVerify writes r and returns the stored record if both fields
// survived within tolerance.
func (p *Persister) StoreAndVerify(ctx context.Context, r logic.Reading) (Record, error) {
	rec, err := p.store.Insert(ctx, r)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}

	if !logic.WithinTolerance(r, rec.Reading(), p.tolerance) {
		log.Printf("store: verification failed, expected (%.2f, %.2f) got (%.2f, %.2f)",
			r.Celsius, r.Fahrenheit, rec.Celsius, rec.Fahrenheit)
		return Record{}, fmt.Errorf("%w: expected (%v, %v), got (%v, %v)",
			ErrVerificationFailed, r.Celsius, r.Fahrenheit, rec.Celsius, rec.Fahrenheit)
	}

	log.Printf("store: stored and verified %s (%.2f°C / %.2f°F)", rec.ID, rec.Celsius, rec.Fahrenheit)
	return rec, nil
}

// Latest returns the most recently stored record.
func (p *Persister) Latest(ctx context.Context) (Record, error) {
	return p.store.Latest(ctx)
}
