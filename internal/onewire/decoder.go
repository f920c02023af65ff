package onewire

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/thermo-relay/internal/logic"
)

// Decoder defaults.
const (
	DefaultRetryInterval = 200 * time.Millisecond
	DefaultMaxRetries    = 25
)

// ErrTimeout is returned when the sensor never reports a completed conversion.
var ErrTimeout = errors.New("onewire: sensor not ready before deadline")

// ReadFunc returns one raw frame from the device.
type ReadFunc func() (logic.Frame, error)

// Decoder turns raw frames into readings, waiting for the ready marker.
type Decoder struct {
	RetryInterval time.Duration
	MaxRetries    int // 0 means bounded by ctx only

	// sleep is replaceable in tests. It returns ctx.Err() if ctx ends first.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDecoder returns a Decoder with the given retry policy.
func NewDecoder(retryInterval time.Duration, maxRetries int) *Decoder {
	if retryInterval <= 0 {
		retryInterval = DefaultRetryInterval
	}
	return &Decoder{
		RetryInterval: retryInterval,
		MaxRetries:    maxRetries,
		sleep:         sleepCtx,
	}
}

// Decode reads frames until one carries the ready marker and parses it.
// Only logic.ErrNotReady is retried; link errors and logic.ErrInvalid are
// returned immediately.
func (d *Decoder) Decode(ctx context.Context, read ReadFunc) (logic.Reading, error) {
	for retries := 0; ; retries++ {
		frame, err := read()
		if err != nil {
			return logic.Reading{}, err
		}

		r, err := logic.ParseFrame(frame)
		if !errors.Is(err, logic.ErrNotReady) {
			return r, err
		}

		if d.MaxRetries > 0 && retries >= d.MaxRetries {
			return logic.Reading{}, fmt.Errorf("%w (%d retries)", ErrTimeout, retries)
		}
		sleep := d.sleep
		if sleep == nil {
			sleep = sleepCtx
		}
		if err := sleep(ctx, d.RetryInterval); err != nil {
			return logic.Reading{}, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
