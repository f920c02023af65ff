// Package monitor runs background read/store cycles and manages their lifetime.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/thermo-relay/internal/logic"
)

// ReadFunc produces one reading.
type ReadFunc func(ctx context.Context) (logic.Reading, error)

// StoreFunc persists one reading.
type StoreFunc func(ctx context.Context, r logic.Reading) error

// CycleResult describes one completed cycle. It is not retained.
type CycleResult struct {
	Cycle   int
	Outcome logic.Outcome
	Reading logic.Reading // valid unless Outcome is OutcomeReadFailed
	Err     error
	Time    time.Time
}

// Loop repeatedly reads and stores, sleeping Interval between cycles.
// Cycles run strictly one after another; a failed cycle never stops the loop.
type Loop struct {
	Name        string
	Interval    time.Duration
	CallTimeout time.Duration // per read/store call; 0 disables
	Read        ReadFunc
	Store       StoreFunc

	// Observe, if set, is called after every cycle from the loop goroutine.
	Observe func(CycleResult)

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Run blocks until ctx is cancelled and returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	now := l.now
	if now == nil {
		now = time.Now
	}
	sleep := l.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	log.Printf("monitor: starting background %s monitor (interval %v)", l.Name, l.Interval)
	for n := 1; ; n++ {
		res := l.cycle(ctx)
		if ctx.Err() != nil && errors.Is(res.Err, context.Canceled) {
			// Interrupted by shutdown, not a sensor or store failure
			log.Printf("monitor: %s monitor stopped during cycle %d", l.Name, n)
			return ctx.Err()
		}
		res.Cycle = n
		res.Time = now()
		if l.Observe != nil {
			l.Observe(res)
		}

		if err := sleep(ctx, l.Interval); err != nil {
			log.Printf("monitor: %s monitor stopped after %d cycles", l.Name, n)
			return err
		}
	}
}

func (l *Loop) cycle(ctx context.Context) (res CycleResult) {
	defer func() {
		if p := recover(); p != nil {
			if res.Outcome == "" {
				res.Outcome = logic.OutcomeReadFailed
			}
			res.Err = fmt.Errorf("panic: %v", p)
			log.Printf("monitor: error in background %s monitoring: %v", l.Name, res.Err)
		}
	}()

	r, err := l.read(ctx)
	if err != nil {
		log.Printf("monitor: error in background %s monitoring: %v", l.Name, err)
		return CycleResult{Outcome: logic.OutcomeReadFailed, Err: err}
	}

	res = CycleResult{Outcome: logic.OutcomeStoreFailed, Reading: r}
	log.Printf("monitor: storing %s data: %.2f, %.2f", l.Name, r.Celsius, r.Fahrenheit)
	if err := l.store(ctx, r); err != nil {
		log.Printf("monitor: %s data not stored: %v", l.Name, err)
		res.Err = err
		return res
	}

	res.Outcome = logic.OutcomeStored
	return res
}

func (l *Loop) read(ctx context.Context) (logic.Reading, error) {
	if l.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.CallTimeout)
		defer cancel()
	}
	return l.Read(ctx)
}

func (l *Loop) store(ctx context.Context, r logic.Reading) error {
	if l.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.CallTimeout)
		defer cancel()
	}
	return l.Store(ctx, r)
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
