package gpio

import (
	"fmt"
	"sync"

	"github.com/sweeney/thermo-relay/internal/logic"
)

// Relay polarity for an active-low relay board:
//
//	logical  level  coil          state
//	true     LOW    energized     ON
//	false    HIGH   de-energized  OFF
//
// The board conducts when its input is pulled LOW, so a logical "on" request
// must drive the line LOW. Do not flip this table without rewiring the board.
func levelFor(on bool) (int, logic.RelayState) {
	if on {
		return Low, logic.RelayOn
	}
	return High, logic.RelayOff
}

// Relay owns the relay output line. All commands are serialized.
type Relay struct {
	mu    sync.Mutex
	line  Line
	state logic.RelayState
	level int
}

// NewRelay takes ownership of line and drives it to the de-energized level
// before returning.
func NewRelay(line Line) (*Relay, error) {
	level, state := levelFor(false)
	if err := line.SetValue(level); err != nil {
		return nil, fmt.Errorf("relay: force off at startup: %w", err)
	}
	return &Relay{line: line, state: state, level: level}, nil
}

// Set drives the relay to the desired logical state.
// Driver errors are reported in the result and leave the tracked state unchanged.
func (r *Relay) Set(on bool) logic.RelayResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	level, state := levelFor(on)
	if err := r.line.SetValue(level); err != nil {
		return logic.RelayResult{Succeeded: false, State: r.state, Error: err.Error()}
	}
	r.level = level
	r.state = state
	return logic.RelayResult{Succeeded: true, State: state}
}

// State returns the last successfully applied state.
func (r *Relay) State() logic.RelayState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Level returns the last electrical level driven onto the line.
func (r *Relay) Level() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.level
}

// Close de-energizes the relay and releases the line.
func (r *Relay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	level, state := levelFor(false)
	var offErr error
	if err := r.line.SetValue(level); err != nil {
		offErr = fmt.Errorf("relay: force off at shutdown: %w", err)
	} else {
		r.level = level
		r.state = state
	}
	if err := r.line.Close(); err != nil {
		return err
	}
	return offErr
}
