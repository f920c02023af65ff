package gpio

import "sync"

// FakeLine is a test double that records every level driven onto it.
type FakeLine struct {
	mu sync.Mutex

	// Values contains every level passed to SetValue, in order.
	Values []int

	// SetError, if set, will be returned by SetValue (and the level not recorded).
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeLine creates a FakeLine with no recorded levels.
func NewFakeLine() *FakeLine {
	return &FakeLine{}
}

// SetValue records value.
func (f *FakeLine) SetValue(value int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.Values = append(f.Values, value)
	return nil
}

// Close marks the line as closed.
func (f *FakeLine) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Level returns the last recorded level, or -1 if nothing was driven.
func (f *FakeLine) Level() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Values) == 0 {
		return -1
	}
	return f.Values[len(f.Values)-1]
}

// SetFailure sets or clears the error returned by SetValue.
func (f *FakeLine) SetFailure(err error) {
	f.mu.Lock()
	f.SetError = err
	f.mu.Unlock()
}

// Reset clears recorded levels and the closed flag.
func (f *FakeLine) Reset() {
	f.mu.Lock()
	f.Values = nil
	f.Closed = false
	f.SetError = nil
	f.mu.Unlock()
}

// Levels returns a copy of every recorded level.
func (f *FakeLine) Levels() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.Values...)
}
