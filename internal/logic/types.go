// Package logic contains pure types and algorithms for the thermostat relay daemon.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
package logic

import "math"

// Reading is a verified temperature sample. It is a value type and is never
// mutated after creation.
type Reading struct {
	Celsius    float64
	Fahrenheit float64
}

// NewReading builds a Reading from a Celsius value, deriving Fahrenheit.
// Both fields are rounded to 2 decimal places.
func NewReading(celsius float64) Reading {
	return Reading{
		Celsius:    Round2(celsius),
		Fahrenheit: Round2(celsius*9/5 + 32),
	}
}

// Round2 rounds v to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// toleranceSlack absorbs float64 subtraction error so a difference of
// exactly tol (e.g. 25.51-25.5) is accepted.
const toleranceSlack = 1e-9

// WithinTolerance reports whether both fields of got are within tol of want.
// The bound is inclusive.
func WithinTolerance(want, got Reading, tol float64) bool {
	return math.Abs(want.Celsius-got.Celsius) <= tol+toleranceSlack &&
		math.Abs(want.Fahrenheit-got.Fahrenheit) <= tol+toleranceSlack
}

// Frame is the ordered set of text lines read from the one-wire device file
// at one instant. Only lines 0 and 1 are significant.
type Frame []string

// RelayState represents the physical state of the relay.
type RelayState string

const (
	RelayOn  RelayState = "ON"
	RelayOff RelayState = "OFF"
)

// RelayResult is the outcome of a single relay command.
type RelayResult struct {
	Succeeded bool
	State     RelayState
	Error     string // set when Succeeded is false
}

// Outcome classifies one polling cycle for logging and telemetry.
type Outcome string

const (
	OutcomeStored      Outcome = "stored"
	OutcomeReadFailed  Outcome = "read_failed"
	OutcomeStoreFailed Outcome = "store_failed"
)

// CycleCounts tracks the number of each cycle outcome since startup.
type CycleCounts struct {
	Stored      int
	ReadFailed  int
	StoreFailed int
}

// Add increments the counter for o.
func (c *CycleCounts) Add(o Outcome) {
	switch o {
	case OutcomeStored:
		c.Stored++
	case OutcomeReadFailed:
		c.ReadFailed++
	case OutcomeStoreFailed:
		c.StoreFailed++
	}
}
