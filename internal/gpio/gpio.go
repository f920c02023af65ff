// Package gpio drives the relay output line with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Line is an exclusively-owned GPIO output line.
type Line interface {
	// SetValue drives the line to the raw electrical level (0 = LOW, 1 = HIGH).
	SetValue(value int) error

	// Close releases GPIO resources.
	Close() error
}

// Electrical levels.
const (
	Low  = 0
	High = 1
)

// DefaultPinRelay is the relay control line (BCM numbering, header pin 11).
const DefaultPinRelay = 17

// DefaultChip is the GPIO character device carrying the 40-pin header.
const DefaultChip = "gpiochip0"
