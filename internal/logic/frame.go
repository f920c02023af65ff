package logic

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ReadyMarker terminates the first line of a frame once the sensor has
// finished its conversion cycle.
const ReadyMarker = "YES"

// TempMarker introduces the temperature field on the second line.
const TempMarker = "t="

var (
	// ErrNotReady means the conversion has not completed yet; the caller may retry.
	ErrNotReady = errors.New("sensor not ready")

	// ErrInvalid means the frame is malformed and retrying will not help.
	ErrInvalid = errors.New("invalid temperature data")
)

// ParseFrame decodes a raw w1_slave frame, e.g.
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
//
// The temperature field is in thousandths of a degree Celsius.
func ParseFrame(f Frame) (Reading, error) {
	if len(f) < 2 {
		return Reading{}, fmt.Errorf("frame has %d lines: %w", len(f), ErrInvalid)
	}
	if !strings.HasSuffix(strings.TrimSpace(f[0]), ReadyMarker) {
		return Reading{}, ErrNotReady
	}

	pos := strings.Index(f[1], TempMarker)
	if pos < 0 {
		return Reading{}, fmt.Errorf("no %q field: %w", TempMarker, ErrInvalid)
	}

	raw := strings.TrimSpace(f[1][pos+len(TempMarker):])
	milli, err := strconv.Atoi(raw)
	if err != nil {
		return Reading{}, fmt.Errorf("temperature %q: %w", raw, ErrInvalid)
	}

	return NewReading(float64(milli) / 1000), nil
}
