// Package onewire reads DS18B20-class thermometers through the kernel w1 sysfs tree.
package onewire

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/sweeney/thermo-relay/internal/logic"
)

// Defaults for a Raspberry Pi with the w1-gpio overlay enabled.
const (
	DefaultDir    = "/sys/bus/w1/devices/"
	DefaultPrefix = "28-" // DS18B20 family code
	slaveFile     = "w1_slave"
)

// ErrNotFound is returned when no device matches the family-code prefix.
var ErrNotFound = errors.New("onewire: no matching device found")

// Link locates and reads the device file of a single probe.
// It holds no state between calls and never retries.
type Link struct {
	Dir    string
	Prefix string
}

// NewLink returns a Link over dir, matching entries that start with prefix.
// Empty arguments select the defaults.
func NewLink(dir, prefix string) *Link {
	if dir == "" {
		dir = DefaultDir
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Link{Dir: dir, Prefix: prefix}
}

// Locate returns the path of the probe's w1_slave file.
func (l *Link) Locate() (string, error) {
	matches, err := filepath.Glob(filepath.Join(l.Dir, l.Prefix+"*"))
	if err != nil {
		return "", fmt.Errorf("onewire: glob %s: %w", l.Dir, err)
	}
	if len(matches) == 0 {
		return "", ErrNotFound
	}
	sort.Strings(matches)
	if len(matches) > 1 {
		log.Printf("onewire: %d devices match %q, using %s", len(matches), l.Prefix, filepath.Base(matches[0]))
	}
	return filepath.Join(matches[0], slaveFile), nil
}

// ReadRaw returns the lines of the device file verbatim.
func (l *Link) ReadRaw(path string) (logic.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("onewire: open %s: %w", path, err)
	}
	defer f.Close()

	var frame logic.Frame
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		frame = append(frame, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("onewire: read %s: %w", path, err)
	}
	return frame, nil
}

// Read locates the device and returns one raw frame.
func (l *Link) Read() (logic.Frame, error) {
	path, err := l.Locate()
	if err != nil {
		return nil, err
	}
	return l.ReadRaw(path)
}
