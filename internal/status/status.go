// Package status provides a thread-safe status tracker for the thermo-relay daemon.
// It is read by HTTP handlers and by MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/thermo-relay/internal/logic"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs    int64
	RetryMs   int64
	Tolerance float64
	RelayPin  int
	Store     string // "mongodb" or "memory"
	Broker    string // empty = MQTT disabled
	HTTPAddr  string
}

// LastReading is the most recent verified reading.
type LastReading struct {
	Reading logic.Reading
	At      time.Time
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Last          *LastReading
	LastError     string
	Counts        logic.CycleCounts
	Relay         logic.RelayState
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
// The relay starts OFF, matching the actuator's forced startup level.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Relay:     logic.RelayOff,
			Config:    cfg,
		},
	}
}

// RecordCycle folds one polling cycle into the snapshot.
// Called from the polling loop after every cycle.
func (t *Tracker) RecordCycle(outcome logic.Outcome, r logic.Reading, at time.Time, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.Counts.Add(outcome)
	if outcome == logic.OutcomeStored {
		t.snap.Last = &LastReading{Reading: r, At: at}
		t.snap.LastError = ""
		return
	}
	if err != nil {
		t.snap.LastError = err.Error()
	}
}

// SetRelay sets the relay state.
func (t *Tracker) SetRelay(state logic.RelayState) {
	t.mu.Lock()
	t.snap.Relay = state
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.Last != nil {
		last := *s.Last
		s.Last = &last
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
