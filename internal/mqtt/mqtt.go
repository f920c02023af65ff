// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/thermo-relay/internal/logic"
)

// TopicTemperature is the MQTT topic for verified readings.
const TopicTemperature = "home/thermo/temperature"

// TopicRelay is the MQTT topic for relay commands.
const TopicRelay = "home/thermo/relay"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/thermo/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishReading sends a stored reading to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishReading(event ReadingEvent) error

	// PublishRelay sends the outcome of a relay command.
	PublishRelay(event RelayEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// ReadingEvent is a verified, stored reading.
type ReadingEvent struct {
	Timestamp time.Time
	ID        string
	Reading   logic.Reading
}

// RelayEvent is the result of one relay command.
type RelayEvent struct {
	Timestamp time.Time
	Requested bool
	Result    logic.RelayResult
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// TemperaturePayload represents the MQTT message payload for a reading.
type TemperaturePayload struct {
	Temperature TemperatureInner `json:"temperature"`
}

// TemperatureInner contains the reading details.
type TemperatureInner struct {
	Timestamp  string  `json:"timestamp"`
	ID         string  `json:"id,omitempty"`
	Celsius    float64 `json:"celsius"`
	Fahrenheit float64 `json:"fahrenheit"`
}

// FormatReadingPayload creates the JSON payload for a reading.
func FormatReadingPayload(event ReadingEvent) ([]byte, error) {
	return json.Marshal(TemperaturePayload{
		Temperature: TemperatureInner{
			Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
			ID:         event.ID,
			Celsius:    event.Reading.Celsius,
			Fahrenheit: event.Reading.Fahrenheit,
		},
	})
}

// RelayPayload represents the MQTT message payload for a relay command.
type RelayPayload struct {
	Relay RelayInner `json:"relay"`
}

// RelayInner contains the relay command details.
type RelayInner struct {
	Timestamp string `json:"timestamp"`
	Requested bool   `json:"requested"`
	Status    string `json:"status"`
	State     string `json:"state"`
	Message   string `json:"message,omitempty"`
}

// FormatRelayPayload creates the JSON payload for a relay command.
func FormatRelayPayload(event RelayEvent) ([]byte, error) {
	status := "success"
	if !event.Result.Succeeded {
		status = "error"
	}
	return json.Marshal(RelayPayload{
		Relay: RelayInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Requested: event.Requested,
			Status:    status,
			State:     string(event.Result.State),
			Message:   event.Result.Error,
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
