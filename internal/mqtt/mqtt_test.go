package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/thermo-relay/internal/logic"
)

func TestFormatReadingPayloadExactJSON(t *testing.T) {
	event := ReadingEvent{
		Timestamp: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		ID:        "0b5c3c7e-1f1f-4d3a-9c1e-2a8f7b9d6e01",
		Reading:   logic.Reading{Celsius: 25.5, Fahrenheit: 77.9},
	}

	got, err := FormatReadingPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"temperature":{"timestamp":"2026-01-15T10:30:00Z","id":"0b5c3c7e-1f1f-4d3a-9c1e-2a8f7b9d6e01","celsius":25.5,"fahrenheit":77.9}}`
	if string(got) != want {
		t.Errorf("payload mismatch:\ngot:  %s\nwant: %s", got, want)
	}
}

func TestFormatReadingPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	event := ReadingEvent{Timestamp: time.Date(2026, 1, 15, 11, 30, 0, 0, loc)}

	got, _ := FormatReadingPayload(event)
	var p TemperaturePayload
	if err := json.Unmarshal(got, &p); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if p.Temperature.Timestamp != "2026-01-15T10:30:00Z" {
		t.Errorf("timestamp: got %q, want UTC", p.Temperature.Timestamp)
	}
}

func TestFormatRelayPayload(t *testing.T) {
	ts := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)

	ok, _ := FormatRelayPayload(RelayEvent{
		Timestamp: ts,
		Requested: true,
		Result:    logic.RelayResult{Succeeded: true, State: logic.RelayOn},
	})
	wantOK := `{"relay":{"timestamp":"2026-01-15T10:30:00Z","requested":true,"status":"success","state":"ON"}}`
	if string(ok) != wantOK {
		t.Errorf("success payload:\ngot:  %s\nwant: %s", ok, wantOK)
	}

	failed, _ := FormatRelayPayload(RelayEvent{
		Timestamp: ts,
		Requested: true,
		Result:    logic.RelayResult{Succeeded: false, State: logic.RelayOff, Error: "EBUSY"},
	})
	wantFailed := `{"relay":{"timestamp":"2026-01-15T10:30:00Z","requested":true,"status":"error","state":"OFF","message":"EBUSY"}}`
	if string(failed) != wantFailed {
		t.Errorf("error payload:\ngot:  %s\nwant: %s", failed, wantFailed)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}
	got, _ := FormatSystemPayload(event)
	want := `{"system":{"timestamp":"2026-01-15T10:30:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(got) != want {
		t.Errorf("payload mismatch:\ngot:  %s\nwant: %s", got, want)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	got, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE"})
	var raw map[string]map[string]any
	json.Unmarshal(got, &raw)
	if _, ok := raw["system"]["reason"]; ok {
		t.Error("reason should be omitted when empty")
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	got, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != string(raw) {
		t.Errorf("expected raw payload passthrough, got %s", got)
	}
}

func TestFakePublisherRecordsInOrder(t *testing.T) {
	f := NewFakePublisher()

	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.PublishReading(ReadingEvent{ID: "a", Reading: logic.NewReading(20)})
	f.PublishRelay(RelayEvent{Requested: true, Result: logic.RelayResult{Succeeded: true, State: logic.RelayOn}})
	f.PublishReading(ReadingEvent{ID: "b", Reading: logic.NewReading(21)})

	if len(f.Readings) != 2 || f.Readings[0].ID != "a" || f.Readings[1].ID != "b" {
		t.Errorf("unexpected readings: %+v", f.Readings)
	}
	if len(f.RelayEvents) != 1 {
		t.Errorf("expected 1 relay event, got %d", len(f.RelayEvents))
	}
	if len(f.SystemEvents) != 1 {
		t.Errorf("expected 1 system event, got %d", len(f.SystemEvents))
	}
	if len(f.Payloads) != 4 {
		t.Errorf("expected 4 payloads, got %d", len(f.Payloads))
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker down")
	f.PublishSystemError = errors.New("broker down")

	if err := f.PublishReading(ReadingEvent{}); err == nil {
		t.Error("expected PublishReading error")
	}
	if err := f.PublishRelay(RelayEvent{}); err == nil {
		t.Error("expected PublishRelay error")
	}
	if err := f.PublishSystem(SystemEvent{}); err == nil {
		t.Error("expected PublishSystem error")
	}
	if len(f.Payloads) != 0 {
		t.Errorf("failed publishes should not be recorded, got %d", len(f.Payloads))
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.PublishReading(ReadingEvent{})
	f.Close()
	f.Connected = true

	f.Reset()

	if len(f.Readings) != 0 || len(f.Payloads) != 0 || f.Closed || f.Connected {
		t.Errorf("reset did not clear state: %+v", f)
	}
}

func TestTopics(t *testing.T) {
	for name, got := range map[string]string{
		"home/thermo/temperature": TopicTemperature,
		"home/thermo/relay":       TopicRelay,
		"home/thermo/system":      TopicSystem,
	} {
		if got != name {
			t.Errorf("topic: got %q, want %q", got, name)
		}
	}
}

func TestNopPublisherDiscards(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.PublishReading(ReadingEvent{}); err != nil {
		t.Errorf("PublishReading: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Event: "STARTUP"}); err != nil {
		t.Errorf("PublishSystem: %v", err)
	}
	if (NopPublisher{}).IsConnected() {
		t.Error("NopPublisher should never report connected")
	}
}
