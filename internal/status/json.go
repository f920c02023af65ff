package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string           `json:"event,omitempty"`
	Reason        string           `json:"reason,omitempty"`
	Temperature   *TemperatureJSON `json:"temperature,omitempty"`
	Relay         string           `json:"relay"`
	LastError     string           `json:"last_error,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	StartTime     string           `json:"start_time"`
	Timestamp     string           `json:"timestamp"`
	MQTT          MQTTStatus       `json:"mqtt"`
	Counts        CountsJSON       `json:"cycle_counts"`
	Network       *NetworkJSON     `json:"network,omitempty"`
	Config        ConfigJSON       `json:"config"`
}

// TemperatureJSON is the last verified reading.
type TemperatureJSON struct {
	Celsius    float64 `json:"celsius"`
	Fahrenheit float64 `json:"fahrenheit"`
	Timestamp  string  `json:"timestamp"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of cycle counts.
type CountsJSON struct {
	Stored      int `json:"stored"`
	ReadFailed  int `json:"read_failed"`
	StoreFailed int `json:"store_failed"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs    int64   `json:"poll_ms"`
	RetryMs   int64   `json:"retry_ms"`
	Tolerance float64 `json:"tolerance"`
	RelayPin  int     `json:"relay_pin"`
	Store     string  `json:"store"`
	Broker    string  `json:"broker,omitempty"`
	HTTPAddr  string  `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	relay := string(snap.Relay)
	if relay == "" {
		relay = "UNKNOWN"
	}

	inner := StatusInner{
		Relay:         relay,
		LastError:     snap.LastError,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Stored:      snap.Counts.Stored,
			ReadFailed:  snap.Counts.ReadFailed,
			StoreFailed: snap.Counts.StoreFailed,
		},
		Config: ConfigJSON{
			PollMs:    snap.Config.PollMs,
			RetryMs:   snap.Config.RetryMs,
			Tolerance: snap.Config.Tolerance,
			RelayPin:  snap.Config.RelayPin,
			Store:     snap.Config.Store,
			Broker:    snap.Config.Broker,
			HTTPAddr:  snap.Config.HTTPAddr,
		},
	}

	if snap.Last != nil {
		inner.Temperature = &TemperatureJSON{
			Celsius:    snap.Last.Reading.Celsius,
			Fahrenheit: snap.Last.Reading.Fahrenheit,
			Timestamp:  snap.Last.At.UTC().Format(time.RFC3339),
		}
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
