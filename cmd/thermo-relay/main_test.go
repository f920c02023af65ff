package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/thermo-relay/internal/gpio"
	"github.com/sweeney/thermo-relay/internal/logic"
	"github.com/sweeney/thermo-relay/internal/metrics"
	"github.com/sweeney/thermo-relay/internal/monitor"
	"github.com/sweeney/thermo-relay/internal/mqtt"
	"github.com/sweeney/thermo-relay/internal/status"
	"github.com/sweeney/thermo-relay/internal/store"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env. If pi-helper changes its var names, this test fails
// and we update the constants, not the other way around.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadNetworkInfo(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want *status.NetworkInfo
	}{
		{
			name: "none set",
			env:  map[string]string{envNetworkStatus: ""},
			want: nil,
		},
		{
			name: "status only",
			env:  map[string]string{envNetworkStatus: "connected"},
			want: &status.NetworkInfo{Status: "connected"},
		},
		{
			name: "all set",
			env: map[string]string{
				envNetworkType:       "wifi",
				envNetworkIP:         "192.168.1.100",
				envNetworkStatus:     "connected",
				envNetworkGateway:    "192.168.1.1",
				envNetworkWifiStatus: "connected",
				envNetworkWifiSSID:   "MyNetwork",
			},
			want: &status.NetworkInfo{
				Type:       "wifi",
				IP:         "192.168.1.100",
				Status:     "connected",
				Gateway:    "192.168.1.1",
				WifiStatus: "connected",
				SSID:       "MyNetwork",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{envNetworkType, envNetworkIP, envNetworkStatus, envNetworkGateway, envNetworkWifiStatus, envNetworkWifiSSID} {
				t.Setenv(k, tt.env[k])
			}

			got := readNetworkInfo()
			if tt.want == nil {
				if got != nil {
					t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("expected non-nil NetworkInfo")
			}
			if *got != *tt.want {
				t.Errorf("got %+v, want %+v", *got, *tt.want)
			}
		})
	}
}

// --- serve tests ---

type testDaemon struct {
	*daemon
	pub  *mqtt.FakePublisher
	db   *store.MemoryStore
	line *gpio.FakeLine
}

func newTestDaemon(t *testing.T, read monitor.ReadFunc) *testDaemon {
	t.Helper()
	line := gpio.NewFakeLine()
	relay, err := gpio.NewRelay(line)
	if err != nil {
		t.Fatalf("NewRelay: %v", err)
	}
	pub := mqtt.NewFakePublisher()
	db := store.NewMemoryStore()
	return &testDaemon{
		daemon: &daemon{
			read:       read,
			persister:  store.NewPersister(db, store.DefaultTolerance),
			relay:      relay,
			publisher:  pub,
			mqttStatus: pub,
			tracker:    status.NewTracker(time.Now(), status.Config{Store: "memory"}),
			metrics:    metrics.New(),
		},
		pub:  pub,
		db:   db,
		line: line,
	}
}

func constantRead(c float64) monitor.ReadFunc {
	return func(ctx context.Context) (logic.Reading, error) {
		return logic.NewReading(c), nil
	}
}

func testConfig() config {
	return config{
		poll:        5 * time.Millisecond,
		callTimeout: time.Second,
		tolerance:   store.DefaultTolerance,
		grace:       time.Second,
	}
}

// startServe runs serve in the background and returns a channel carrying its result.
func startServe(d *daemon, cfg config, ln net.Listener, sig chan os.Signal) <-chan error {
	done := make(chan error, 1)
	go func() { done <- serve(d, cfg, ln, sig) }()
	return done
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func stopServe(t *testing.T, sig chan os.Signal, s os.Signal, done <-chan error) error {
	t.Helper()
	sig <- s
	select {
	case err := <-done:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not return after signal")
		return nil
	}
}

func TestServeEndToEnd(t *testing.T) {
	td := newTestDaemon(t, constantRead(25.5))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	base := "http://" + ln.Addr().String()

	sig := make(chan os.Signal, 1)
	done := startServe(td.daemon, testConfig(), ln, sig)

	waitFor(t, "a stored reading", func() bool {
		resp, err := http.Get(base + "/temperature")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	})

	resp, err := http.Post(base+"/relay", "application/json", strings.NewReader(`{"state": true}`))
	if err != nil {
		t.Fatalf("POST /relay: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /relay: got %d, want 200", resp.StatusCode)
	}

	if err := stopServe(t, sig, syscall.SIGTERM, done); err != nil {
		t.Fatalf("serve: %v", err)
	}

	if td.line.Level() != gpio.Low {
		t.Errorf("relay line: got %d, want LOW (ON)", td.line.Level())
	}

	if len(td.pub.Readings) == 0 {
		t.Fatal("expected at least one published reading")
	}
	first := td.pub.Readings[0]
	if first.Reading.Celsius != 25.5 || first.ID == "" {
		t.Errorf("reading event: got %+v", first)
	}
	if len(td.pub.RelayEvents) != 1 || !td.pub.RelayEvents[0].Requested {
		t.Errorf("relay events: got %+v", td.pub.RelayEvents)
	}

	events := td.pub.SystemEvents
	if len(events) != 2 {
		t.Fatalf("system events: got %d, want 2", len(events))
	}
	if events[0].Event != "STARTUP" || !events[0].Retained {
		t.Errorf("first system event: got %+v", events[0])
	}
	if events[1].Event != "SHUTDOWN" || events[1].Reason != "SIGTERM" {
		t.Errorf("last system event: got %+v", events[1])
	}
	if !strings.Contains(string(events[1].RawPayload), `"event":"SHUTDOWN"`) {
		t.Errorf("shutdown payload should carry a status snapshot: %s", events[1].RawPayload)
	}

	snap := td.tracker.Snapshot()
	if snap.Counts.Stored == 0 || snap.Relay != logic.RelayOn {
		t.Errorf("tracker: got counts %+v relay %s", snap.Counts, snap.Relay)
	}
}

func TestServeVerificationFailureKeepsPolling(t *testing.T) {
	td := newTestDaemon(t, constantRead(21.0))
	td.db.Coerce = func(r logic.Reading) logic.Reading {
		return logic.Reading{Celsius: r.Celsius + 1, Fahrenheit: r.Fahrenheit}
	}

	sig := make(chan os.Signal, 1)
	done := startServe(td.daemon, testConfig(), nil, sig)

	waitFor(t, "repeated store failures", func() bool {
		return td.tracker.Snapshot().Counts.StoreFailed >= 2
	})
	if err := stopServe(t, sig, syscall.SIGINT, done); err != nil {
		t.Fatalf("serve: %v", err)
	}

	if len(td.pub.Readings) != 0 {
		t.Errorf("unverified readings must not be published, got %d", len(td.pub.Readings))
	}
	snap := td.tracker.Snapshot()
	if !strings.Contains(snap.LastError, "verification") {
		t.Errorf("LastError: got %q", snap.LastError)
	}
	if got := td.pub.SystemEvents[len(td.pub.SystemEvents)-1]; got.Reason != "SIGINT" {
		t.Errorf("shutdown reason: got %q, want SIGINT", got.Reason)
	}
}

func TestServePublishesStoredValues(t *testing.T) {
	td := newTestDaemon(t, constantRead(21.0))
	// Backend drifts within tolerance
	td.db.Coerce = func(r logic.Reading) logic.Reading {
		return logic.Reading{Celsius: r.Celsius + 0.005, Fahrenheit: r.Fahrenheit}
	}

	sig := make(chan os.Signal, 1)
	done := startServe(td.daemon, testConfig(), nil, sig)

	waitFor(t, "a stored reading", func() bool {
		return td.tracker.Snapshot().Counts.Stored >= 1
	})
	if err := stopServe(t, sig, syscall.SIGTERM, done); err != nil {
		t.Fatalf("serve: %v", err)
	}

	records := td.db.Records()
	if len(td.pub.Readings) == 0 || len(records) == 0 {
		t.Fatalf("expected stored and published readings, got %d and %d", len(records), len(td.pub.Readings))
	}
	if got, want := td.pub.Readings[0].Reading, records[0].Reading(); got != want {
		t.Errorf("published %+v, want stored values %+v", got, want)
	}
}

func TestServeReadFailureKeepsPolling(t *testing.T) {
	td := newTestDaemon(t, func(ctx context.Context) (logic.Reading, error) {
		return logic.Reading{}, fmt.Errorf("locate probe: %w", errors.New("no such device"))
	})

	sig := make(chan os.Signal, 1)
	done := startServe(td.daemon, testConfig(), nil, sig)

	waitFor(t, "repeated read failures", func() bool {
		return td.tracker.Snapshot().Counts.ReadFailed >= 3
	})
	if err := stopServe(t, sig, syscall.SIGTERM, done); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if n := len(td.db.Records()); n != 0 {
		t.Errorf("records: got %d, want 0", n)
	}
}

func TestServeShutdownTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	started := make(chan struct{}, 1)
	td := newTestDaemon(t, func(ctx context.Context) (logic.Reading, error) {
		// Ignores cancellation, like a wedged driver call
		started <- struct{}{}
		<-release
		return logic.NewReading(20), nil
	})

	cfg := testConfig()
	cfg.callTimeout = 0
	cfg.grace = 20 * time.Millisecond

	sig := make(chan os.Signal, 1)
	done := startServe(td.daemon, cfg, nil, sig)
	<-started

	err := stopServe(t, sig, syscall.SIGTERM, done)
	if !errors.Is(err, monitor.ErrShutdownTimeout) {
		t.Errorf("serve: got %v, want ErrShutdownTimeout", err)
	}
}
