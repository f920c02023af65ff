// Command thermo-relay samples a 1-Wire temperature probe, stores verified
// readings and exposes the latest reading and a relay switch over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/thermo-relay/internal/gpio"
	"github.com/sweeney/thermo-relay/internal/logic"
	"github.com/sweeney/thermo-relay/internal/metrics"
	"github.com/sweeney/thermo-relay/internal/monitor"
	"github.com/sweeney/thermo-relay/internal/mqtt"
	"github.com/sweeney/thermo-relay/internal/onewire"
	"github.com/sweeney/thermo-relay/internal/status"
	"github.com/sweeney/thermo-relay/internal/store"
	"github.com/sweeney/thermo-relay/internal/web"
)

type config struct {
	poll        time.Duration
	retry       time.Duration
	maxRetries  int
	callTimeout time.Duration
	tolerance   float64
	w1Dir       string
	w1Prefix    string
	relayPin    int
	gpioChip    string
	mongoURI    string
	mongoDB     string
	broker      string
	httpAddr    string
	grace       time.Duration
	printTemp   bool
}

func main() {
	var cfg config
	flag.DurationVar(&cfg.poll, "poll", 10*time.Second, "Interval between temperature cycles")
	flag.DurationVar(&cfg.retry, "retry", onewire.DefaultRetryInterval, "Delay between not-ready sensor reads")
	flag.IntVar(&cfg.maxRetries, "max-retries", onewire.DefaultMaxRetries, "Not-ready reads before giving up (0 = until call timeout)")
	flag.DurationVar(&cfg.callTimeout, "call-timeout", 10*time.Second, "Timeout for each sensor read and store call")
	flag.Float64Var(&cfg.tolerance, "tolerance", store.DefaultTolerance, "Allowed difference between written and read-back values")
	flag.StringVar(&cfg.w1Dir, "w1-dir", onewire.DefaultDir, "1-Wire devices directory")
	flag.StringVar(&cfg.w1Prefix, "w1-prefix", onewire.DefaultPrefix, "1-Wire device name prefix")
	flag.IntVar(&cfg.relayPin, "relay-pin", gpio.DefaultPinRelay, "BCM pin number for the relay")
	flag.StringVar(&cfg.gpioChip, "gpio-chip", gpio.DefaultChip, "GPIO chip name")
	flag.StringVar(&cfg.mongoURI, "mongo-uri", "", "MongoDB connection URI (empty = in-memory store)")
	flag.StringVar(&cfg.mongoDB, "mongo-db", "thermo", "MongoDB database name")
	flag.StringVar(&cfg.broker, "broker", "", "MQTT broker address (empty to disable)")
	flag.StringVar(&cfg.httpAddr, "http", ":8000", "HTTP address (empty to disable)")
	flag.DurationVar(&cfg.grace, "grace", 5*time.Second, "Shutdown grace period for background tasks")
	flag.BoolVar(&cfg.printTemp, "print-temp", false, "Print current temperature and exit")

	flag.Parse()

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// daemon holds the collaborators wired together by run.
type daemon struct {
	read       monitor.ReadFunc
	persister  *store.Persister
	relay      *gpio.Relay
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	metrics    *metrics.Metrics
}

func run(cfg config) error {
	sensor := onewire.NewSensor(
		onewire.NewLink(cfg.w1Dir, cfg.w1Prefix),
		onewire.NewDecoder(cfg.retry, cfg.maxRetries),
	)

	// Print temperature mode
	if cfg.printTemp {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.callTimeout)
		defer cancel()
		r, err := sensor.Read(ctx)
		if err != nil {
			return fmt.Errorf("read sensor: %w", err)
		}
		fmt.Printf("Temperature: %.2f°C / %.2f°F\n", r.Celsius, r.Fahrenheit)
		return nil
	}

	// Initialize relay (forced OFF before anything can command it)
	line, err := gpio.NewRealLine(cfg.gpioChip, cfg.relayPin)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	relay, err := gpio.NewRelay(line)
	if err != nil {
		line.Close()
		return fmt.Errorf("init relay: %w", err)
	}
	defer func() {
		if err := relay.Close(); err != nil {
			log.Printf("relay close error: %v", err)
		}
	}()

	// Initialize store
	db, backend, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.grace)
		defer cancel()
		if err := db.Close(ctx); err != nil {
			log.Printf("store close error: %v", err)
		}
	}()

	// Initialize MQTT
	var publisher mqtt.Publisher = mqtt.NopPublisher{}
	var mqttStatus mqtt.ConnectionStatus = mqtt.NopPublisher{}
	if cfg.broker != "" {
		host, _ := os.Hostname()
		p, err := mqtt.NewRealPublisher(cfg.broker, "thermo-relay-"+host)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher, mqttStatus = p, p
	} else {
		log.Printf("mqtt disabled: no broker configured")
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:    cfg.poll.Milliseconds(),
		RetryMs:   cfg.retry.Milliseconds(),
		Tolerance: cfg.tolerance,
		RelayPin:  cfg.relayPin,
		Store:     backend,
		Broker:    cfg.broker,
		HTTPAddr:  cfg.httpAddr,
	})
	if info := readNetworkInfo(); info != nil {
		tracker.SetNetwork(info)
	}

	var ln net.Listener
	if cfg.httpAddr != "" {
		ln, err = net.Listen("tcp", cfg.httpAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.httpAddr, err)
		}
	}

	d := &daemon{
		read:       sensor.Read,
		persister:  store.NewPersister(db, cfg.tolerance),
		relay:      relay,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		metrics:    metrics.New(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("started: poll=%v retry=%v store=%s broker=%q http=%q", cfg.poll, cfg.retry, backend, cfg.broker, cfg.httpAddr)
	return serve(d, cfg, ln, sigCh)
}

// openStore connects to MongoDB when a URI is configured and falls back to
// process memory otherwise. It returns the store and a backend name for display.
func openStore(cfg config) (store.Store, string, error) {
	if cfg.mongoURI == "" {
		log.Printf("store: no mongo uri configured, keeping readings in memory")
		return store.NewMemoryStore(), "memory", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.callTimeout)
	defer cancel()

	client, err := store.NewMongoConnection(ctx, cfg.mongoURI)
	if err != nil {
		return nil, "", fmt.Errorf("init store: %w", err)
	}
	db, err := store.NewMongoStore(ctx, client, cfg.mongoDB)
	if err != nil {
		client.Disconnect(context.Background())
		return nil, "", fmt.Errorf("init store: %w", err)
	}
	return db, "mongodb", nil
}

// serve runs the background monitor and the HTTP server until a signal
// arrives, then shuts both down within the grace period.
func serve(d *daemon, cfg config, ln net.Listener, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d.publishSystem("STARTUP", "")

	loop := &monitor.Loop{
		Name:        "temperature",
		Interval:    cfg.poll,
		CallTimeout: cfg.callTimeout,
		Read:        d.read,
		Store:       d.store,
		Observe:     d.observe,
	}
	manager := monitor.NewManager()
	manager.Start(ctx, loop.Run)

	var srv *web.Server
	if ln != nil {
		srv = web.New(ln.Addr().String(), web.Deps{
			Tracker:   d.tracker,
			Readings:  d.persister,
			Relay:     d.relay,
			Metrics:   d.metrics,
			OnRelay:   d.onRelay,
			AccessLog: os.Stdout,
		})
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server error: %v", err)
			}
		}()
		log.Printf("http server listening on %s", ln.Addr())
	}

	s := <-sig
	log.Printf("received %v, shutting down", s)
	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}

	var shutdownErr error
	if err := manager.Stop(cfg.grace); err != nil {
		log.Printf("monitor shutdown: %v", err)
		shutdownErr = err
	}
	if srv != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.grace)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown: %v", err)
		}
	}

	d.publishSystem("SHUTDOWN", signalName)
	return shutdownErr
}

func (d *daemon) store(ctx context.Context, r logic.Reading) error {
	rec, err := d.persister.StoreAndVerify(ctx, r)
	if err != nil {
		return err
	}
	event := mqtt.ReadingEvent{Timestamp: rec.RecordedAt, ID: rec.ID, Reading: rec.Reading()}
	if err := d.publisher.PublishReading(event); err != nil {
		// Don't fail the cycle on publish failure
		log.Printf("publish error: %v", err)
	}
	return nil
}

func (d *daemon) observe(res monitor.CycleResult) {
	d.tracker.RecordCycle(res.Outcome, res.Reading, res.Time, res.Err)
	d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	d.metrics.Cycle("temperature", res.Outcome, res.Reading)
}

func (d *daemon) onRelay(requested bool, res logic.RelayResult) {
	event := mqtt.RelayEvent{Timestamp: time.Now(), Requested: requested, Result: res}
	if err := d.publisher.PublishRelay(event); err != nil {
		log.Printf("publish error: %v", err)
	}
}

func (d *daemon) publishSystem(name, reason string) {
	d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	snap := d.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      name,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, name, reason),
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish %s event: %v", name, err)
	} else {
		log.Printf("published %s event", name)
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
