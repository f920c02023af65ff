// Package web provides the HTTP surface of the thermo-relay daemon.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/sweeney/thermo-relay/internal/logic"
	"github.com/sweeney/thermo-relay/internal/metrics"
	"github.com/sweeney/thermo-relay/internal/status"
	"github.com/sweeney/thermo-relay/internal/store"
)

// ReadingSource returns the most recently stored reading.
type ReadingSource interface {
	Latest(ctx context.Context) (store.Record, error)
}

// RelaySwitch applies a logical relay state.
type RelaySwitch interface {
	Set(on bool) logic.RelayResult
}

// Deps are the collaborators the HTTP handlers use.
type Deps struct {
	Tracker  *status.Tracker // nil gets an empty tracker
	Readings ReadingSource
	Relay    RelaySwitch
	Metrics  *metrics.Metrics // optional

	// OnRelay, if set, is called after every relay request with the final result.
	OnRelay func(requested bool, res logic.RelayResult)

	// AccessLog, if set, receives one Apache-style line per request.
	AccessLog io.Writer
}

// Server serves the API and status page over HTTP.
type Server struct {
	httpServer *http.Server
	deps       Deps
}

// New creates a Server listening on addr.
func New(addr string, deps Deps) *Server {
	if deps.Tracker == nil {
		deps.Tracker = status.NewTracker(time.Now(), status.Config{HTTPAddr: addr})
	}
	s := &Server{deps: deps}

	r := mux.NewRouter()
	s.route(r, "/temperature", s.handleTemperature, http.MethodGet)
	s.route(r, "/temperature/", s.handleTemperature, http.MethodGet)
	s.route(r, "/relay", s.handleRelay, http.MethodPost)
	s.route(r, "/relay/", s.handleRelay, http.MethodPost)
	s.route(r, "/health", s.handleHealth, http.MethodGet)
	s.route(r, "/", s.handleIndex, http.MethodGet)
	s.route(r, "/index.html", s.handleIndex, http.MethodGet)
	s.route(r, "/index.json", s.handleJSON, http.MethodGet)
	r.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})

	var h http.Handler = r
	if deps.AccessLog != nil {
		h = handlers.LoggingHandler(deps.AccessLog, r)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: h,
	}
	return s
}

func (s *Server) route(r *mux.Router, path string, fn http.HandlerFunc, method string) {
	r.Handle(path, s.deps.Metrics.WrapHandler(path, fn)).Methods(method)
}

// Handler returns the root handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// TemperatureJSON is the body of GET /temperature.
type TemperatureJSON struct {
	ID         string  `json:"id"`
	Celsius    float64 `json:"celsius"`
	Fahrenheit float64 `json:"fahrenheit"`
	RecordedAt string  `json:"recorded_at"`
}

// RelayRequest is the body of POST /relay.
type RelayRequest struct {
	State *bool `json:"state"`
}

// RelayJSON is the body of a successful POST /relay.
type RelayJSON struct {
	Status string `json:"status"`
	State  string `json:"state"`
}

// ErrorJSON is the body of every error response.
type ErrorJSON struct {
	Detail string `json:"detail"`
}

func (s *Server) handleTemperature(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Readings.Latest(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No temperature readings available")
		return
	}
	if err != nil {
		log.Printf("web: latest reading: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load temperature: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, TemperatureJSON{
		ID:         rec.ID,
		Celsius:    rec.Celsius,
		Fahrenheit: rec.Fahrenheit,
		RecordedAt: rec.RecordedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	var req RelayRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil || req.State == nil {
		writeError(w, http.StatusBadRequest, `body must be {"state": true|false}`)
		return
	}
	want := *req.State

	// Always pass through OFF before applying the requested state
	res := s.deps.Relay.Set(false)
	if res.Succeeded {
		res = s.deps.Relay.Set(want)
	}

	s.deps.Tracker.SetRelay(res.State)
	s.deps.Metrics.Relay(want, res)
	if s.deps.OnRelay != nil {
		s.deps.OnRelay(want, res)
	}

	if !res.Succeeded {
		log.Printf("web: relay actuation failed: %s", res.Error)
		writeError(w, http.StatusInternalServerError, res.Error)
		return
	}
	writeJSON(w, http.StatusOK, RelayJSON{Status: "success", State: string(res.State)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, ErrorJSON{Detail: detail})
}
