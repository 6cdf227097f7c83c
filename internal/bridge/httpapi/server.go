// internal/bridge/httpapi/server.go
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"

	"github.com/tamzrod/modbus-io/internal/command"
	"github.com/tamzrod/modbus-io/internal/poller"
	"github.com/tamzrod/modbus-io/internal/status"
)

const httpTimeoutMs = 3000

// maxRequestBytes bounds a command body; it carries two small fields.
const maxRequestBytes = 1 << 10

type Reporter interface {
	Report() status.Report
}

type SnapshotSource interface {
	Get() (poller.Snapshot, bool)
}

type Commander interface {
	SetChannel(dir poller.Direction, channel int, value bool) error
}

// Deps are the services the routes expose. Metrics and SelfTest are optional.
type Deps struct {
	Diagnostics Reporter
	Latest      SnapshotSource
	Commands    Commander
	Metrics     http.Handler
	SelfTest    func() error
}

type Server struct {
	addr   string
	deps   Deps
	router *httprouter.Router
	logger *log.Logger
}

// request mirrors the MQTT command payload.
type request struct {
	Channel *int  `json:"channel"`
	Value   *bool `json:"value"`
}

type response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func New(addr string, deps Deps, logger *log.Logger) *Server {
	s := &Server{addr: addr, deps: deps, logger: logger}

	r := httprouter.New()
	r.GET("/diagnostics", s.handleDiagnostics)
	r.GET("/io", s.handleIO)
	r.POST("/write_digital_output", s.handleWrite(poller.Outputs))
	r.POST("/write_digital_input", s.handleWrite(poller.Inputs))
	r.GET("/selftest", s.handleSelfTest)
	if deps.Metrics != nil {
		r.Handler(http.MethodGet, "/metrics", deps.Metrics)
	}
	s.router = r

	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	httpTimeout := httpTimeoutMs * time.Millisecond

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadTimeout:       httpTimeout,
		ReadHeaderTimeout: httpTimeout,
		WriteTimeout:      httpTimeout,
		IdleTimeout:       2 * httpTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("http listening", "addr", s.addr)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		return errors.Wrap(err, "http serve")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "http shutdown")
	}
	return nil
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.deps.Diagnostics.Report())
}

func (s *Server) handleIO(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	snap, ok := s.deps.Latest.Get()
	if !ok {
		http.Error(w, "no snapshot yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleWrite(dir poller.Direction) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req request
		body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			code := http.StatusBadRequest
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				code = http.StatusRequestEntityTooLarge
			}
			writeJSON(w, code, response{Error: errors.Wrap(err, "decode request").Error()})
			return
		}
		if req.Channel == nil || req.Value == nil {
			writeJSON(w, http.StatusBadRequest, response{Error: "request needs channel and value"})
			return
		}

		if err := s.deps.Commands.SetChannel(dir, *req.Channel, *req.Value); err != nil {
			writeJSON(w, statusFor(err), response{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, response{Success: true})
	}
}

func (s *Server) handleSelfTest(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.deps.SelfTest == nil {
		http.Error(w, "self test not configured", http.StatusNotImplemented)
		return
	}
	if err := s.deps.SelfTest(); err != nil {
		s.logger.Error("connect test failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, response{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, command.ErrOutOfRange),
		errors.Is(err, command.ErrUnsupportedChannelCount):
		return http.StatusBadRequest
	case errors.Is(err, command.ErrNoSnapshot):
		return http.StatusConflict
	case errors.Is(err, command.ErrIoFailure):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
