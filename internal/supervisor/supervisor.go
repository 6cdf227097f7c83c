// internal/supervisor/supervisor.go
package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tamzrod/modbus-io/internal/status"
)

// DefaultBackoff is the fixed wait between connection attempts.
const DefaultBackoff = time.Second

// Link is the connection side of the device session.
type Link interface {
	Connect() error
	Disconnect() error
}

// Cycle runs polling until it fails or ctx is done.
type Cycle interface {
	Run(ctx context.Context) error
}

// Supervisor keeps the device connected and polled until shutdown.
// Retries forever with a fixed backoff; there is no failure cap.
type Supervisor struct {
	link    Link
	cycle   Cycle
	backoff time.Duration
	diag    *status.Diagnostics
	logger  *log.Logger
}

// New creates a supervisor. A non-positive backoff means DefaultBackoff.
func New(link Link, cycle Cycle, backoff time.Duration, diag *status.Diagnostics, logger *log.Logger) (*Supervisor, error) {
	if link == nil || cycle == nil {
		return nil, errors.New("supervisor: link and cycle required")
	}
	if diag == nil {
		return nil, errors.New("supervisor: diagnostics required")
	}
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return &Supervisor{link: link, cycle: cycle, backoff: backoff, diag: diag, logger: logger}, nil
}

// Run blocks until ctx is done. Shutdown is observed between cycles and during backoff.
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.shutdown()

	for ctx.Err() == nil {
		if err := s.link.Connect(); err != nil {
			s.logger.Error("connection error", "err", err, "retry_in", s.backoff)
			if !wait(ctx, s.backoff) {
				return nil
			}
			continue
		}

		s.diag.SetRunning(true)
		err := s.cycle.Run(ctx)
		s.diag.SetRunning(false)

		if err == nil {
			// ctx done
			return nil
		}

		s.logger.Warn("session failed, reconnecting", "err", err, "retry_in", s.backoff)
		if derr := s.link.Disconnect(); derr != nil {
			s.logger.Warn("disconnect failed", "err", derr)
		}
		if !wait(ctx, s.backoff) {
			return nil
		}
	}
	return nil
}

func (s *Supervisor) shutdown() {
	if err := s.link.Disconnect(); err != nil {
		s.logger.Warn("disconnect failed", "err", err)
	}
	s.diag.Stop()
	s.logger.Info("stopped")
}

// wait sleeps for d; false means ctx ended first.
func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
