// internal/poller/poller.go
package poller

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tamzrod/modbus-io/internal/codec"
	"github.com/tamzrod/modbus-io/internal/session"
	"github.com/tamzrod/modbus-io/internal/status"
)

// Config is the minimal runtime config the poller needs.
type Config struct {
	Interval  time.Duration
	Inputs    Bank
	Outputs   Bank
	BigEndian bool

	// Now defaults to time.Now.
	Now func() time.Time

	// Cache lets the caller share the register cache with command handling
	// before the poller exists. Defaults to a fresh one.
	Cache *Cache
}

// Poller reads both registers once per period and publishes the decoded state.
type Poller struct {
	cfg    Config
	dev    Device
	sink   Sink
	diag   *status.Diagnostics
	cache  *Cache
	logger *log.Logger

	// publishFailing is owned by the polling goroutine.
	publishFailing bool
}

// New creates a poller with immutable config.
func New(cfg Config, dev Device, sink Sink, diag *status.Diagnostics, logger *log.Logger) (*Poller, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if dev == nil {
		return nil, errors.New("poller: device required")
	}
	if sink == nil {
		return nil, errors.New("poller: sink required")
	}
	if diag == nil {
		return nil, errors.New("poller: diagnostics required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Cache == nil {
		cfg.Cache = &Cache{}
	}
	return &Poller{
		cfg:    cfg,
		dev:    dev,
		sink:   sink,
		diag:   diag,
		cache:  cfg.Cache,
		logger: logger,
	}, nil
}

// Cache exposes the last-known register values.
func (p *Poller) Cache() *Cache { return p.cache }

// PollOnce performs exactly one poll cycle.
// All-or-nothing: any read failure aborts the cycle before anything is published.
func (p *Poller) PollOnce(cs *CycleState) (Snapshot, error) {
	period := p.cfg.Interval
	start := p.cfg.Now()

	if cs.Measured && cs.PrevTotal > period {
		p.slow(status.SlowFullCycle, cs.PrevTotal)
	}

	var in, out uint16
	err := p.dev.Exchange(func(tx session.Tx) error {
		rawIn, err := readOne(tx, p.cfg.Inputs.Address)
		if err != nil {
			p.forget()
			return err
		}
		rawOut, err := readOne(tx, p.cfg.Outputs.Address)
		if err != nil {
			p.forget()
			return err
		}

		in = codec.Normalize(rawIn, p.cfg.BigEndian)
		out = codec.Normalize(rawOut, p.cfg.BigEndian)

		// Commit only if both reads succeeded.
		p.cache.Store(Inputs, in)
		p.cache.Store(Outputs, out)
		return nil
	})
	if err != nil {
		p.logger.Warn("read failed", "err", err)
		p.diag.RecordError(err)
		return Snapshot{}, err
	}

	snap := Snapshot{
		At:             start,
		DigitalInputs:  codec.Decode(in, p.cfg.Inputs.Count),
		DigitalOutputs: codec.Decode(out, p.cfg.Outputs.Count),
	}

	gathered := p.cfg.Now()
	if d := gathered.Sub(start); d > period {
		p.slow(status.SlowGathering, d)
	}

	p.publish(snap)

	published := p.cfg.Now()
	if d := published.Sub(gathered); d > period {
		p.slow(status.SlowPublish, d)
	}

	cs.PrevTotal = published.Sub(start)
	cs.Measured = true
	p.diag.Tick(published)

	return snap, nil
}

// forget invalidates the cache after a failed read. The session is about to be
// dropped, so commands must wait for a read from the next session.
func (p *Poller) forget() {
	p.cache.Invalidate(Inputs)
	p.cache.Invalidate(Outputs)
}

// publish logs a failing sink once per outage, not once per cycle.
func (p *Poller) publish(snap Snapshot) {
	err := p.sink.Publish(snap)
	switch {
	case err != nil && !p.publishFailing:
		p.publishFailing = true
		p.logger.Warn("publish failed", "err", err)
	case err != nil:
		p.logger.Debug("publish failed", "err", err)
	case p.publishFailing:
		p.publishFailing = false
		p.logger.Info("publish recovered")
	}
}

func (p *Poller) slow(reason string, took time.Duration) {
	p.logger.Warn(reason,
		"took_ms", float64(took)/float64(time.Millisecond),
		"nominal_ms", float64(p.cfg.Interval)/float64(time.Millisecond),
	)
	p.diag.RecordSlow(reason)
}

func readOne(tx session.Tx, addr uint16) (uint16, error) {
	regs, err := tx.ReadRegisters(addr, 1)
	if err != nil {
		return 0, err
	}
	if len(regs) != 1 {
		return 0, fmt.Errorf("poller: expected 1 register at %d, got %d", addr, len(regs))
	}
	return regs[0], nil
}
