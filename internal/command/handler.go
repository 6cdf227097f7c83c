// internal/command/handler.go
package command

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/tamzrod/modbus-io/internal/codec"
	"github.com/tamzrod/modbus-io/internal/poller"
	"github.com/tamzrod/modbus-io/internal/session"
	"github.com/tamzrod/modbus-io/internal/status"
)

var (
	// ErrOutOfRange: channel number outside [1, count].
	ErrOutOfRange = codec.ErrOutOfRange

	// ErrUnsupportedChannelCount: "all channels" on a board that is neither 8 nor 16 wide.
	ErrUnsupportedChannelCount = codec.ErrUnsupportedChannelCount

	// ErrNoSnapshot: single-channel write before the first successful poll.
	ErrNoSnapshot = errors.New("command: no register read yet")

	// ErrIoFailure wraps the transport error of a failed write.
	ErrIoFailure = errors.New("command: io failure")
)

// Cache is the read side of the poller's last-known register values.
type Cache interface {
	Load(d poller.Direction) (uint16, bool)
}

// Config mirrors the poller geometry.
type Config struct {
	Inputs    poller.Bank
	Outputs   poller.Bank
	BigEndian bool
}

// Handler turns channel commands into register writes.
type Handler struct {
	cfg    Config
	dev    poller.Device
	cache  Cache
	diag   *status.Diagnostics
	logger *log.Logger
}

// New creates a command handler.
func New(cfg Config, dev poller.Device, cache Cache, diag *status.Diagnostics, logger *log.Logger) *Handler {
	return &Handler{cfg: cfg, dev: dev, cache: cache, diag: diag, logger: logger}
}

// SetOutput sets one output channel (1-based) or all of them (channel 0).
func (h *Handler) SetOutput(channel int, value bool) error {
	return h.SetChannel(poller.Outputs, channel, value)
}

// SetInput mirrors SetOutput on the inputs register. Meant for simulated boards.
func (h *Handler) SetInput(channel int, value bool) error {
	return h.SetChannel(poller.Inputs, channel, value)
}

// SetChannel performs the read-modify-write for one direction.
// The cached value is read and the new value written inside one exchange,
// so a poll cannot slip in between.
func (h *Handler) SetChannel(dir poller.Direction, channel int, value bool) error {
	bank := h.bank(dir)

	if channel == 0 {
		mask, err := codec.AllChannelsMask(bank.Count, value)
		if err != nil {
			h.logger.Error("all channels command rejected", "direction", dir, "count", bank.Count, "err", err)
			return err
		}
		if value {
			h.logger.Info(fmt.Sprintf("all %s enabled", dir), "channel", channel)
		} else {
			h.logger.Info(fmt.Sprintf("all %s disabled", dir), "channel", channel)
		}
		return h.write(dir, bank.Address, codec.Normalize(mask, h.cfg.BigEndian))
	}

	idx := channel - 1
	if channel < 0 || idx >= bank.Count {
		h.logger.Error("channel number out of range",
			"direction", dir, "channel", channel, "range", fmt.Sprintf("[1 -> %d]", bank.Count))
		return fmt.Errorf("%w: %s channel %d not in [1, %d]", ErrOutOfRange, dir, channel, bank.Count)
	}

	h.logger.Info("write request", "direction", dir, "channel", channel, "value", value)

	var ioErr error
	err := h.dev.Exchange(func(tx session.Tx) error {
		cached, ok := h.cache.Load(dir)
		if !ok {
			return ErrNoSnapshot
		}
		next, err := codec.SetBit(cached, idx, value)
		if err != nil {
			return err
		}
		if err := tx.WriteRegister(bank.Address, codec.Normalize(next, h.cfg.BigEndian)); err != nil {
			ioErr = err
			return err
		}
		return nil
	})
	if ioErr != nil {
		return h.failed(dir, ioErr)
	}
	return err
}

func (h *Handler) write(dir poller.Direction, addr, value uint16) error {
	err := h.dev.Exchange(func(tx session.Tx) error {
		return tx.WriteRegister(addr, value)
	})
	if err != nil {
		return h.failed(dir, err)
	}
	return nil
}

func (h *Handler) failed(dir poller.Direction, err error) error {
	h.logger.Warn("register write failed", "direction", dir, "err", err)
	h.diag.RecordError(err)
	return fmt.Errorf("%w: %w", ErrIoFailure, err)
}

func (h *Handler) bank(dir poller.Direction) poller.Bank {
	if dir == poller.Inputs {
		return h.cfg.Inputs
	}
	return h.cfg.Outputs
}
