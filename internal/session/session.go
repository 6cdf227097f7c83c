// internal/session/session.go
package session

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goburrow/modbus"
)

// State is the observable connection state.
type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Tx is the set of protocol exchanges available inside Exchange.
type Tx interface {
	ReadRegisters(addr, count uint16) ([]uint16, error)
	WriteRegister(addr, value uint16) error
}

// Config is the transport config for one device.
type Config struct {
	Address string
	Port    int
	UnitID  uint8
	Timeout time.Duration

	// Trace routes the goburrow frame log through the session logger at debug level.
	Trace bool
}

// Endpoint returns host:port.
func (c Config) Endpoint() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}

// Session owns one Modbus TCP connection.
// All exchanges are serialized: Modbus TCP pairs one request with one response.
type Session struct {
	cfg    Config
	logger *log.Logger

	mu      sync.Mutex
	state   State
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

// New creates a Disconnected session.
func New(cfg Config, logger *log.Logger) (*Session, error) {
	if cfg.Address == "" {
		return nil, errors.New("session: address required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("session: port %d out of range", cfg.Port)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}
	return &Session{cfg: cfg, logger: logger}, nil
}

// State reports the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect dials the device. An existing connection is closed first.
func (s *Session) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeLocked()

	endpoint := s.cfg.Endpoint()
	s.logger.Info("connecting", "endpoint", endpoint)

	h := modbus.NewTCPClientHandler(endpoint)
	h.Timeout = s.cfg.Timeout
	h.SlaveId = s.cfg.UnitID
	if s.cfg.Trace {
		h.Logger = s.logger.StandardLog(log.StandardLogOptions{ForceLevel: log.DebugLevel})
	}

	if err := h.Connect(); err != nil {
		return &ConnectError{Endpoint: endpoint, Err: err}
	}

	s.handler = h
	s.client = modbus.NewClient(h)
	s.state = Connected

	s.logger.Info("connected to modbus io board", "endpoint", endpoint)
	return nil
}

// Disconnect releases the connection. Safe to call when Disconnected.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Disconnected {
		return nil
	}
	s.logger.Info("closing modbus connection")
	return s.closeLocked()
}

// ReadRegisters reads count holding registers starting at addr.
func (s *Session) ReadRegisters(addr, count uint16) ([]uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(addr, count)
}

// WriteRegister writes a single holding register.
func (s *Session) WriteRegister(addr, value uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(addr, value)
}

// Exchange runs fn while holding the session for exclusive use,
// so a sequence of exchanges cannot interleave with other callers.
func (s *Session) Exchange(fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(lockedTx{s})
}

type lockedTx struct{ s *Session }

func (t lockedTx) ReadRegisters(addr, count uint16) ([]uint16, error) {
	return t.s.readLocked(addr, count)
}

func (t lockedTx) WriteRegister(addr, value uint16) error {
	return t.s.writeLocked(addr, value)
}

// ---- internal, caller holds mu ----

func (s *Session) readLocked(addr, count uint16) ([]uint16, error) {
	if s.state != Connected {
		return nil, newIoError("read", addr, ErrNotConnected)
	}
	if count == 0 {
		return nil, nil
	}

	raw, err := s.client.ReadHoldingRegisters(addr, count)
	if err != nil {
		return nil, s.failLocked("read", addr, err)
	}
	if len(raw) != int(count)*2 {
		return nil, s.failLocked("read", addr,
			fmt.Errorf("malformed response: got %d bytes, want %d", len(raw), int(count)*2))
	}
	return unpackRegisters(raw), nil
}

func (s *Session) writeLocked(addr, value uint16) error {
	if s.state != Connected {
		return newIoError("write", addr, ErrNotConnected)
	}
	if _, err := s.client.WriteSingleRegister(addr, value); err != nil {
		return s.failLocked("write", addr, err)
	}
	return nil
}

// failLocked drops the connection: after a failed exchange the request/response
// pairing on the stream can no longer be trusted.
func (s *Session) failLocked(op string, addr uint16, err error) error {
	ioErr := newIoError(op, addr, err)
	s.closeLocked()
	return ioErr
}

func (s *Session) closeLocked() error {
	var err error
	if s.handler != nil {
		err = s.handler.Close()
	}
	s.handler = nil
	s.client = nil
	s.state = Disconnected
	return err
}

func unpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}
