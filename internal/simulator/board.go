// internal/simulator/board.go
package simulator

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/simonvetter/modbus"
)

// Board is an in-memory digital I/O board exposing its state as holding registers.
// Handler methods are called from one goroutine per client, hence the lock.
type Board struct {
	lock     sync.RWMutex
	regs     map[uint16]uint16
	rejected map[uint16]bool
	reads    int
	writes   int
	logger   *log.Logger
}

// NewBoard creates an empty board. logger may be nil.
func NewBoard(logger *log.Logger) *Board {
	return &Board{
		regs:     make(map[uint16]uint16),
		rejected: make(map[uint16]bool),
		logger:   logger,
	}
}

// Set stores a raw register value.
func (b *Board) Set(addr, value uint16) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.regs[addr] = value
}

// Get returns a raw register value.
func (b *Board) Get(addr uint16) uint16 {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.regs[addr]
}

// Reject makes every access to addr fail with an illegal data address exception.
func (b *Board) Reject(addr uint16, on bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.rejected[addr] = on
}

// Counts returns the number of served register reads and writes.
func (b *Board) Counts() (reads, writes int) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.reads, b.writes
}

func (b *Board) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	for i := uint16(0); i < req.Quantity; i++ {
		if b.rejected[req.Addr+i] {
			return nil, modbus.ErrIllegalDataAddress
		}
	}

	if req.IsWrite {
		b.writes++
		for i, v := range req.Args {
			b.regs[req.Addr+uint16(i)] = v
		}
		if b.logger != nil {
			b.logger.Info("register write", "client", req.ClientAddr, "addr", req.Addr, "values", req.Args)
		}
		return nil, nil
	}

	b.reads++
	res := make([]uint16, req.Quantity)
	for i := range res {
		res[i] = b.regs[req.Addr+uint16(i)]
	}
	return res, nil
}

func (b *Board) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	return nil, modbus.ErrIllegalFunction
}

func (b *Board) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (b *Board) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

// Serve starts a Modbus TCP server for the board at url (e.g. tcp://127.0.0.1:5502).
// Stop the returned server to release the listener.
func Serve(url string, b *Board) (*modbus.ModbusServer, error) {
	srv, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        url,
		Timeout:    30 * time.Second,
		MaxClients: 4,
	}, b)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(); err != nil {
		return nil, err
	}
	return srv, nil
}
