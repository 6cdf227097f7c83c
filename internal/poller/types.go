// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/modbus-io/internal/session"
)

// Direction selects one of the two registers of the board.
type Direction int

const (
	Inputs Direction = iota
	Outputs
)

func (d Direction) String() string {
	if d == Inputs {
		return "inputs"
	}
	return "outputs"
}

// Bank describes one register: where it lives and how many channels it packs.
type Bank struct {
	Address uint16
	Count   int
}

// Snapshot is the decoded state produced by one successful cycle.
type Snapshot struct {
	At             time.Time `json:"stamp"`
	DigitalInputs  []bool    `json:"digital_inputs"`
	DigitalOutputs []bool    `json:"digital_outputs"`
}

// Sink receives snapshots. Delivery only: no state, no interpretation.
type Sink interface {
	Publish(s Snapshot) error
}

// Device is the part of the session the poller needs.
type Device interface {
	Exchange(fn func(tx session.Tx) error) error
}

// CycleState is carried from one cycle to the next by the caller.
// A fresh value starts a new measurement run (e.g. after reconnect).
type CycleState struct {
	PrevTotal time.Duration
	Measured  bool
}
