// internal/session/errors.go
package session

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/goburrow/modbus"
)

// ErrNotConnected is wrapped by IoError when an exchange is attempted while Disconnected.
var ErrNotConnected = errors.New("session: not connected")

// CodeGeneric is reported when a failure carries no device or platform code.
const CodeGeneric uint16 = 1

// ConnectError reports a failed dial. The session stays Disconnected.
type ConnectError struct {
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("modbus connect %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// IoError reports a failed exchange over an established connection.
// Code is the Modbus exception code, the platform errno, or CodeGeneric.
type IoError struct {
	Op      string
	Address uint16
	Code    uint16
	Err     error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("modbus %s addr=%d code=%d: %v", e.Op, e.Address, e.Code, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// ErrorCode exposes Code to callers that only know the error interface.
func (e *IoError) ErrorCode() uint16 { return e.Code }

func newIoError(op string, addr uint16, err error) *IoError {
	return &IoError{Op: op, Address: addr, Code: codeOf(err), Err: err}
}

// codeOf extracts a best-effort uint16 code without assuming a concrete transport.
func codeOf(err error) uint16 {
	var me *modbus.ModbusError
	if errors.As(err, &me) {
		return uint16(me.ExceptionCode)
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return uint16(errno)
	}
	return CodeGeneric
}
