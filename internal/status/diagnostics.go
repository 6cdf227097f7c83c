// internal/status/diagnostics.go
package status

import (
	"errors"
	"sync"
	"time"
)

// Diagnostics accumulates process-lifetime health counters.
// Counters only grow; they reset with the process.
type Diagnostics struct {
	mu sync.Mutex

	started        bool
	running        bool
	stopped        bool
	errorCount     uint64
	slowCount      uint64
	lastSlowReason string
	slowPending    bool
	lastErrorCode  uint16
	freq           *frequency
}

// New creates an accumulator expecting ticks at desiredHz.
func New(desiredHz float64) *Diagnostics {
	return &Diagnostics{freq: newFrequency(desiredHz)}
}

// SetRunning records the connection state. Going up clears the frequency window.
func (d *Diagnostics) SetRunning(running bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if running && !d.running {
		d.freq.clear()
	}
	if running {
		d.started = true
		d.stopped = false
	}
	d.running = running
}

// Stop marks an orderly shutdown.
func (d *Diagnostics) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	d.stopped = true
}

// RecordError counts one failed operation and keeps its code.
func (d *Diagnostics) RecordError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errorCount++
	d.lastErrorCode = errorCode(err)
}

// RecordSlow counts one slow phase.
func (d *Diagnostics) RecordSlow(reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slowCount++
	d.lastSlowReason = reason
	d.slowPending = true
}

// Tick records one completed cycle for the frequency estimate.
func (d *Diagnostics) Tick(t time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.freq.tick(t)
}

// Snapshot returns the counters without consuming the pending slow flag.
func (d *Diagnostics) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

// Report builds the pull surface. A slow flag is reported once, then cleared.
func (d *Diagnostics) Report() Report {
	d.mu.Lock()
	defer d.mu.Unlock()

	r := Report{
		Snapshot:    d.snapshotLocked(),
		DesiredHz:   d.freq.desired,
		FrequencyOK: d.freq.ok(),
	}
	r.Health, r.Level, r.Summary = d.classifyLocked()
	d.slowPending = false

	return r
}

// Health peeks at the current health code. Unlike Report it leaves the slow flag pending.
func (d *Diagnostics) Health() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, _, _ := d.classifyLocked()
	return h
}

func (d *Diagnostics) classifyLocked() (uint16, Level, string) {
	switch {
	case d.stopped:
		return HealthDisabled, LevelError, "modbus_io is stopped"
	case !d.running && !d.started:
		return HealthUnknown, LevelError, "modbus_io is stopped"
	case !d.running:
		return HealthError, LevelError, "modbus_io is stopped"
	case d.slowPending:
		return HealthStale, LevelWarn, "Excessive delay"
	default:
		return HealthOK, LevelOK, "modbus_io is running"
	}
}

func (d *Diagnostics) snapshotLocked() Snapshot {
	return Snapshot{
		Running:        d.running,
		ErrorCount:     d.errorCount,
		SlowCount:      d.slowCount,
		LastSlowReason: d.lastSlowReason,
		LastErrorCode:  d.lastErrorCode,
		MeasuredHz:     d.freq.measured(),
	}
}

// errorCode extracts a best-effort uint16 code from an error without assuming concrete types.
// If the error does not expose a code, returns 1 (generic error).
func errorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	type coderA interface{ Code() uint16 }
	type coderB interface{ ErrorCode() uint16 }

	var a coderA
	if errors.As(err, &a) {
		return a.Code()
	}
	var b coderB
	if errors.As(err, &b) {
		return b.ErrorCode()
	}

	return 1
}
