// internal/writer/mirror.go
package writer

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tamzrod/modbus-io/internal/status"
)

// Source is the diagnostics view the mirror reads. *status.Diagnostics satisfies it.
type Source interface {
	Health() uint16
	Snapshot() status.Snapshot
}

// Mirror copies device health into status memory once per second.
type Mirror struct {
	sw     *StatusWriter
	src    Source
	logger *log.Logger

	mu             sync.Mutex
	secondsInError uint16
}

func NewMirror(sw *StatusWriter, src Source, logger *log.Logger) *Mirror {
	return &Mirror{sw: sw, src: src, logger: logger}
}

// Run writes the block at start, then every second until ctx is done.
func (m *Mirror) Run(ctx context.Context) {
	m.write(false)

	t := time.NewTicker(time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.write(true)
		}
	}
}

// Sync writes the current block immediately, without counting a second.
func (m *Mirror) Sync() error {
	return m.sw.WriteStatus(m.block(false))
}

func (m *Mirror) write(tick bool) {
	if err := m.sw.WriteStatus(m.block(tick)); err != nil {
		m.logger.Warn("status write failed", "err", err)
	}
}

// block builds the live slots. seconds_in_error counts while the device is
// not healthy, saturates, and resets on recovery.
func (m *Mirror) block(tick bool) Block {
	m.mu.Lock()
	defer m.mu.Unlock()

	health := m.src.Health()
	snap := m.src.Snapshot()

	switch health {
	case status.HealthOK, status.HealthStale:
		m.secondsInError = 0
	default:
		if tick && m.secondsInError < 0xFFFF {
			m.secondsInError++
		}
	}

	return Block{
		Health:         health,
		LastErrorCode:  snap.LastErrorCode,
		SecondsInError: m.secondsInError,
		ErrorCount:     clamp16(snap.ErrorCount),
		SlowCount:      clamp16(snap.SlowCount),
	}
}
