// internal/publish/latest.go
package publish

import (
	"sync/atomic"

	"github.com/tamzrod/modbus-io/internal/poller"
)

// Latest keeps the most recent snapshot for pull-based readers.
type Latest struct {
	snap atomic.Pointer[poller.Snapshot]
}

func (l *Latest) Publish(s poller.Snapshot) error {
	// Own copies: the caller may reuse its slices.
	c := poller.Snapshot{
		At:             s.At,
		DigitalInputs:  append([]bool(nil), s.DigitalInputs...),
		DigitalOutputs: append([]bool(nil), s.DigitalOutputs...),
	}
	l.snap.Store(&c)
	return nil
}

// Get returns the last snapshot, or false before the first one.
func (l *Latest) Get() (poller.Snapshot, bool) {
	p := l.snap.Load()
	if p == nil {
		return poller.Snapshot{}, false
	}
	return *p, true
}
