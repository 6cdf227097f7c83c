// internal/publish/publish.go
package publish

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/modbus-io/internal/poller"
)

// Target is one named snapshot destination.
type Target struct {
	Name string
	Sink poller.Sink
}

type fanout struct {
	targets []Target
}

// Fanout delivers every snapshot to all targets in order.
// A failing target does not stop delivery to the others.
func Fanout(targets ...Target) poller.Sink {
	return &fanout{targets: targets}
}

func (f *fanout) Publish(s poller.Snapshot) error {
	var errs []string

	for _, tgt := range f.targets {
		if tgt.Sink == nil {
			errs = append(errs, fmt.Sprintf("publish: target %s has no sink", tgt.Name))
			continue
		}
		if err := tgt.Sink.Publish(s); err != nil {
			errs = append(errs, fmt.Sprintf("publish: target=%s err=%v", tgt.Name, err))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}
	return nil
}
