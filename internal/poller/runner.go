// internal/poller/runner.go
package poller

import (
	"context"
	"time"
)

// Run polls immediately, then once per tick, until ctx is done or a cycle fails.
// One goroutine owns the loop. No overlap. No retries: the caller reconnects.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	var cs CycleState
	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := p.PollOnce(&cs); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
