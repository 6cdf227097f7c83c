// internal/poller/builder.go
package poller

import (
	"github.com/charmbracelet/log"

	cfg "github.com/tamzrod/modbus-io/internal/config"
	"github.com/tamzrod/modbus-io/internal/status"
)

// ConfigFrom maps the validated file config onto the poller geometry.
func ConfigFrom(c *cfg.Config) Config {
	return Config{
		Interval: c.Interval(),
		Inputs: Bank{
			Address: c.IO.DigitalInputsAddr,
			Count:   c.IO.DigitalInputs,
		},
		Outputs: Bank{
			Address: c.IO.DigitalOutputsAddr,
			Count:   c.IO.DigitalOutputs,
		},
		BigEndian: c.Device.BigEndian,
	}
}

// Build constructs a Poller from file config around a shared cache.
// The device session lifecycle stays with the supervisor.
func Build(c *cfg.Config, cache *Cache, dev Device, sink Sink, diag *status.Diagnostics, logger *log.Logger) (*Poller, error) {
	pc := ConfigFrom(c)
	pc.Cache = cache
	return New(pc, dev, sink, diag, logger)
}
