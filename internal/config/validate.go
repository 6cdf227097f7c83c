// internal/config/validate.go
package config

import (
	"fmt"
	"net"
	"net/url"

	"github.com/charmbracelet/log"
)

// MaxChannels is the width of one register.
const MaxChannels = 16

// MaxStatusBaseSlot keeps a 16-register status block inside the address space.
const MaxStatusBaseSlot = 0xFFFF / 16

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	// ------------------------------------------------------------
	// DEVICE
	// ------------------------------------------------------------

	if cfg.Device.Address == "" {
		return fmt.Errorf("device.address is required")
	}
	if cfg.Device.Port < 1 || cfg.Device.Port > 65535 {
		return fmt.Errorf("device.port %d out of range [1, 65535]", cfg.Device.Port)
	}
	if cfg.Device.TimeoutMs <= 0 {
		return fmt.Errorf("device.timeout_ms must be > 0")
	}

	// ------------------------------------------------------------
	// IO GEOMETRY
	// ------------------------------------------------------------

	if cfg.IO.DigitalInputs < 1 || cfg.IO.DigitalInputs > MaxChannels {
		return fmt.Errorf("io.digital_inputs %d out of range [1, %d]", cfg.IO.DigitalInputs, MaxChannels)
	}
	if cfg.IO.DigitalOutputs < 1 || cfg.IO.DigitalOutputs > MaxChannels {
		return fmt.Errorf("io.digital_outputs %d out of range [1, %d]", cfg.IO.DigitalOutputs, MaxChannels)
	}
	if cfg.IO.DigitalInputsAddr == cfg.IO.DigitalOutputsAddr {
		return fmt.Errorf(
			"io: inputs and outputs share register %d",
			cfg.IO.DigitalInputsAddr,
		)
	}

	// ------------------------------------------------------------
	// POLL
	// ------------------------------------------------------------

	if cfg.Poll.FrequencyHz <= 0 {
		return fmt.Errorf("poll.frequency_hz must be > 0")
	}
	if cfg.Poll.ReconnectBackoffMs < 0 {
		return fmt.Errorf("poll.reconnect_backoff_ms must be >= 0")
	}

	// ------------------------------------------------------------
	// BRIDGES (OPT-IN)
	// ------------------------------------------------------------

	if cfg.MQTT.Broker != "" {
		u, err := url.Parse(cfg.MQTT.Broker)
		if err != nil {
			return fmt.Errorf("mqtt.broker: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("mqtt.broker %q must look like mqtt://host:port", cfg.MQTT.Broker)
		}
		if cfg.MQTT.ClientID == "" {
			return fmt.Errorf("mqtt.client_id is required when mqtt.broker is set")
		}
	}

	if cfg.StatusMemory.Endpoint != "" {
		if _, _, err := net.SplitHostPort(cfg.StatusMemory.Endpoint); err != nil {
			return fmt.Errorf("status_memory.endpoint: %w", err)
		}
		if cfg.StatusMemory.BaseSlot > MaxStatusBaseSlot {
			return fmt.Errorf(
				"status_memory.base_slot %d out of range [0, %d]",
				cfg.StatusMemory.BaseSlot, MaxStatusBaseSlot,
			)
		}
		if cfg.StatusMemory.TimeoutMs <= 0 {
			return fmt.Errorf("status_memory.timeout_ms must be > 0")
		}
	}

	if _, err := log.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	return nil
}
