// internal/config/load.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Default returns the factory settings of the I/O board.
func Default() Config {
	return Config{
		Device: DeviceConfig{
			Address:   "127.0.0.1",
			Port:      502,
			UnitID:    1,
			TimeoutMs: 1000,
		},
		IO: IOConfig{
			DigitalInputs:      8,
			DigitalOutputs:     8,
			DigitalInputsAddr:  0,
			DigitalOutputsAddr: 100,
		},
		Poll: PollConfig{
			FrequencyHz:        10,
			ReconnectBackoffMs: 1000,
		},
		MQTT: MQTTConfig{
			ClientID:    "modbus_io",
			TopicPrefix: "modbus_io",
		},
		Log: LogConfig{Level: "info"},
		StatusMemory: StatusMemoryConfig{
			UnitID:     1,
			DeviceName: "modbus_io",
			TimeoutMs:  1000,
		},
	}
}

// Load reads a YAML file on top of Default.
// It does not validate; call Validate then Normalize.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(b)
}

// Parse decodes YAML on top of Default. Unknown keys are rejected.
func Parse(b []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}
