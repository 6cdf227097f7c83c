// internal/config/load_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse_OverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
device:
  address: 10.0.0.7
  big_endian: true
io:
  digital_outputs: 16
poll:
  frequency_hz: 2.5
mqtt:
  broker: mqtt://broker:1883
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.Device.Address != "10.0.0.7" || !cfg.Device.BigEndian {
		t.Fatalf("device not decoded: %+v", cfg.Device)
	}
	if cfg.Device.Port != 502 || cfg.Device.UnitID != 1 {
		t.Fatalf("defaults lost: %+v", cfg.Device)
	}
	if cfg.IO.DigitalOutputs != 16 || cfg.IO.DigitalInputs != 8 {
		t.Fatalf("io: %+v", cfg.IO)
	}
	if cfg.IO.DigitalOutputsAddr != 100 {
		t.Fatalf("outputs addr default lost: %d", cfg.IO.DigitalOutputsAddr)
	}
	if cfg.Poll.FrequencyHz != 2.5 {
		t.Fatalf("frequency: %v", cfg.Poll.FrequencyHz)
	}
	if cfg.MQTT.ClientID != "modbus_io" {
		t.Fatalf("client id default lost: %q", cfg.MQTT.ClientID)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if *cfg != Default() {
		t.Fatalf("empty document should yield defaults")
	}
}

func TestParse_UnknownKey(t *testing.T) {
	if _, err := Parse([]byte("device:\n  adress: x\n")); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("level: %q", cfg.Log.Level)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParse_StatusMemory(t *testing.T) {
	cfg, err := Parse([]byte(`
status_memory:
  endpoint: 10.0.0.9:502
  base_slot: 3
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sm := cfg.StatusMemory
	if sm.Endpoint != "10.0.0.9:502" || sm.BaseSlot != 3 || sm.UnitID != 1 || sm.DeviceName != "modbus_io" {
		t.Fatalf("status memory: %+v", sm)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
