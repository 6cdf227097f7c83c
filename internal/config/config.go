// internal/config/config.go
package config

type Config struct {
	Device DeviceConfig `yaml:"device"`
	IO     IOConfig     `yaml:"io"`
	Poll   PollConfig   `yaml:"poll"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	HTTP   HTTPConfig   `yaml:"http"`
	Log    LogConfig    `yaml:"log"`

	StatusMemory StatusMemoryConfig `yaml:"status_memory"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	Address   string `yaml:"address"`
	Port      int    `yaml:"port"`
	UnitID    uint8  `yaml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms"`
	BigEndian bool   `yaml:"big_endian"` // device byte order differs from host
	Trace     bool   `yaml:"trace"`      // log raw frames at debug level
}

// ---- IO GEOMETRY ----

type IOConfig struct {
	DigitalInputs      int    `yaml:"digital_inputs"`
	DigitalOutputs     int    `yaml:"digital_outputs"`
	DigitalInputsAddr  uint16 `yaml:"digital_inputs_addr"`
	DigitalOutputsAddr uint16 `yaml:"digital_outputs_addr"`
}

// ---- POLL ----

type PollConfig struct {
	FrequencyHz        float64 `yaml:"frequency_hz"` // also the expected rate of the frequency diagnostic
	ReconnectBackoffMs int     `yaml:"reconnect_backoff_ms"`
}

// ---- MQTT (optional) ----

type MQTTConfig struct {
	Broker      string `yaml:"broker"` // empty disables the bridge
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// ---- HTTP (optional) ----

type HTTPConfig struct {
	Listen string `yaml:"listen"` // empty disables the server
}

// ---- STATUS MEMORY (optional) ----

// StatusMemoryConfig mirrors device health into a holding register block
// on a Modbus memory server. Empty endpoint disables it.
type StatusMemoryConfig struct {
	Endpoint   string `yaml:"endpoint"` // host:port
	UnitID     uint8  `yaml:"unit_id"`
	BaseSlot   uint16 `yaml:"base_slot"` // block starts at base_slot * 16
	DeviceName string `yaml:"device_name"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

// ---- LOG ----

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
