// internal/config/normalize.go
package config

import (
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// Topics are joined with "/"; keep the prefix bare.
	cfg.MQTT.TopicPrefix = strings.Trim(cfg.MQTT.TopicPrefix, "/")
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "modbus_io"
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
}

// StatusTimeout is the status memory transport timeout.
func (c *Config) StatusTimeout() time.Duration {
	return time.Duration(c.StatusMemory.TimeoutMs) * time.Millisecond
}

// LogLevel parses the normalized log level.
func (c *Config) LogLevel() (log.Level, error) {
	return log.ParseLevel(c.Log.Level)
}

// Interval is the poll period derived from the single configured frequency.
func (c *Config) Interval() time.Duration {
	return time.Duration(float64(time.Second) / c.Poll.FrequencyHz)
}

// Timeout is the transport timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Device.TimeoutMs) * time.Millisecond
}

// Backoff is the fixed wait between reconnect attempts.
func (c *Config) Backoff() time.Duration {
	return time.Duration(c.Poll.ReconnectBackoffMs) * time.Millisecond
}
