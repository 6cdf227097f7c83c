// internal/status/snapshot.go
package status

// Snapshot is the raw counter state. Reading it has no side effects.
type Snapshot struct {
	Running        bool    `json:"running"`
	ErrorCount     uint64  `json:"error_count"`
	SlowCount      uint64  `json:"slow_count"`
	LastSlowReason string  `json:"last_slow_reason"`
	LastErrorCode  uint16  `json:"last_error_code"`
	MeasuredHz     float64 `json:"measured_hz"`
}

// Report is the pull-based diagnostics surface.
type Report struct {
	Snapshot

	Health      uint16  `json:"health"`
	Level       Level   `json:"level"`
	Summary     string  `json:"summary"`
	DesiredHz   float64 `json:"desired_hz"`
	FrequencyOK bool    `json:"frequency_ok"`
}
