// internal/status/constants.go
package status

// ---- HEALTH CODES ----

// HealthUnknown represents the boot state, before the first connection.
const HealthUnknown uint16 = 0

// HealthOK represents a connected device polled on time.
const HealthOK uint16 = 1

// HealthError represents a lost or never established connection after start.
const HealthError uint16 = 2

// HealthStale represents a connected device whose cycles ran slow since the last report.
const HealthStale uint16 = 3

// HealthDisabled represents a supervisor that has been shut down.
const HealthDisabled uint16 = 4

// ---- SUMMARY LEVELS ----

// Level mirrors the usual diagnostic levels: ok, warn, error.
type Level uint8

const (
	LevelOK    Level = 0
	LevelWarn  Level = 1
	LevelError Level = 2
)

func (l Level) String() string {
	switch l {
	case LevelOK:
		return "ok"
	case LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

// MarshalText lets reports carry the level by name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// ---- SLOW REASONS ----

const (
	SlowFullCycle = "full cycle slow"
	SlowGathering = "gathering data slow"
	SlowPublish   = "publishing slow"
)

// ---- FREQUENCY MONITOR ----

// FrequencyWindow is the number of tick timestamps kept for the rate estimate.
const FrequencyWindow = 5

// FrequencyTolerance is the accepted relative deviation from the desired rate.
const FrequencyTolerance = 0.05
