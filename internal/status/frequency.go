// internal/status/frequency.go
package status

import "time"

// frequency estimates the tick rate over the last FrequencyWindow ticks.
// Not safe for concurrent use; Diagnostics guards it.
type frequency struct {
	desired float64
	ticks   []time.Time
}

func newFrequency(desired float64) *frequency {
	return &frequency{desired: desired, ticks: make([]time.Time, 0, FrequencyWindow)}
}

func (f *frequency) tick(t time.Time) {
	if len(f.ticks) == FrequencyWindow {
		copy(f.ticks, f.ticks[1:])
		f.ticks = f.ticks[:FrequencyWindow-1]
	}
	f.ticks = append(f.ticks, t)
}

func (f *frequency) clear() {
	f.ticks = f.ticks[:0]
}

// measured returns 0 until two ticks are known.
func (f *frequency) measured() float64 {
	if len(f.ticks) < 2 {
		return 0
	}
	span := f.ticks[len(f.ticks)-1].Sub(f.ticks[0])
	if span <= 0 {
		return 0
	}
	return float64(len(f.ticks)-1) / span.Seconds()
}

func (f *frequency) ok() bool {
	hz := f.measured()
	if hz == 0 {
		return false
	}
	return hz >= f.desired*(1-FrequencyTolerance) && hz <= f.desired*(1+FrequencyTolerance)
}
