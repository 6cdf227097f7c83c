// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamzrod/modbus-io/internal/status"
)

const namespace = "modbus_io"

// Source is the counter state the collectors read on every scrape.
type Source interface {
	Snapshot() status.Snapshot
}

// Register adds the diagnostics collectors to reg.
// Values are pulled at scrape time; nothing is pushed from the poll loop.
func Register(reg prometheus.Registerer, src Source) error {
	collectors := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Failed device reads and writes.",
		}, func() float64 { return float64(src.Snapshot().ErrorCount) }),

		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slow_cycles_total",
			Help:      "Poll cycles that exceeded the nominal period, per phase.",
		}, func() float64 { return float64(src.Snapshot().SlowCount) }),

		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running",
			Help:      "1 while the device is connected and polled.",
		}, func() float64 {
			if src.Snapshot().Running {
				return 1
			}
			return 0
		}),

		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "poll_frequency_hz",
			Help:      "Measured publish rate over the last ticks.",
		}, func() float64 { return src.Snapshot().MeasuredHz }),
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler builds a private registry over src and serves it.
func Handler(src Source) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	if err := Register(reg, src); err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}
