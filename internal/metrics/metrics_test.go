// internal/metrics/metrics_test.go
package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/modbus-io/internal/status"
)

type fixed status.Snapshot

func (f fixed) Snapshot() status.Snapshot { return status.Snapshot(f) }

func TestRegister_Gather(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg, fixed{
		Running:    true,
		ErrorCount: 3,
		SlowCount:  2,
		MeasuredHz: 9.5,
	}))

	families, err := reg.Gather()
	require.NoError(t, err)

	got := map[string]float64{}
	for _, mf := range families {
		m := mf.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			got[mf.GetName()] = m.GetCounter().GetValue()
		case m.GetGauge() != nil:
			got[mf.GetName()] = m.GetGauge().GetValue()
		}
	}

	require.Equal(t, map[string]float64{
		"modbus_io_errors_total":      3,
		"modbus_io_slow_cycles_total": 2,
		"modbus_io_running":           1,
		"modbus_io_poll_frequency_hz": 9.5,
	}, got)
}

func TestRegister_Twice(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg, fixed{}))
	require.Error(t, Register(reg, fixed{}))
}

func TestHandler_ReadsLiveDiagnostics(t *testing.T) {
	diag := status.New(10)
	h, err := Handler(diag)
	require.NoError(t, err)

	diag.SetRunning(true)
	diag.RecordSlow(status.SlowPublish)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)

	text := string(body)
	require.True(t, strings.Contains(text, "modbus_io_running 1"), text)
	require.True(t, strings.Contains(text, "modbus_io_slow_cycles_total 1"), text)
}
