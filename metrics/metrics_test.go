package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestNewRegistersAndIncrements(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SegmentsFlushedTotal.Inc()
	m.SegmentsFlushedTotal.Inc()
	require.Equal(t, 2.0, counterValue(t, m.SegmentsFlushedTotal))

	m.CleanerRunsTotal.WithLabelValues("removed").Inc()
	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}
