package metrics_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/kopia/treediff/internal/metrics"
	"github.com/kopia/treediff/internal/testlogging"
)

func mustFindMetric(t *testing.T, wantName string, wantType io_prometheus_client.MetricType, wantLabels map[string]string) *io_prometheus_client.Metric {
	t.Helper()

	mf, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	for _, f := range mf {
		if f.GetName() != wantName || f.GetType() != wantType {
			continue
		}

		for _, l := range f.GetMetric() {
			if len(l.GetLabel()) != len(wantLabels) {
				continue
			}

			found := true

			for _, lab := range l.GetLabel() {
				if wantLabels[lab.GetName()] != lab.GetValue() {
					found = false
				}
			}

			if found {
				return l
			}
		}
	}

	require.Failf(t, "metric not found", "%v", wantName)

	return nil
}

func TestNilRegistry(t *testing.T) {
	var r *metrics.Registry

	r.CounterInt64("x", "help", nil).Add(1)
	r.GaugeInt64("y", "help", nil).Set(1)
	r.DurationDistribution("z", "help", nil).Observe(time.Second)
	r.Log(context.Background())

	require.Zero(t, r.CounterInt64("x", "help", nil).Snapshot())
}

func TestCounter(t *testing.T) {
	r := metrics.NewRegistry()

	c := r.CounterInt64("test_counter1", "help", map[string]string{"kind": "a", "side": "new"})
	c.Add(3)
	c.Add(4)

	require.Same(t, c, r.CounterInt64("test_counter1", "help", map[string]string{"side": "new", "kind": "a"}))
	require.EqualValues(t, 7, c.Snapshot())

	m := mustFindMetric(t, "treediff_test_counter1_total", io_prometheus_client.MetricType_COUNTER, map[string]string{"kind": "a", "side": "new"})
	require.InDelta(t, 7.0, m.GetCounter().GetValue(), 0.001)

	r.Log(testlogging.Context(t))
}

func TestGauge(t *testing.T) {
	r := metrics.NewRegistry()

	g := r.GaugeInt64("test_gauge1", "help", nil)
	g.Set(10)
	g.Add(-3)

	require.EqualValues(t, 7, g.Snapshot(true))
	require.EqualValues(t, 0, g.Snapshot(false))

	m := mustFindMetric(t, "treediff_test_gauge1", io_prometheus_client.MetricType_GAUGE, nil)
	require.InDelta(t, 7.0, m.GetGauge().GetValue(), 0.001)
}

func TestDurationDistribution(t *testing.T) {
	r := metrics.NewRegistry()

	d := r.DurationDistribution("test_duration1", "help", nil)
	d.Observe(3 * time.Second)
	d.Observe(1 * time.Second)
	d.Observe(2 * time.Second)

	s := d.Snapshot()
	require.EqualValues(t, 3, s.Count)
	require.Equal(t, time.Second, s.Min)
	require.Equal(t, 3*time.Second, s.Max)
	require.Equal(t, 2*time.Second, s.Mean())

	m := mustFindMetric(t, "treediff_test_duration1_seconds", io_prometheus_client.MetricType_HISTOGRAM, nil)
	require.EqualValues(t, 3, m.GetHistogram().GetSampleCount())
}
