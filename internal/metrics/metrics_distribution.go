package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DurationDistributionState captures the momentary state of a DurationDistribution.
type DurationDistributionState struct {
	Count int64
	Sum   time.Duration
	Min   time.Duration
	Max   time.Duration
}

// Mean returns the average of all observed durations.
func (s DurationDistributionState) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}

	return s.Sum / time.Duration(s.Count)
}

// DurationDistribution tracks the distribution of observed durations.
type DurationDistribution struct {
	mu    sync.Mutex
	state DurationDistributionState

	prom prometheus.Observer
}

// Observe records a single duration.
func (d *DurationDistribution) Observe(dur time.Duration) {
	if d == nil {
		return
	}

	d.prom.Observe(dur.Seconds())

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state.Count == 0 || dur < d.state.Min {
		d.state.Min = dur
	}

	if dur > d.state.Max {
		d.state.Max = dur
	}

	d.state.Count++
	d.state.Sum += dur
}

// Snapshot returns the current state of the distribution.
func (d *DurationDistribution) Snapshot() DurationDistributionState {
	if d == nil {
		return DurationDistributionState{}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	return d.state
}

// DurationDistribution gets a persistent duration distribution with the provided name.
func (r *Registry) DurationDistribution(name, help string, labels map[string]string) *DurationDistribution {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fullName := name + labelsSuffix(labels)

	d := r.allDurationDistributions[fullName]
	if d == nil {
		d = &DurationDistribution{
			prom: getPrometheusHistogram(prometheus.HistogramOpts{
				Name:    prometheusPrefix + name + "_seconds",
				Help:    help,
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), //nolint:mnd
			}, labels),
		}

		r.allDurationDistributions[fullName] = d
	}

	return d
}
