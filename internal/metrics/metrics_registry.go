// Package metrics provides process-local metrics mirrored into Prometheus.
package metrics

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/kopia/treediff/internal/logging"
)

var log = logging.Module("metrics")

// Registry groups together all metrics of a single process component.
// All methods are safe to call on a nil *Registry.
type Registry struct {
	mu sync.Mutex

	allCounters              map[string]*Counter
	allGauges                map[string]*Gauge
	allDurationDistributions map[string]*DurationDistribution
}

// NewRegistry returns a new, empty registry.
func NewRegistry() *Registry {
	return &Registry{
		allCounters:              map[string]*Counter{},
		allGauges:                map[string]*Gauge{},
		allDurationDistributions: map[string]*DurationDistribution{},
	}
}

func labelsSuffix(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	var parts []string

	for k, v := range labels {
		parts = append(parts, k+":"+v)
	}

	sort.Strings(parts)

	return "[" + strings.Join(parts, ";") + "]"
}

// Log emits the momentary state of all metrics to the debug log.
func (r *Registry) Log(ctx context.Context) {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for n, c := range r.allCounters {
		log(ctx).Debugw("COUNTER", "name", n, "value", c.Snapshot())
	}

	for n, g := range r.allGauges {
		log(ctx).Debugw("GAUGE", "name", n, "value", g.Snapshot(false))
	}

	for n, d := range r.allDurationDistributions {
		s := d.Snapshot()
		log(ctx).Debugw("DURATION-DISTRIBUTION", "name", n, "cnt", s.Count, "sum", s.Sum, "min", s.Min, "max", s.Max)
	}
}
