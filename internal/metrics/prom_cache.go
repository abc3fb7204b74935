package metrics

import (
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/exp/maps"
)

const (
	prometheusCounterSuffix = "_total"
	prometheusPrefix        = "treediff_"
)

//nolint:gochecknoglobals
var (
	promCacheMutex sync.Mutex
	promCounters   = map[string]*prometheus.CounterVec{}
	promGauges     = map[string]*prometheus.GaugeVec{}
	promHistograms = map[string]*prometheus.HistogramVec{}
)

// labelNamesAndValues returns label names in sorted order along with matching values.
func labelNamesAndValues(labels map[string]string) (names, values []string) {
	names = maps.Keys(labels)
	slices.Sort(names)

	for _, n := range names {
		values = append(values, labels[n])
	}

	return names, values
}

func getPrometheusCounter(opts prometheus.CounterOpts, labels map[string]string) prometheus.Counter {
	promCacheMutex.Lock()
	defer promCacheMutex.Unlock()

	names, values := labelNamesAndValues(labels)

	prom := promCounters[opts.Name]
	if prom == nil {
		prom = promauto.NewCounterVec(opts, names)

		promCounters[opts.Name] = prom
	}

	return prom.WithLabelValues(values...)
}

func getPrometheusGauge(opts prometheus.GaugeOpts, labels map[string]string) prometheus.Gauge {
	promCacheMutex.Lock()
	defer promCacheMutex.Unlock()

	names, values := labelNamesAndValues(labels)

	prom := promGauges[opts.Name]
	if prom == nil {
		prom = promauto.NewGaugeVec(opts, names)

		promGauges[opts.Name] = prom
	}

	return prom.WithLabelValues(values...)
}

func getPrometheusHistogram(opts prometheus.HistogramOpts, labels map[string]string) prometheus.Observer {
	promCacheMutex.Lock()
	defer promCacheMutex.Unlock()

	names, values := labelNamesAndValues(labels)

	prom := promHistograms[opts.Name]
	if prom == nil {
		prom = promauto.NewHistogramVec(opts, names)

		promHistograms[opts.Name] = prom
	}

	return prom.WithLabelValues(values...)
}
