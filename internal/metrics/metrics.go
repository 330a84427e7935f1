// ABOUTME: Prometheus instrumentation for the oEmbed endpoint and the WordPress.org client.
// ABOUTME: Collectors are registered once on the default registry and exposed via Handler.

package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type collectors struct {
	oembedRequests *prometheus.CounterVec
	lookups        *prometheus.HistogramVec
}

var (
	once sync.Once
	inst *collectors
)

func global() *collectors {
	once.Do(func() {
		inst = &collectors{
			oembedRequests: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "wpembed",
				Subsystem: "oembed",
				Name:      "requests_total",
				Help:      "oEmbed requests handled, labeled by result",
			}, []string{"result"}),
			lookups: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "wpembed",
				Subsystem: "wporg",
				Name:      "lookup_duration_seconds",
				Help:      "Duration of WordPress.org plugin-information calls, labeled by outcome",
				Buckets:   prometheus.DefBuckets,
			}, []string{"outcome"}),
		}
	})
	return inst
}

// RecordOEmbed counts one handled oEmbed request.
func RecordOEmbed(result string) {
	global().oembedRequests.WithLabelValues(result).Inc()
}

// ObserveLookup records the duration of one remote plugin-information call.
func ObserveLookup(outcome string, d time.Duration) {
	global().lookups.WithLabelValues(outcome).Observe(d.Seconds())
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	global()
	return promhttp.Handler()
}
