// Package metrics wraps the prometheus instruments exposed by the audit
// core. Construct once with a registerer and pass by reference; tests use a
// private registry so parallel packages do not collide.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	versionsAppended prometheus.Counter
	accessEvents     *prometheus.CounterVec
	decryptFailures  prometheus.Counter
	exportsTotal     *prometheus.CounterVec
	entriesPurged    prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		versionsAppended: factory.NewCounter(prometheus.CounterOpts{
			Name: "audita_versions_appended_total",
			Help: "Total number of version entries appended",
		}),
		accessEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audita_access_events_total",
			Help: "Total number of protected-data access events recorded",
		}, []string{"action"}),
		decryptFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "audita_decrypt_failures_total",
			Help: "Total number of decryptions that fell back to the masked preview",
		}),
		exportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audita_exports_total",
			Help: "Total number of version-history exports",
		}, []string{"format"}),
		entriesPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "audita_entries_purged_total",
			Help: "Total number of entries removed by retention cleanup",
		}),
	}
}

func (m *Metrics) VersionAppended() { m.versionsAppended.Inc() }

func (m *Metrics) AccessRecorded(action string) { m.accessEvents.WithLabelValues(action).Inc() }

func (m *Metrics) DecryptFailure() { m.decryptFailures.Inc() }

func (m *Metrics) ExportDone(format string) { m.exportsTotal.WithLabelValues(format).Inc() }

func (m *Metrics) Purged(n int) { m.entriesPurged.Add(float64(n)) }

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
