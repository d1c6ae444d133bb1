package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamMetrics exposes counters/histograms for calls to the booking API.
type UpstreamMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func NewUpstreamMetrics(reg prometheus.Registerer) *UpstreamMetrics {
	m := &UpstreamMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total booking API calls by route and outcome",
		}, []string{"method", "route", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dashboard",
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Latency of booking API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration)
	return m
}

// ObserveRequest records one upstream call. outcome is "ok", "api_error" or
// "transport_error".
func (m *UpstreamMetrics) ObserveRequest(method, path, outcome string, seconds float64) {
	if m == nil {
		return
	}
	route := Route(path)
	m.requestsTotal.WithLabelValues(method, route, outcome).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(seconds)
}

// SettingsMetrics counts settings screen loads and saves.
type SettingsMetrics struct {
	loadsTotal *prometheus.CounterVec
	savesTotal *prometheus.CounterVec
}

func NewSettingsMetrics(reg prometheus.Registerer) *SettingsMetrics {
	m := &SettingsMetrics{
		loadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard",
			Subsystem: "settings",
			Name:      "loads_total",
			Help:      "Settings fetches by kind and whether defaults were used",
		}, []string{"kind", "degraded"}),
		savesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard",
			Subsystem: "settings",
			Name:      "saves_total",
			Help:      "Settings saves by kind and status",
		}, []string{"kind", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.loadsTotal, m.savesTotal)
	return m
}

func (m *SettingsMetrics) ObserveLoad(kind string, degraded bool) {
	if m == nil {
		return
	}
	label := "false"
	if degraded {
		label = "true"
	}
	m.loadsTotal.WithLabelValues(kind, label).Inc()
}

func (m *SettingsMetrics) ObserveSave(kind, status string) {
	if m == nil {
		return
	}
	m.savesTotal.WithLabelValues(kind, status).Inc()
}

// idParents are path segments whose next segment is an opaque identifier.
var idParents = map[string]bool{
	"stores":  true,
	"staffs":  true,
	"courses": true,
}

// Route collapses identifiers in an API path so label cardinality stays
// bounded, e.g. /stores/42/staffs/7 -> /stores/{id}/staffs/{id}.
func Route(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := 1; i < len(parts); i++ {
		if idParents[parts[i-1]] && parts[i] != "" {
			parts[i] = "{id}"
		}
	}
	return "/" + strings.Join(parts, "/")
}
