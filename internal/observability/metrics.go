package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "instrctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "instrctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "instrctl",
			Subsystem: "frames",
			Name:      "sent_total",
			Help:      "Command frames handed to the transport.",
		},
		[]string{"command"},
	)
	frameBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "instrctl",
			Subsystem: "frames",
			Name:      "bytes_total",
			Help:      "Bytes of encoded command frames handed to the transport.",
		},
	)
	sendFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "instrctl",
			Subsystem: "send",
			Name:      "failures_total",
			Help:      "Send attempts rejected before or during transmission.",
		},
		[]string{"kind"},
	)
	catalogLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "instrctl",
			Subsystem: "catalog",
			Name:      "loads_total",
			Help:      "Catalog initialisations by source.",
		},
		[]string{"source"},
	)
	catalogSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "instrctl",
			Subsystem: "catalog",
			Name:      "saves_total",
			Help:      "Catalog save attempts by result.",
		},
		[]string{"result"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			framesSent, frameBytes, sendFailures,
			catalogLoads, catalogSaves,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordFrameSent(command string, size int) {
	RegisterMetrics()
	framesSent.WithLabelValues(command).Inc()
	frameBytes.Add(float64(size))
}

func RecordSendFailure(kind string) {
	RegisterMetrics()
	sendFailures.WithLabelValues(kind).Inc()
}

func RecordCatalogLoad(source string) {
	RegisterMetrics()
	catalogLoads.WithLabelValues(source).Inc()
}

func RecordCatalogSave(ok bool) {
	RegisterMetrics()
	result := "ok"
	if !ok {
		result = "error"
	}
	catalogSaves.WithLabelValues(result).Inc()
}
