package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vizbridge",
			Subsystem: "session",
			Name:      "frames_sent_total",
			Help:      "Frames sent to the viewer.",
		},
		[]string{"kind"},
	)
	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vizbridge",
			Subsystem: "session",
			Name:      "frames_received_total",
			Help:      "Frames received from the viewer.",
		},
		[]string{"kind"},
	)
	queueEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vizbridge",
			Subsystem: "session",
			Name:      "queue_evictions_total",
			Help:      "Messages evicted from receive queues, by reason.",
		},
		[]string{"kind", "reason"},
	)
	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "vizbridge",
			Subsystem: "session",
			Name:      "queue_depth",
			Help:      "Current receive queue depth per message kind.",
		},
		[]string{"kind"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vizbridge",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total status API requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vizbridge",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Status API request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesSent,
			framesReceived,
			queueEvictions,
			queueDepth,
			httpRequests,
			httpDuration,
		)
	})
}

func RecordFrameSent(kind string) {
	framesSent.WithLabelValues(kind).Inc()
}

func RecordFrameReceived(kind string) {
	framesReceived.WithLabelValues(kind).Inc()
}

func RecordQueueEviction(kind, reason string) {
	queueEvictions.WithLabelValues(kind, reason).Inc()
}

func SetQueueDepth(kind string, depth int) {
	queueDepth.WithLabelValues(kind).Set(float64(depth))
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
