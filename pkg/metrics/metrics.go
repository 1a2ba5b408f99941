package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Node resource metrics, one gauge set per compute node.
	FreeCores = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cirrus_node_free_cores",
			Help: "Unreserved CPU cores on a compute node",
		},
		[]string{"node"},
	)

	FreeRAMBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cirrus_node_free_ram_bytes",
			Help: "Unreserved RAM bytes on a compute node",
		},
		[]string{"node"},
	)

	FreeDiskBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cirrus_node_free_disk_bytes",
			Help: "Unreserved disk bytes on a compute node",
		},
		[]string{"node"},
	)

	FreeHeadDiskBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cirrus_head_free_disk_bytes",
			Help: "Unreserved disk bytes in the head node's image cache",
		},
	)

	// Invocation lifecycle metrics.
	InvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cirrus_invocations_total",
			Help: "Total number of invocations by function and outcome (success or a FailureCause)",
		},
		[]string{"function", "outcome"},
	)

	InvocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cirrus_invocation_duration_seconds",
			Help:    "Simulated running time (start to completion) of successful invocations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"function"},
	)

	SchedulingPassDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cirrus_scheduling_pass_duration_seconds",
			Help:    "Wall-clock time taken by a single Scheduler.Schedule call",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Image pipeline stage metrics, in simulated seconds.
	ImageDownloadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cirrus_image_download_duration_seconds",
			Help:    "Simulated time to download an image from the repository to head disk",
			Buckets: prometheus.DefBuckets,
		},
	)

	ImageCopyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cirrus_image_copy_duration_seconds",
			Help:    "Simulated time to copy an image from head disk to a compute node's disk",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"node"},
	)

	ImageLoadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cirrus_image_load_duration_seconds",
			Help:    "Simulated time to load an image from a compute node's disk into its RAM",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"node"},
	)
)

func init() {
	prometheus.MustRegister(FreeCores)
	prometheus.MustRegister(FreeRAMBytes)
	prometheus.MustRegister(FreeDiskBytes)
	prometheus.MustRegister(FreeHeadDiskBytes)
	prometheus.MustRegister(InvocationsTotal)
	prometheus.MustRegister(InvocationDuration)
	prometheus.MustRegister(SchedulingPassDuration)
	prometheus.MustRegister(ImageDownloadDuration)
	prometheus.MustRegister(ImageCopyDuration)
	prometheus.MustRegister(ImageLoadDuration)
}

// Handler returns the Prometheus HTTP handler for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncInvocationOutcome records one invocation ending with the given outcome
// ("success" or a types.FailureCause string).
func IncInvocationOutcome(function, outcome string) {
	InvocationsTotal.WithLabelValues(function, outcome).Inc()
}

// ObserveInvocationDuration records a successful invocation's simulated
// running time.
func ObserveInvocationDuration(function string, seconds float64) {
	InvocationDuration.WithLabelValues(function).Observe(seconds)
}

// ObserveImageCopyDuration records a simulated image copy duration for node.
func ObserveImageCopyDuration(node string, seconds float64) {
	ImageCopyDuration.WithLabelValues(node).Observe(seconds)
}

// ObserveImageLoadDuration records a simulated image load duration for node.
func ObserveImageLoadDuration(node string, seconds float64) {
	ImageLoadDuration.WithLabelValues(node).Observe(seconds)
}

// Timer is a helper for timing real (wall-clock) operations, such as a
// scheduling pass — it is not used for simulated durations, which are known
// exactly from the platform model and recorded directly via the Observe*
// helpers above.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed wall-clock time to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed wall-clock time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
