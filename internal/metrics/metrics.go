// Package metrics implements C7, the Metrics Surface: a read-only,
// prometheus-backed export of engine activity with no coupling into the
// core's control flow. The scheduler and engine call into
// this package's Recorder through scheduler.Hooks; nothing downstream of
// metrics ever feeds back into a scheduling decision.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kestrel-labs/pageforge/internal/types"
)

// Recorder bundles every metric this package exports, registered against a
// private registry so multiple Recorders (e.g. in tests) never collide on
// prometheus's global default registry.
type Recorder struct {
	registry *prometheus.Registry

	URLsByStatus       *prometheus.GaugeVec
	LiveTabs           prometheus.Gauge
	PageDuration       *prometheus.HistogramVec
	PageContentSize    *prometheus.HistogramVec
	ProcessorTransitions *prometheus.CounterVec
	Errors             *prometheus.CounterVec
	SlowRequests       prometheus.Counter
	FailedRequests     prometheus.Counter
	PDFTitleFallback   prometheus.Counter
}

// New builds and registers the metric set.
func New() *Recorder {
	reg := prometheus.NewRegistry()

	r := &Recorder{
		registry: reg,
		URLsByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pageforge_urls_by_status",
			Help: "Number of Frontier URLs currently in each status.",
		}, []string{"status"}),
		LiveTabs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pageforge_live_tabs",
			Help: "Number of browser tabs currently open and being processed.",
		}),
		PageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pageforge_page_duration_seconds",
			Help:    "Wall-clock time spent processing a single page, from tab open to retire.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status", "domain"}),
		PageContentSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pageforge_page_content_size_bytes",
			Help:    "Size of the isolated core content, as measured by ContentFinder.",
			Buckets: prometheus.ExponentialBuckets(128, 4, 10),
		}, []string{"status", "domain"}),
		ProcessorTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pageforge_processor_transitions_total",
			Help: "Processor state transitions, labeled by processor name, resulting state, and outcome.",
		}, []string{"processor_name", "state", "result"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pageforge_errors_total",
			Help: "Errors observed by component, labeled by a coarse error-type tag.",
		}, []string{"error_type", "component"}),
		SlowRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pageforge_slow_requests_total",
			Help: "Requests observed slower than the configured slow-request threshold.",
		}),
		FailedRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pageforge_failed_requests_total",
			Help: "Requests that failed before a response arrived.",
		}),
		PDFTitleFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pageforge_pdf_title_fallback_total",
			Help: "PDFExporter runs admitted via the tab-title fallback rather than core-content readiness.",
		}),
	}

	reg.MustRegister(
		r.URLsByStatus, r.LiveTabs, r.PageDuration, r.PageContentSize,
		r.ProcessorTransitions, r.Errors, r.SlowRequests, r.FailedRequests, r.PDFTitleFallback,
	)
	return r
}

// Handler returns an http.Handler serving this Recorder's metrics in the
// Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveSnapshot pushes a full Frontier census into the status gauge.
func (r *Recorder) ObserveSnapshot(snapshot map[types.URLStatus]int) {
	for _, status := range types.AllStatuses() {
		r.URLsByStatus.WithLabelValues(status.String()).Set(float64(snapshot[status]))
	}
}

// ObserveLiveTabs records the current live-tab count.
func (r *Recorder) ObserveLiveTabs(n int) {
	r.LiveTabs.Set(float64(n))
}

// ObservePage records one page's completion duration and content size.
func (r *Recorder) ObservePage(status types.URLStatus, domain string, duration time.Duration, contentBytes int) {
	r.PageDuration.WithLabelValues(status.String(), domain).Observe(duration.Seconds())
	if contentBytes > 0 {
		r.PageContentSize.WithLabelValues(status.String(), domain).Observe(float64(contentBytes))
	}
}

// ObserveProcessorTransition records one processor state transition.
func (r *Recorder) ObserveProcessorTransition(processorName string, state types.ProcessorState, result string) {
	r.ProcessorTransitions.WithLabelValues(processorName, state.String(), result).Inc()
}

// ObserveError records one error, coarsely typed.
func (r *Recorder) ObserveError(errorType, component string) {
	r.Errors.WithLabelValues(errorType, component).Inc()
}
