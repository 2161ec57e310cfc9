// Package metrics provides Prometheus metrics for the rainstream
// detection pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns all Prometheus metrics for the pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Frame pipeline
	framesProcessed prometheus.Counter
	framesSkipped   prometheus.Counter
	framesDropped   prometheus.Counter
	tickLatency     prometheus.Histogram

	// Detectors
	detections       *prometheus.CounterVec
	detectorFailures *prometheus.CounterVec
	detectLatency    *prometheus.HistogramVec

	// Merge and classification
	mergeLatency prometheus.Histogram
	mergedCount  prometheus.Gauge
	patternLabel *prometheus.CounterVec

	// Scoring and rounds
	clicks          prometheus.Counter
	clicksRejected  prometheus.Counter
	hits            prometheus.Counter
	misses          prometheus.Counter
	collaborations  prometheus.Counter
	roundScore      prometheus.Gauge
	difficultyLevel prometheus.Gauge
	roundsCompleted prometheus.Counter

	// Click intake queue
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
}

// Global manager on a custom registry so the default Go collector
// metrics do not leak into the scrape output.
var globalManager *Manager                    //nolint:gochecknoglobals // singleton metrics manager
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry backing the singleton

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rainstream",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initialize()
	return m
}

func (m *Manager) initialize() {
	f := promauto.With(m.registry)

	m.framesProcessed = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "frames_processed_total", Help: "Frames that completed the full detect/merge/classify/score tick.",
	})
	m.framesSkipped = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "frames_skipped_total", Help: "Ticks skipped because the frame source had no data.",
	})
	m.framesDropped = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "frames_dropped_total", Help: "Frames dropped because the previous tick was still running.",
	})
	m.tickLatency = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "tick_latency_ms", Help: "End-to-end per-tick latency in milliseconds.",
		Buckets: m.histogramBuckets,
	})

	m.detections = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "detections_total", Help: "Raw detections emitted, by source detector.",
	}, []string{"source"})
	m.detectorFailures = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "detector_failures_total", Help: "Detector runs that panicked or timed out, by source.",
	}, []string{"source"})
	m.detectLatency = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "detect_latency_ms", Help: "Per-detector latency in milliseconds.",
		Buckets: m.histogramBuckets,
	}, []string{"source"})

	m.mergeLatency = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "merge_latency_ms", Help: "Merge engine latency in milliseconds.",
		Buckets: m.histogramBuckets,
	})
	m.mergedCount = f.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "merged_detections", Help: "Merged detections in the most recent frame.",
	})
	m.patternLabel = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "pattern_labels_total", Help: "Frames classified, by pattern label.",
	}, []string{"label"})

	m.clicks = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "round",
		Name: "clicks_total", Help: "Click events accepted into the intake queue.",
	})
	m.clicksRejected = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "round",
		Name: "clicks_rejected_total", Help: "Click events rejected (out of bounds or queue full).",
	})
	m.hits = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "round",
		Name: "hits_total", Help: "Human clicks matched to a merged detection.",
	})
	m.misses = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "round",
		Name: "misses_total", Help: "Human clicks that matched no merged detection.",
	})
	m.collaborations = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "round",
		Name: "collaborations_total", Help: "Detections matched by both the human and the AI in one window.",
	})
	m.roundScore = f.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "round",
		Name: "score", Help: "Current round score.",
	})
	m.difficultyLevel = f.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "round",
		Name: "difficulty_level", Help: "Opponent difficulty: 1 easy, 2 medium, 3 hard.",
	})
	m.roundsCompleted = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "round",
		Name: "rounds_completed_total", Help: "Rounds that ran to completion and were persisted.",
	})

	m.queueSize = f.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "queue",
		Name: "size", Help: "Click events currently queued.",
	})
	m.queueCapacity = f.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "queue",
		Name: "capacity", Help: "Click intake queue capacity.",
	})
}

// Handler returns an http.Handler serving the custom registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}

// Package-level helpers on the global manager.

func RecordFrameProcessed() { globalManager.framesProcessed.Inc() }
func RecordFrameSkipped()   { globalManager.framesSkipped.Inc() }
func RecordFrameDropped()   { globalManager.framesDropped.Inc() }
func RecordTickLatency(ms float64) {
	globalManager.tickLatency.Observe(ms)
}

func RecordDetections(source string, n int) {
	globalManager.detections.WithLabelValues(source).Add(float64(n))
}
func RecordDetectorFailure(source string) {
	globalManager.detectorFailures.WithLabelValues(source).Inc()
}
func RecordDetectLatency(source string, ms float64) {
	globalManager.detectLatency.WithLabelValues(source).Observe(ms)
}

func RecordMergeLatency(ms float64) { globalManager.mergeLatency.Observe(ms) }
func UpdateMergedCount(n int)       { globalManager.mergedCount.Set(float64(n)) }
func RecordPatternLabel(label string) {
	globalManager.patternLabel.WithLabelValues(label).Inc()
}

func RecordClick()         { globalManager.clicks.Inc() }
func RecordClickRejected() { globalManager.clicksRejected.Inc() }
func RecordHit()           { globalManager.hits.Inc() }
func RecordMiss()          { globalManager.misses.Inc() }
func RecordCollaboration() { globalManager.collaborations.Inc() }

func UpdateRoundScore(score int)   { globalManager.roundScore.Set(float64(score)) }
func UpdateDifficulty(level int)   { globalManager.difficultyLevel.Set(float64(level)) }
func RecordRoundCompleted()        { globalManager.roundsCompleted.Inc() }
func UpdateQueueSize(n int)        { globalManager.queueSize.Set(float64(n)) }
func UpdateQueueCapacity(n int)    { globalManager.queueCapacity.Set(float64(n)) }
