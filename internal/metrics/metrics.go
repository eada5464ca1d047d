package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the counters below
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	DetectionFace   = "face"
	DetectionNoFace = "no_face"
	DetectionError  = "error"
)

// Metrics holds the application counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	cameraAcquisitions *prometheus.CounterVec
	captures           prometheus.Counter
	captureErrors      prometheus.Counter
	detections         *prometheus.CounterVec
	evaluations        prometheus.Counter
	loginAttempts      *prometheus.CounterVec
}

// New creates a Metrics instance backed by its own Prometheus registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cameraAcquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classwatch_camera_acquisitions_total",
			Help: "Camera acquisition attempts by outcome",
		}, []string{"outcome"}),
		captures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "classwatch_captures_total",
			Help: "Still frames captured by the timed capture loop",
		}),
		captureErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "classwatch_capture_errors_total",
			Help: "Timer ticks that failed to produce a still frame",
		}),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classwatch_detections_total",
			Help: "Face detection calls by result",
		}, []string{"result"}),
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "classwatch_evaluations_total",
			Help: "Completed attentiveness evaluations",
		}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classwatch_login_attempts_total",
			Help: "Login form submissions by outcome",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.cameraAcquisitions,
		m.captures,
		m.captureErrors,
		m.detections,
		m.evaluations,
		m.loginAttempts,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CameraAcquired counts a device acquisition by outcome
func (m *Metrics) CameraAcquired(ok bool) {
	if m == nil {
		return
	}
	m.cameraAcquisitions.WithLabelValues(outcome(ok)).Inc()
}

// CaptureStored counts a still appended to the session
func (m *Metrics) CaptureStored() {
	if m == nil {
		return
	}
	m.captures.Inc()
}

// CaptureFailed counts a capture tick whose frame could not be rendered
func (m *Metrics) CaptureFailed() {
	if m == nil {
		return
	}
	m.captureErrors.Inc()
}

// Detection counts a detection call by result
func (m *Metrics) Detection(result string) {
	if m == nil {
		return
	}
	m.detections.WithLabelValues(result).Inc()
}

// EvaluationCompleted counts a published score
func (m *Metrics) EvaluationCompleted() {
	if m == nil {
		return
	}
	m.evaluations.Inc()
}

// LoginAttempt counts a login submission by outcome
func (m *Metrics) LoginAttempt(ok bool) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(outcome(ok)).Inc()
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFailure
}
