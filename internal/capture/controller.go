package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/jo-hoe/classwatch/internal/capture/device"
	"github.com/jo-hoe/classwatch/internal/facedetect"
	"github.com/jo-hoe/classwatch/internal/metrics"
)

var (
	ErrClosed               = errors.New("capture session closed")
	ErrQuotaNotReached      = errors.New("capture quota not reached")
	ErrEvaluationInProgress = errors.New("evaluation already in progress")
	ErrCaptureNotFound      = errors.New("capture not found")
)

const eventQueueSize = 64

// Option customizes a Controller
type Option func(*Controller)

// WithClock replaces the wall clock used for timers and timestamps
func WithClock(clk clock.WithDelayedExecution) Option {
	return func(c *Controller) {
		c.clock = clk
	}
}

// WithMetrics records camera, capture and detection counters
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// Controller runs one capture session: camera lifecycle, timed capture loop,
// attentiveness evaluation and session clock.
//
// All session state is owned by a single loop goroutine. Timer ticks, device
// callbacks, captured frames and detection results are posted onto the event
// queue and applied in order; public methods post a command and wait for it.
type Controller struct {
	config   Config
	camera   device.Camera
	detector facedetect.Detector
	clock    clock.WithDelayedExecution
	metrics  *metrics.Metrics

	events    chan event
	ctx       context.Context
	cancel    context.CancelFunc
	stopped   chan struct{}
	closeOnce sync.Once
	postMu    sync.RWMutex
	closed    bool

	// loop-owned
	session    session
	stream     device.Stream
	generation int
	timer      clock.Timer
	timerSeq   int
	grabbing   bool
	evaluation *evaluationRun
	evalSeq    int
}

// NewController mounts a capture session and starts its event loop. The
// detector model is loaded once in the background; a failure is logged and
// leaves every later detection failing.
func NewController(cfg Config, camera device.Camera, detector facedetect.Detector, opts ...Option) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid capture configuration: %w", err)
	}
	if camera == nil {
		return nil, fmt.Errorf("camera must not be nil")
	}
	if detector == nil {
		return nil, fmt.Errorf("detector must not be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		config:   cfg,
		camera:   camera,
		detector: detector,
		clock:    clock.RealClock{},
		events:   make(chan event, eventQueueSize),
		ctx:      ctx,
		cancel:   cancel,
		stopped:  make(chan struct{}),
		session:  session{cameraState: CameraOff},
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.run()
	go c.loadModel()
	return c, nil
}

// Config returns the session parameters
func (c *Controller) Config() Config {
	return c.config
}

// SetCameraEnabled turns the camera on or off
func (c *Controller) SetCameraEnabled(ctx context.Context, enabled bool) error {
	return c.do(ctx, func() {
		if enabled {
			c.enableCamera()
		} else {
			c.disableCamera()
		}
	})
}

// Snapshot returns the current session projection
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := c.do(ctx, func() {
		snap = c.session.snapshot(c.config, c.clock.Now())
	})
	return snap, err
}

// Captures lists the captures in session order
func (c *Controller) Captures(ctx context.Context) ([]CaptureInfo, error) {
	var infos []CaptureInfo
	err := c.do(ctx, func() {
		infos = c.session.captureInfos()
	})
	return infos, err
}

// Capture returns the capture at index
func (c *Controller) Capture(ctx context.Context, index int) (Capture, error) {
	var (
		capture Capture
		found   bool
	)
	err := c.do(ctx, func() {
		if index >= 0 && index < len(c.session.captures) {
			capture = c.session.captures[index]
			found = true
		}
	})
	if err != nil {
		return Capture{}, err
	}
	if !found {
		return Capture{}, fmt.Errorf("%w: index %d", ErrCaptureNotFound, index)
	}
	return capture, nil
}

// Close tears the session down: the timer is cancelled, the device released
// and the captures discarded. Calls after the first are no-ops.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.stopped
	})
	return nil
}

func (c *Controller) run() {
	defer close(c.stopped)
	defer c.teardown()

	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.events:
			ev.apply(c)
			c.syncTimer()
		}
	}
}

func (c *Controller) teardown() {
	c.postMu.Lock()
	c.closed = true
	c.postMu.Unlock()

	// nothing can be posted anymore; release streams that arrived too late
	for {
		select {
		case ev := <-c.events:
			if acquired, ok := ev.(deviceAcquiredEvent); ok {
				acquired.stream.Stop()
			}
		default:
			c.stopTimer()
			c.releaseStream()
			c.session = session{cameraState: CameraOff}
			c.evaluation = nil
			if closer, ok := c.detector.(interface{ Close() }); ok {
				closer.Close()
			}
			slog.Info("capture session closed")
			return
		}
	}
}

// post enqueues an event for the loop
func (c *Controller) post(ctx context.Context, ev event) error {
	c.postMu.RLock()
	defer c.postMu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.events <- ev:
		return nil
	case <-c.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// do runs fn on the loop goroutine and waits for it to finish
func (c *Controller) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if err := c.post(ctx, commandEvent{fn: fn, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-c.stopped:
		select {
		case <-done:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) loadModel() {
	if c.config.ModelURI == "" {
		slog.Warn("no face detection model location configured, detections will fail")
		return
	}
	if err := c.detector.LoadModel(c.ctx, c.config.ModelURI); err != nil {
		slog.Error("failed to load face detection model", "uri", c.config.ModelURI, "error", err)
	}
}

func (c *Controller) enableCamera() {
	s := &c.session
	if s.cameraOn && s.cameraState != CameraFailed {
		return
	}
	s.cameraOn = true
	if s.startTime == nil {
		now := c.clock.Now()
		s.startTime = &now
	}
	c.acquire()
}

func (c *Controller) disableCamera() {
	s := &c.session
	if !s.cameraOn {
		return
	}
	s.cameraOn = false
	s.cameraState = CameraOff
	s.cameraErr = nil
	c.generation++
	c.grabbing = false
	c.releaseStream()
	slog.Info("camera turned off", "captures", s.captureCount())
}

// acquire requests the device in the background; the outcome comes back as an event
func (c *Controller) acquire() {
	c.releaseStream()
	c.generation++
	generation := c.generation
	c.session.cameraState = CameraAcquiring
	c.session.cameraErr = nil

	go func() {
		stream, err := c.camera.Acquire(c.ctx)
		if err != nil {
			_ = c.post(context.Background(), deviceFailedEvent{generation: generation, err: err})
			return
		}
		if err := c.post(context.Background(), deviceAcquiredEvent{generation: generation, stream: stream}); err != nil {
			stream.Stop()
		}
	}()
}

func (c *Controller) releaseStream() {
	if c.stream == nil {
		return
	}
	c.stream.Stop()
	c.stream = nil
	slog.Debug("camera stream released")
}

// shouldCapture is the guard for the capture timer
func (c *Controller) shouldCapture() bool {
	s := &c.session
	return s.cameraOn && s.cameraState != CameraFailed && s.captureCount() < c.config.Quota
}

// syncTimer arms or disarms the capture timer so it matches the guard.
// It runs after every applied event.
func (c *Controller) syncTimer() {
	if !c.shouldCapture() {
		c.stopTimer()
		return
	}
	if c.timer != nil {
		return
	}
	c.timerSeq++
	seq := c.timerSeq
	c.timer = c.clock.AfterFunc(c.config.Interval, func() {
		_ = c.post(context.Background(), tickEvent{seq: seq})
	})
}

func (c *Controller) stopTimer() {
	if c.timer == nil {
		return
	}
	c.timer.Stop()
	c.timer = nil
	// a tick already in the queue belongs to the stopped timer
	c.timerSeq++
}

// grab renders the current frame off-loop and posts it back
func (c *Controller) grab() {
	if c.stream == nil {
		slog.Debug("capture tick skipped, camera not ready", "state", c.session.cameraState)
		return
	}
	if c.grabbing {
		slog.Debug("capture tick skipped, previous frame still pending")
		return
	}
	c.grabbing = true

	generation, stream := c.generation, c.stream
	width, height := c.config.Width, c.config.Height
	go func() {
		ev := frameReadyEvent{generation: generation}
		frame, err := stream.Frame(c.ctx)
		if err == nil {
			var still []byte
			still, err = renderStill(frame, width, height)
			ev.capture = Capture{ID: uuid.New(), Image: still, Timestamp: c.clock.Now()}
		}
		ev.err = err
		_ = c.post(context.Background(), ev)
	}()
}

type event interface {
	apply(c *Controller)
}

type commandEvent struct {
	fn   func()
	done chan struct{}
}

func (e commandEvent) apply(_ *Controller) {
	e.fn()
	close(e.done)
}

type tickEvent struct {
	seq int
}

func (e tickEvent) apply(c *Controller) {
	if e.seq != c.timerSeq {
		return
	}
	c.timer = nil
	if c.shouldCapture() {
		c.grab()
	}
}

type deviceAcquiredEvent struct {
	generation int
	stream     device.Stream
}

func (e deviceAcquiredEvent) apply(c *Controller) {
	c.metrics.CameraAcquired(true)
	if e.generation != c.generation || !c.session.cameraOn {
		e.stream.Stop()
		return
	}
	c.releaseStream()
	c.stream = e.stream
	c.session.cameraState = CameraLive
	slog.Info("camera acquired", "captures", c.session.captureCount(), "quota", c.config.Quota)
}

type deviceFailedEvent struct {
	generation int
	err        error
}

func (e deviceFailedEvent) apply(c *Controller) {
	c.metrics.CameraAcquired(false)
	if e.generation != c.generation {
		return
	}
	slog.Error("failed to access the camera", "error", e.err)
	c.session.cameraState = CameraFailed
	c.session.cameraErr = e.err
}

type frameReadyEvent struct {
	generation int
	capture    Capture
	err        error
}

func (e frameReadyEvent) apply(c *Controller) {
	if e.generation != c.generation {
		return
	}
	c.grabbing = false
	if e.err != nil {
		c.metrics.CaptureFailed()
		slog.Error("failed to capture still", "error", e.err)
		return
	}

	s := &c.session
	if s.captureCount() >= c.config.Quota {
		return
	}
	s.captures = append(s.captures, e.capture)
	c.metrics.CaptureStored()
	slog.Info("captured still",
		"count", s.captureCount(),
		"quota", c.config.Quota,
		"size_bytes", len(e.capture.Image))
}
