package capture

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/jo-hoe/classwatch/internal/capture/device"
	"github.com/jo-hoe/classwatch/internal/facedetect"
)

// fakeStream serves solid frames and records whether it was released
type fakeStream struct {
	mu       sync.Mutex
	stopped  bool
	frames   int
	frameErr error
}

func (s *fakeStream) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, device.ErrStreamStopped
	}
	if s.frameErr != nil {
		return nil, s.frameErr
	}
	s.frames++
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(s.frames * 40), G: 80, B: 160, A: 255})
		}
	}
	return img, nil
}

func (s *fakeStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func (s *fakeStream) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// fakeCamera hands out fakeStreams, or fails with acquireErr
type fakeCamera struct {
	mu         sync.Mutex
	acquireErr error
	streams    []*fakeStream
}

func (c *fakeCamera) Acquire(ctx context.Context) (device.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.acquireErr != nil {
		return nil, c.acquireErr
	}
	stream := &fakeStream{}
	c.streams = append(c.streams, stream)
	return stream, nil
}

func (c *fakeCamera) setAcquireErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acquireErr = err
}

func (c *fakeCamera) acquired() []*fakeStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fakeStream(nil), c.streams...)
}

// fakeDetector answers detection calls in call order via detect
type fakeDetector struct {
	mu       sync.Mutex
	loaded   []string
	loadErr  error
	calls    int
	detect   func(call int) (*facedetect.Detection, error)
	fetchErr error
	// fetched holds the encoded captures in the order they were handed over
	fetched [][]byte
}

func (d *fakeDetector) LoadModel(ctx context.Context, uri string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loaded = append(d.loaded, uri)
	return d.loadErr
}

func (d *fakeDetector) FetchImage(ctx context.Context, encoded []byte) (image.Image, error) {
	d.mu.Lock()
	d.fetched = append(d.fetched, encoded)
	d.mu.Unlock()
	if d.fetchErr != nil {
		return nil, d.fetchErr
	}
	return facedetect.DecodeImage(encoded)
}

func (d *fakeDetector) DetectSingleFace(ctx context.Context, img image.Image) (*facedetect.Detection, error) {
	d.mu.Lock()
	call := d.calls
	d.calls++
	detect := d.detect
	d.mu.Unlock()
	if detect == nil {
		return nil, nil
	}
	return detect(call)
}

func (d *fakeDetector) fetchedImages() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]byte(nil), d.fetched...)
}

func (d *fakeDetector) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func faceAt(results ...bool) func(call int) (*facedetect.Detection, error) {
	return func(call int) (*facedetect.Detection, error) {
		if call < len(results) && results[call] {
			return &facedetect.Detection{Box: image.Rect(10, 10, 50, 50), Score: 0.9}, nil
		}
		return nil, nil
	}
}

var testStart = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 64
	cfg.Height = 48
	cfg.ModelURI = "http://models.local/ssd_mobilenetv1_model-weights_manifest.json"
	return cfg
}

// blockingCamera hands out stream only after release is closed, ignoring cancellation
type blockingCamera struct {
	release chan struct{}
	stream  *fakeStream
}

func (c *blockingCamera) Acquire(ctx context.Context) (device.Stream, error) {
	<-c.release
	return c.stream, nil
}

func testClock() *testingclock.FakeClock {
	return testingclock.NewFakeClock(testStart)
}

func newTestController(t *testing.T, camera *fakeCamera, detector *fakeDetector) (*Controller, *testingclock.FakeClock) {
	t.Helper()
	return newTestControllerWithConfig(t, testConfig(), camera, detector)
}

func newTestControllerWithConfig(t *testing.T, cfg Config, camera *fakeCamera, detector *fakeDetector) (*Controller, *testingclock.FakeClock) {
	t.Helper()
	clk := testClock()
	c, err := NewController(cfg, camera, detector, WithClock(clk))
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, clk
}

func waitFor(t *testing.T, what string, condition func() bool) {
	t.Helper()
	err := wait.PollUntilContextTimeout(context.Background(), 2*time.Millisecond, 5*time.Second, true,
		func(context.Context) (bool, error) {
			return condition(), nil
		})
	if err != nil {
		t.Fatalf("timed out waiting for %s", what)
	}
}

func mustSnapshot(t *testing.T, c *Controller) Snapshot {
	t.Helper()
	snap, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	return snap
}

func enableAndWaitLive(t *testing.T, c *Controller) {
	t.Helper()
	if err := c.SetCameraEnabled(context.Background(), true); err != nil {
		t.Fatalf("SetCameraEnabled(true) failed: %v", err)
	}
	waitFor(t, "camera to go live", func() bool {
		return mustSnapshot(t, c).CameraState == CameraLive
	})
}

// captureOnce advances the fake clock by one full period and waits for the next capture
func captureOnce(t *testing.T, c *Controller, clk *testingclock.FakeClock, wantCount int) {
	t.Helper()
	waitFor(t, "capture timer to be armed", clk.HasWaiters)
	clk.Step(c.Config().Interval)
	waitFor(t, "capture to be stored", func() bool {
		return mustSnapshot(t, c).CaptureCount == wantCount
	})
}

func fillQuota(t *testing.T, c *Controller, clk *testingclock.FakeClock) {
	t.Helper()
	enableAndWaitLive(t, c)
	for i := 1; i <= c.Config().Quota; i++ {
		captureOnce(t, c, clk, i)
	}
}
