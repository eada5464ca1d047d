package device

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jo-hoe/classwatch/internal/common"
	"github.com/jo-hoe/classwatch/internal/facedetect"
)

const (
	defaultSnapshotTimeout = 10 * time.Second
	maxSnapshotBytes       = 32 << 20
)

// SnapshotCamera reads still frames from an HTTP snapshot endpoint, as exposed
// by IP webcams and MJPEG monitors.
type SnapshotCamera struct {
	url    string
	client *http.Client
}

func NewSnapshotCamera(url string, timeout time.Duration) *SnapshotCamera {
	if timeout <= 0 {
		timeout = defaultSnapshotTimeout
	}
	return &SnapshotCamera{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func newSnapshotCameraFromParams(params map[string]any) (Camera, error) {
	if err := common.RequireParams(params, "url"); err != nil {
		return nil, err
	}
	url := common.GetStringParam(params, "url", "")
	if url == "" {
		return nil, fmt.Errorf("url must not be empty")
	}
	timeout := time.Duration(common.GetIntParam(params, "timeoutSeconds", 0)) * time.Second
	return NewSnapshotCamera(url, timeout), nil
}

// Acquire probes the endpoint once; the device counts as available when it
// answers with a decodable frame.
func (c *SnapshotCamera) Acquire(ctx context.Context) (Stream, error) {
	if _, err := c.fetch(ctx); err != nil {
		return nil, err
	}
	slog.Debug("snapshot camera acquired", "url", c.url)
	return &snapshotStream{camera: c}, nil
}

func (c *SnapshotCamera) fetch(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrPermissionDenied
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: snapshot endpoint returned status %d", ErrNoDevice, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	img, err := facedetect.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return img, nil
}

type snapshotStream struct {
	camera  *SnapshotCamera
	mu      sync.Mutex
	stopped bool
}

func (s *snapshotStream) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return nil, ErrStreamStopped
	}
	return s.camera.fetch(ctx)
}

func (s *snapshotStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func init() {
	if err := DefaultRegistry.Register("snapshot", newSnapshotCameraFromParams); err != nil {
		panic(fmt.Sprintf("failed to register snapshot camera: %v", err))
	}
}
