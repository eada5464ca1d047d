//go:build gocv

package device

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/jo-hoe/classwatch/internal/common"
)

// WebcamCamera opens a local video input device through OpenCV.
// Index 0 is the system's default device.
type WebcamCamera struct {
	deviceID int
}

func NewWebcamCamera(deviceID int) *WebcamCamera {
	return &WebcamCamera{deviceID: deviceID}
}

func newWebcamCameraFromParams(params map[string]any) (Camera, error) {
	deviceID := common.GetIntParam(params, "device", 0)
	if deviceID < 0 {
		return nil, fmt.Errorf("device index must not be negative, got %d", deviceID)
	}
	return NewWebcamCamera(deviceID), nil
}

func (c *WebcamCamera) Acquire(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	capture, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		if capture != nil {
			_ = capture.Close()
		}
		return nil, fmt.Errorf("%w: device %d: %v", ErrNoDevice, c.deviceID, err)
	}
	if !capture.IsOpened() {
		_ = capture.Close()
		return nil, fmt.Errorf("%w: device %d could not be opened", ErrNoDevice, c.deviceID)
	}
	slog.Info("webcam opened", "device", c.deviceID)
	return &webcamStream{capture: capture, deviceID: c.deviceID}, nil
}

type webcamStream struct {
	mu       sync.Mutex
	capture  *gocv.VideoCapture
	deviceID int
}

func (s *webcamStream) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capture == nil {
		return nil, ErrStreamStopped
	}

	mat := gocv.NewMat()
	defer func() {
		_ = mat.Close()
	}()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		return nil, fmt.Errorf("failed to read frame from device %d", s.deviceID)
	}
	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	return img, nil
}

func (s *webcamStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capture == nil {
		return
	}
	if err := s.capture.Close(); err != nil {
		slog.Warn("failed to close webcam", "device", s.deviceID, "error", err)
	}
	s.capture = nil
}

func init() {
	if err := DefaultRegistry.Register("webcam", newWebcamCameraFromParams); err != nil {
		panic(fmt.Sprintf("failed to register webcam camera: %v", err))
	}
}
