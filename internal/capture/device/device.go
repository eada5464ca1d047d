package device

import (
	"context"
	"errors"
	"image"

	"github.com/jo-hoe/classwatch/internal/common"
)

var (
	ErrNoDevice         = errors.New("no video input device available")
	ErrPermissionDenied = errors.New("permission to use the video input device denied")
	ErrStreamStopped    = errors.New("stream stopped")
)

// Camera is a video input device. Acquire returns a live stream which the caller
// owns exclusively until Stop is called.
type Camera interface {
	Acquire(ctx context.Context) (Stream, error)
}

// Stream is a live video stream. Stop releases every track and is idempotent.
type Stream interface {
	Frame(ctx context.Context) (image.Image, error)
	Stop()
}

// DefaultRegistry holds the camera implementations selectable from configuration
var DefaultRegistry = common.NewRegistry[Camera]("camera")

// New creates a camera by registered name
func New(name string, params map[string]any) (Camera, error) {
	return DefaultRegistry.Create(name, params)
}
