package device

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/jo-hoe/classwatch/internal/common"
)

// TestPatternCamera produces synthetic frames: a diagonal gradient that shifts
// with every frame so consecutive captures differ.
type TestPatternCamera struct {
	width  int
	height int
	deny   bool
}

func NewTestPatternCamera(width, height int, deny bool) *TestPatternCamera {
	return &TestPatternCamera{width: width, height: height, deny: deny}
}

func newTestPatternCameraFromParams(params map[string]any) (Camera, error) {
	width := common.GetIntParam(params, "width", 640)
	height := common.GetIntParam(params, "height", 480)
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid test pattern size %dx%d", width, height)
	}
	return NewTestPatternCamera(width, height, common.GetBoolParam(params, "deny", false)), nil
}

func (c *TestPatternCamera) Acquire(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.deny {
		return nil, ErrPermissionDenied
	}
	return &testPatternStream{width: c.width, height: c.height}, nil
}

type testPatternStream struct {
	mu      sync.Mutex
	width   int
	height  int
	frame   int
	stopped bool
}

func (s *testPatternStream) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrStreamStopped
	}
	s.frame++

	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	shift := s.frame * 16
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			v := uint8((x + y + shift) % 256)
			img.SetRGBA(x, y, color.RGBA{R: v, G: 255 - v, B: uint8(shift % 256), A: 255})
		}
	}
	return img, nil
}

func (s *testPatternStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func init() {
	if err := DefaultRegistry.Register("testpattern", newTestPatternCameraFromParams); err != nil {
		panic(fmt.Sprintf("failed to register testpattern camera: %v", err))
	}
}
