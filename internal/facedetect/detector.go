package facedetect

import (
	"context"
	"errors"
	"image"

	"github.com/jo-hoe/classwatch/internal/common"
)

var (
	// ErrModelNotLoaded is returned by detectors whose model never loaded.
	ErrModelNotLoaded = errors.New("face detection model not loaded")
)

// Detection is a single detected face
type Detection struct {
	Box   image.Rectangle
	Score float64
}

// Detector is the external face-detection capability.
//
// DetectSingleFace returns (nil, nil) when the image holds no face.
type Detector interface {
	LoadModel(ctx context.Context, uri string) error
	FetchImage(ctx context.Context, encoded []byte) (image.Image, error)
	DetectSingleFace(ctx context.Context, img image.Image) (*Detection, error)
}

// DefaultRegistry holds the detector implementations selectable from configuration
var DefaultRegistry = common.NewRegistry[Detector]("detector")

// New creates a detector by registered name
func New(name string, params map[string]any) (Detector, error) {
	return DefaultRegistry.Create(name, params)
}
