//go:build dlib

package facedetect

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"strings"
	"sync"

	face "github.com/Kagami/go-face"

	"github.com/jo-hoe/classwatch/internal/common"
)

const defaultJPEGQuality = 90

// DlibDetector runs detection in process with dlib through go-face.
// The model location is a directory holding the dlib model files.
type DlibDetector struct {
	cnn         bool
	jpegQuality int

	mu         sync.Mutex
	recognizer *face.Recognizer
}

// NewDlibDetector creates a detector; cnn selects the slower CNN face detector
// over the HOG one.
func NewDlibDetector(cnn bool, jpegQuality int) *DlibDetector {
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = defaultJPEGQuality
	}
	return &DlibDetector{cnn: cnn, jpegQuality: jpegQuality}
}

func newDlibDetectorFromParams(params map[string]any) (Detector, error) {
	quality := common.GetIntParam(params, "jpegQuality", defaultJPEGQuality)
	if quality <= 0 || quality > 100 {
		return nil, fmt.Errorf("jpegQuality must be within [1, 100], got %d", quality)
	}
	return NewDlibDetector(common.GetBoolParam(params, "cnn", false), quality), nil
}

func (d *DlibDetector) LoadModel(ctx context.Context, uri string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	modelDir := strings.TrimPrefix(uri, "file://")
	if modelDir == "" {
		return fmt.Errorf("model directory must not be empty")
	}
	recognizer, err := face.NewRecognizer(modelDir)
	if err != nil {
		return fmt.Errorf("failed to load dlib models from %s: %w", modelDir, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.recognizer != nil {
		d.recognizer.Close()
	}
	d.recognizer = recognizer
	slog.Info("face detection model loaded", "dir", modelDir, "cnn", d.cnn)
	return nil
}

func (d *DlibDetector) FetchImage(_ context.Context, encoded []byte) (image.Image, error) {
	return DecodeImage(encoded)
}

func (d *DlibDetector) DetectSingleFace(ctx context.Context, img image.Image) (*Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: d.jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image for detection: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.recognizer == nil {
		return nil, ErrModelNotLoaded
	}

	var (
		found *face.Face
		err   error
	)
	if d.cnn {
		found, err = d.recognizer.RecognizeSingleCNN(buf.Bytes())
	} else {
		found, err = d.recognizer.RecognizeSingle(buf.Bytes())
	}
	if err != nil {
		return nil, fmt.Errorf("dlib detection failed: %w", err)
	}
	if found == nil {
		return nil, nil
	}
	// dlib reports no confidence for a single accepted face
	return &Detection{Box: found.Rectangle, Score: 1}, nil
}

// Close releases the loaded models
func (d *DlibDetector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.recognizer != nil {
		d.recognizer.Close()
		d.recognizer = nil
	}
}

func init() {
	if err := DefaultRegistry.Register("dlib", newDlibDetectorFromParams); err != nil {
		panic(fmt.Sprintf("failed to register dlib detector: %v", err))
	}
}
