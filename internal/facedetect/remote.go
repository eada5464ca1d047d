package facedetect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jo-hoe/classwatch/internal/common"
)

const (
	defaultMinConfidence = 0.5
	defaultTimeout       = 30 * time.Second
	maxResponseBytes     = 1 << 20
)

type remoteBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type remoteDetection struct {
	Box   remoteBox `json:"box"`
	Score float64   `json:"score"`
}

type remoteResponse struct {
	Detections []remoteDetection `json:"detections"`
}

// RemoteDetector delegates detection to an HTTP face-detection service.
// Images are posted as PNG, the service answers with scored bounding boxes.
type RemoteDetector struct {
	endpoint      string
	minConfidence float64
	client        *http.Client
	loaded        atomic.Bool
}

// NewRemoteDetector creates a detector posting to endpoint
func NewRemoteDetector(endpoint string, minConfidence float64, timeout time.Duration) *RemoteDetector {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &RemoteDetector{
		endpoint:      endpoint,
		minConfidence: minConfidence,
		client:        &http.Client{Timeout: timeout},
	}
}

func newRemoteDetectorFromParams(params map[string]any) (Detector, error) {
	if err := common.RequireParams(params, "endpoint"); err != nil {
		return nil, err
	}
	endpoint := common.GetStringParam(params, "endpoint", "")
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint must not be empty")
	}
	minConfidence := common.GetFloatParam(params, "minConfidence", defaultMinConfidence)
	if minConfidence < 0 || minConfidence > 1 {
		return nil, fmt.Errorf("minConfidence must be within [0, 1], got %v", minConfidence)
	}
	timeout := time.Duration(common.GetIntParam(params, "timeoutSeconds", 0)) * time.Second
	return NewRemoteDetector(endpoint, minConfidence, timeout), nil
}

// LoadModel fetches the model manifest from the static model-asset location.
// The detector stays unusable until a load succeeds.
func (d *RemoteDetector) LoadModel(ctx context.Context, uri string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return fmt.Errorf("failed to build model request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch model manifest %s: %w", uri, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("failed to fetch model manifest %s: status %d", uri, resp.StatusCode)
	}
	manifest, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read model manifest: %w", err)
	}
	if len(bytes.TrimSpace(manifest)) == 0 || !json.Valid(manifest) {
		return fmt.Errorf("model manifest %s is not valid json", uri)
	}

	d.loaded.Store(true)
	slog.Info("face detection model loaded", "uri", uri)
	return nil
}

func (d *RemoteDetector) FetchImage(_ context.Context, encoded []byte) (image.Image, error) {
	return DecodeImage(encoded)
}

func (d *RemoteDetector) DetectSingleFace(ctx context.Context, img image.Image) (*Detection, error) {
	if !d.loaded.Load() {
		return nil, ErrModelNotLoaded
	}

	var body bytes.Buffer
	if err := png.Encode(&body, img); err != nil {
		return nil, fmt.Errorf("failed to encode image for detection: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build detection request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detection request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("detection service returned status %d", resp.StatusCode)
	}

	var parsed remoteResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode detection response: %w", err)
	}
	return d.best(parsed.Detections), nil
}

// best returns the highest scoring detection above the confidence threshold
func (d *RemoteDetector) best(detections []remoteDetection) *Detection {
	var result *Detection
	for _, det := range detections {
		if det.Score < d.minConfidence {
			continue
		}
		if result != nil && det.Score <= result.Score {
			continue
		}
		result = &Detection{
			Box:   image.Rect(det.Box.X, det.Box.Y, det.Box.X+det.Box.Width, det.Box.Y+det.Box.Height),
			Score: det.Score,
		}
	}
	return result
}

func init() {
	if err := DefaultRegistry.Register("remote", newRemoteDetectorFromParams); err != nil {
		panic(fmt.Sprintf("failed to register remote detector: %v", err))
	}
}
