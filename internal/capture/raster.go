package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// renderStill draws frame stretched onto a width x height raster and encodes it as PNG
func renderStill(frame image.Image, width, height int) ([]byte, error) {
	if frame == nil {
		return nil, fmt.Errorf("no frame to render")
	}
	if frame.Bounds().Empty() {
		return nil, fmt.Errorf("frame has empty bounds %v", frame.Bounds())
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(canvas, canvas.Bounds(), frame, frame.Bounds(), draw.Src, nil)

	return encodePNG(canvas)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	bb := img.Bounds()
	// rough heuristic: 1 byte per pixel
	buf.Grow(bb.Dx() * bb.Dy())
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode still as PNG: %w", err)
	}
	return buf.Bytes(), nil
}
