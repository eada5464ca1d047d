package badge

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const (
	StarSize    = 24
	FilledColor = "#ffc107"
	EmptyColor  = "#ddd"
)

// five-pointed star inside a 24x24 cell
var starPoints = [][2]float64{
	{12, 2}, {15.09, 8.26}, {22, 9.27}, {17, 14.14}, {18.18, 21.02},
	{12, 17.77}, {5.82, 21.02}, {7, 14.14}, {2, 9.27}, {8.91, 8.26},
}

// SVG draws total stars in a row with the first filled ones highlighted.
// filled is clamped to [0, total].
func SVG(filled, total int) string {
	filled = max(0, min(filled, total))

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		total*StarSize, StarSize, total*StarSize, StarSize)
	for i := 0; i < total; i++ {
		fill := EmptyColor
		if i < filled {
			fill = FilledColor
		}
		offset := float64(i * StarSize)
		sb.WriteString(`<path d="M`)
		for j, p := range starPoints {
			if j > 0 {
				sb.WriteString(" L")
			}
			fmt.Fprintf(&sb, "%.2f %.2f", p[0]+offset, p[1])
		}
		fmt.Fprintf(&sb, ` Z" fill="%s"/>`, fill)
	}
	sb.WriteString(`</svg>`)
	return sb.String()
}

// PNG rasterizes the star row onto a white background, scale pixels per SVG unit
func PNG(filled, total, scale int) ([]byte, error) {
	if total <= 0 {
		return nil, fmt.Errorf("star count must be positive, got %d", total)
	}
	if scale <= 0 {
		return nil, fmt.Errorf("scale must be positive, got %d", scale)
	}
	return renderSVGToPNG([]byte(SVG(filled, total)), total*StarSize*scale, StarSize*scale)
}

func renderSVGToPNG(svgData []byte, targetW, targetH int) ([]byte, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}
	icon.SetTarget(0, 0, float64(targetW), float64(targetH))

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(targetW, targetH, dst, dst.Bounds())
	dasher := rasterx.NewDasher(targetW, targetH, scanner)
	icon.Draw(dasher, 1.0)

	var buf bytes.Buffer
	buf.Grow(targetW * targetH)
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode badge as PNG: %w", err)
	}
	return buf.Bytes(), nil
}
