package facedetect

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var errEmptyImage = errors.New("empty image data")

// DecodeImage decodes raw image bytes or a base64 data URL
// ("data:image/png;base64,...") into an image.
func DecodeImage(encoded []byte) (image.Image, error) {
	if len(encoded) == 0 {
		return nil, errEmptyImage
	}

	data := encoded
	if bytes.HasPrefix(encoded, []byte("data:")) {
		decoded, err := decodeDataURL(string(encoded))
		if err != nil {
			return nil, err
		}
		data = decoded
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

func decodeDataURL(url string) ([]byte, error) {
	header, payload, found := strings.Cut(url, ",")
	if !found {
		return nil, fmt.Errorf("malformed data url")
	}
	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("unsupported data url encoding: %s", header)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode data url payload: %w", err)
	}
	return data, nil
}
