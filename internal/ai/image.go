package ai

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// Vision requests are billed by image size, and classification quality stops
// improving well before full resolution.
const (
	visionMaxEdge     = 800
	visionJPEGQuality = 85
)

// prepareImage shrinks a photo for vision-model input: the longest edge is
// capped at visionMaxEdge and the result is always JPEG, whatever the vendor
// CDN delivered.
func prepareImage(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not decode photo: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	out := src
	if w > visionMaxEdge || h > visionMaxEdge {
		if w >= h {
			h = h * visionMaxEdge / w
			w = visionMaxEdge
		} else {
			w = w * visionMaxEdge / h
			h = visionMaxEdge
		}
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, bounds, draw.Over, nil)
		out = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: visionJPEGQuality}); err != nil {
		return nil, fmt.Errorf("could not encode photo: %w", err)
	}
	return buf.Bytes(), nil
}
