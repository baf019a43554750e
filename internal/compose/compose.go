// Package compose renders a before/after pair into a single stacked image
// ready for posting.
package compose

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	panelSize   = 1080 // each panel is square, Instagram-friendly
	labelMargin = 24
	jpegQuality = 90
)

// Stack decodes the two photos, center-crops each to a square, scales them to
// 1080x1080 and stacks them vertically with BEFORE and AFTER labels. The
// result is JPEG-encoded.
func Stack(beforeData, afterData []byte) ([]byte, error) {
	before, err := decodeSquare(beforeData)
	if err != nil {
		return nil, fmt.Errorf("before image: %w", err)
	}
	after, err := decodeSquare(afterData)
	if err != nil {
		return nil, fmt.Errorf("after image: %w", err)
	}

	out := image.NewRGBA(image.Rect(0, 0, panelSize, 2*panelSize))
	draw.Draw(out, image.Rect(0, 0, panelSize, panelSize), before, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(0, panelSize, panelSize, 2*panelSize), after, image.Point{}, draw.Src)

	drawLabel(out, "BEFORE", labelMargin)
	drawLabel(out, "AFTER", panelSize+labelMargin)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode composite: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeSquare decodes an image, crops the centered square and scales it to
// the panel size.
func decodeSquare(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	bounds := img.Bounds()
	side := bounds.Dx()
	if bounds.Dy() < side {
		side = bounds.Dy()
	}
	x0 := bounds.Min.X + (bounds.Dx()-side)/2
	y0 := bounds.Min.Y + (bounds.Dy()-side)/2
	crop := image.Rect(x0, y0, x0+side, y0+side)

	panel := image.NewRGBA(image.Rect(0, 0, panelSize, panelSize))
	xdraw.CatmullRom.Scale(panel, panel.Bounds(), img, crop, xdraw.Over, nil)
	return panel, nil
}

// drawLabel writes white text on a black strip at the given vertical offset.
func drawLabel(dst *image.RGBA, text string, y int) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()

	strip := image.Rect(labelMargin-8, y-face.Ascent-6, labelMargin+width+8, y+face.Descent+6)
	draw.Draw(dst, strip, image.NewUniform(color.Black), image.Point{}, draw.Src)

	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(labelMargin, y),
	}
	d.DrawString(text)
}
