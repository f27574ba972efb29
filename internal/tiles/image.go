package tiles

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Decode decodes WebP, PNG, or JPEG tile bytes.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode tile: %w", err)
	}
	return img, nil
}

// FitSquare scales img so its longest side equals size, preserving aspect ratio,
// and centres it on a size×size canvas filled with fill.
// An image that is already size×size is returned unchanged.
func FitSquare(img image.Image, size int, fill color.Color) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == size && h == size {
		return img
	}
	var resized image.Image
	if w >= h {
		resized = imaging.Resize(img, size, 0, imaging.Lanczos)
	} else {
		resized = imaging.Resize(img, 0, size, imaging.Lanczos)
	}
	canvas := imaging.New(size, size, fill)
	return imaging.PasteCenter(canvas, resized)
}
