package tiles

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestDecode(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	got, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Bounds().Dx() != 4 {
		t.Errorf("width = %d", got.Bounds().Dx())
	}
	if _, err := Decode([]byte("not an image")); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestFitSquare(t *testing.T) {
	fill := color.NRGBA{0, 0, 0, 255}

	same := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	if FitSquare(same, 32, fill) != image.Image(same) {
		t.Error("square input of target size should be returned unchanged")
	}

	wide := image.NewNRGBA(image.Rect(0, 0, 64, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 64; x++ {
			wide.Set(x, y, color.NRGBA{255, 255, 255, 255})
		}
	}
	out := FitSquare(wide, 32, fill)
	if out.Bounds().Dx() != 32 || out.Bounds().Dy() != 32 {
		t.Fatalf("size = %v", out.Bounds())
	}
	// 64x16 -> 32x8 centred vertically: rows 12..19 are content, the rest padding
	if r, _, _, _ := out.At(16, 0).RGBA(); r != 0 {
		t.Errorf("top row should be padding, got r=%d", r)
	}
	if r, _, _, _ := out.At(16, 16).RGBA(); r>>8 < 200 {
		t.Errorf("centre should be content, got r=%d", r>>8)
	}
}
