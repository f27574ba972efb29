package compositor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/paulmach/orb"

	"github.com/hyperjump/anveshak/internal/models"
	"github.com/hyperjump/anveshak/internal/tiles"
)

func solidTile(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, tiles.TileSize, tiles.TileSize))
	for y := 0; y < tiles.TileSize; y++ {
		for x := 0; x < tiles.TileSize; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func tileCoord(zoom, x, y int) models.TileCoordinate {
	return models.TileCoordinate{Dataset: "ctx", Footprint: "B01", Zoom: zoom, X: x, Y: y}
}

var (
	red  = color.NRGBA{255, 0, 0, 255}
	blue = color.NRGBA{0, 0, 255, 255}
)

func sameColor(a, b color.Color) bool {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	return ar == br && ag == bg && ab == bb && aa == ba
}

func TestPixelBBoxOnTile(t *testing.T) {
	const z, x, y = 4, 5, 7
	tb := tiles.TileBound(x, y, z)
	midLng := (tb.Left() + tb.Right()) / 2

	tests := []struct {
		name   string
		geom   orb.Geometry
		want   image.Rectangle
		wantOK bool
	}{
		{"whole tile", tb.ToPolygon(), image.Rect(0, 0, 256, 256), true},
		{"west half", orb.Bound{Min: orb.Point{tb.Left(), tb.Bottom()}, Max: orb.Point{midLng, tb.Top()}}.ToPolygon(), image.Rect(0, 0, 128, 256), true},
		{"larger than tile", orb.Bound{Min: orb.Point{tb.Left() - 5, tb.Bottom() - 5}, Max: orb.Point{tb.Right() + 5, tb.Top() + 5}}.ToPolygon(), image.Rect(0, 0, 256, 256), true},
		{"disjoint", orb.Bound{Min: orb.Point{tb.Right() + 1, tb.Bottom()}, Max: orb.Point{tb.Right() + 2, tb.Top()}}.ToPolygon(), image.Rectangle{}, false},
		{"touches east edge only", tiles.TileBound(x+1, y, z).ToPolygon(), image.Rectangle{}, false},
		{"point inside", orb.Point{midLng, (tb.Top() + tb.Bottom()) / 2}, image.Rect(0, 0, 256, 256), true},
		{"point elsewhere", orb.Point{tb.Right() + 1, tb.Top()}, image.Rectangle{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PixelBBoxOnTile(tt.geom, z, x, y)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("PixelBBoxOnTile = %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestBuild_SingleTileEqualsCrop(t *testing.T) {
	store := tiles.NewMemoryStore()
	store.Put(tileCoord(4, 5, 7), solidTile(t, red))
	store.Put(tileCoord(4, 6, 7), solidTile(t, blue))

	tb := tiles.TileBound(5, 7, 4)
	midLng := (tb.Left() + tb.Right()) / 2
	geom := orb.Bound{Min: orb.Point{tb.Left(), tb.Bottom()}, Max: orb.Point{midLng, tb.Top()}}.ToPolygon()

	img, err := New(store).Build(context.Background(), "ctx", "B01", 4, geom)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if img.Bounds().Dx() != 128 || img.Bounds().Dy() != 256 {
		t.Fatalf("bounds = %v, want 128x256", img.Bounds())
	}
	if !sameColor(img.At(64, 128), red) {
		t.Errorf("pixel = %v, want red", img.At(64, 128))
	}
}

func TestBuild_TwoTiles(t *testing.T) {
	store := tiles.NewMemoryStore()
	store.Put(tileCoord(4, 5, 7), solidTile(t, red))
	store.Put(tileCoord(4, 6, 7), solidTile(t, blue))

	geom := tiles.TileBound(5, 7, 4).Union(tiles.TileBound(6, 7, 4)).ToPolygon()
	img, err := New(store).Build(context.Background(), "ctx", "B01", 4, geom)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if img.Bounds().Dx() != 512 || img.Bounds().Dy() != 256 {
		t.Fatalf("bounds = %v, want 512x256", img.Bounds())
	}
	if !sameColor(img.At(10, 10), red) || !sameColor(img.At(500, 10), blue) {
		t.Errorf("pixels = %v / %v, want red / blue", img.At(10, 10), img.At(500, 10))
	}
}

func TestBuild_SkipsMissingAndUndecodable(t *testing.T) {
	store := tiles.NewMemoryStore()
	store.Put(tileCoord(4, 6, 7), solidTile(t, blue))
	store.Put(tileCoord(4, 7, 7), []byte("corrupt"))

	geom := tiles.TileBound(5, 7, 4).Union(tiles.TileBound(7, 7, 4)).ToPolygon()
	img, err := New(store).Build(context.Background(), "ctx", "B01", 4, geom)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if img.Bounds().Dx() != 256 {
		t.Errorf("width = %d, want only the decodable tile", img.Bounds().Dx())
	}
}

func TestBuild_NoCoverage(t *testing.T) {
	geom := tiles.TileBound(5, 7, 4).ToPolygon()
	_, err := New(tiles.NewMemoryStore()).Build(context.Background(), "ctx", "B01", 4, geom)
	if !errors.Is(err, ErrNoCoverage) {
		t.Errorf("err = %v, want ErrNoCoverage", err)
	}
}

func TestBuild_Point(t *testing.T) {
	store := tiles.NewMemoryStore()
	store.Put(tileCoord(4, 5, 7), solidTile(t, red))
	tb := tiles.TileBound(5, 7, 4)

	img, err := New(store).Build(context.Background(), "ctx", "B01", 4, tb.Center())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if img.Bounds().Dx() != 256 || img.Bounds().Dy() != 256 {
		t.Errorf("bounds = %v, want full tile", img.Bounds())
	}
}

func TestBuild_TooManyTiles(t *testing.T) {
	world := orb.Bound{Min: orb.Point{-180, -85}, Max: orb.Point{180, 85}}.ToPolygon()
	_, err := New(tiles.NewMemoryStore(), WithMaxTiles(16)).Build(context.Background(), "ctx", "B01", 6, world)
	if !errors.Is(err, ErrTooManyTiles) {
		t.Errorf("err = %v, want ErrTooManyTiles", err)
	}
}

func TestBuild_PadColor(t *testing.T) {
	store := tiles.NewMemoryStore()
	store.Put(tileCoord(4, 5, 7), solidTile(t, red))
	store.Put(tileCoord(4, 6, 8), solidTile(t, blue))

	// a diagonal pair leaves the other two quadrants uncovered
	geom := orb.MultiPolygon{tiles.TileBound(5, 7, 4).ToPolygon(), tiles.TileBound(6, 8, 4).ToPolygon()}
	gray := color.NRGBA{128, 128, 128, 255}
	img, err := New(store, WithPadColor(gray)).Build(context.Background(), "ctx", "B01", 4, geom)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if img.Bounds().Dx() != 512 || img.Bounds().Dy() != 512 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	if !sameColor(img.At(400, 100), gray) {
		t.Errorf("uncovered quadrant = %v, want pad color", img.At(400, 100))
	}
}
