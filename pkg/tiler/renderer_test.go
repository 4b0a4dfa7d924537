package tiler

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func testImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func TestRender(t *testing.T) {
	img := testImage(200, 600)

	tile, err := Render(img, Span{StartY: 100, Height: 250}, DefaultQuality)
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}

	if tile.StartY != 100 {
		t.Errorf("tile.StartY = %d, want 100", tile.StartY)
	}
	if tile.Width != 200 || tile.Height != 250 {
		t.Errorf("tile dimensions = %dx%d, want 200x250", tile.Width, tile.Height)
	}
	if !validJPEG(tile.Data) {
		t.Error("tile data is not a well-formed JPEG stream")
	}

	decoded, err := jpeg.Decode(bytes.NewReader(tile.Data))
	if err != nil {
		t.Fatalf("tile data does not decode: %v", err)
	}
	if decoded.Bounds().Dx() != 200 || decoded.Bounds().Dy() != 250 {
		t.Errorf("decoded tile is %dx%d, want 200x250",
			decoded.Bounds().Dx(), decoded.Bounds().Dy())
	}
}

func TestRenderFullImage(t *testing.T) {
	img := testImage(80, 120)
	tile, err := Render(img, Span{StartY: 0, Height: 120}, 0)
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if tile.Height != 120 {
		t.Errorf("tile.Height = %d, want 120", tile.Height)
	}
}

func TestRenderInvalidSpans(t *testing.T) {
	img := testImage(100, 300)

	tests := []struct {
		name string
		span Span
	}{
		{"zero height", Span{StartY: 0, Height: 0}},
		{"negative height", Span{StartY: 10, Height: -5}},
		{"negative start", Span{StartY: -1, Height: 50}},
		{"extends past bottom", Span{StartY: 280, Height: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Render(img, tt.span, DefaultQuality)
			if err == nil {
				t.Fatal("expected error, got none")
			}
			var re *RenderError
			if !errors.As(err, &re) {
				t.Errorf("expected *RenderError, got %T: %v", err, err)
			}
		})
	}
}

func TestValidJPEG(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"empty", nil, false},
		{"too short", []byte{0xFF, 0xD8}, false},
		{"valid markers", []byte{0xFF, 0xD8, 0x00, 0x01, 0xFF, 0xD9}, true},
		{"missing SOI", []byte{0x00, 0x00, 0xFF, 0xD9}, false},
		{"missing EOI", []byte{0xFF, 0xD8, 0x00, 0x00}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validJPEG(tt.data); got != tt.want {
				t.Errorf("validJPEG() = %v, want %v", got, tt.want)
			}
		})
	}
}
