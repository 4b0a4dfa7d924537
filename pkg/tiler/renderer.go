package tiler

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/disintegration/imaging"
)

// DefaultQuality is the JPEG quality factor used when rendering tiles.
const DefaultQuality = 90

// Tile is one rendered strip, ready to be sent to a recognition
// service. Data holds the strip re-encoded as JPEG.
type Tile struct {
	StartY int
	Width  int
	Height int
	Data   []byte
}

// RenderError reports a strip that could not be turned into
// structurally valid transport bytes. The tile is unusable and must
// not be sent to the recognition service.
type RenderError struct {
	StartY int
	Reason string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render tile at y=%d: %s", e.StartY, e.Reason)
}

// Render crops the span from the source image and re-encodes it as
// JPEG at the given quality (DefaultQuality when quality is outside
// (0, 100]). The encoded bytes are checked for JPEG start/end markers
// before returning so a broken encode fails here instead of wasting a
// network call.
func Render(img image.Image, span Span, quality int) (Tile, error) {
	bounds := img.Bounds()
	if span.Height <= 0 {
		return Tile{}, &RenderError{StartY: span.StartY, Reason: "span has non-positive height"}
	}
	if span.StartY < 0 || span.EndY() > bounds.Dy() {
		return Tile{}, &RenderError{
			StartY: span.StartY,
			Reason: fmt.Sprintf("span [%d, %d) outside image height %d", span.StartY, span.EndY(), bounds.Dy()),
		}
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	rect := image.Rect(bounds.Min.X, bounds.Min.Y+span.StartY, bounds.Max.X, bounds.Min.Y+span.EndY())
	strip := imaging.Crop(img, rect)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, strip, &jpeg.Options{Quality: quality}); err != nil {
		return Tile{}, &RenderError{StartY: span.StartY, Reason: err.Error()}
	}

	data := buf.Bytes()
	if !validJPEG(data) {
		return Tile{}, &RenderError{StartY: span.StartY, Reason: "encoded bytes missing JPEG markers"}
	}

	return Tile{
		StartY: span.StartY,
		Width:  strip.Bounds().Dx(),
		Height: strip.Bounds().Dy(),
		Data:   data,
	}, nil
}

// validJPEG checks the SOI and EOI markers that bracket every
// well-formed JPEG stream.
func validJPEG(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	if data[0] != 0xFF || data[1] != 0xD8 {
		return false
	}
	return data[len(data)-2] == 0xFF && data[len(data)-1] == 0xD9
}
