// Package tiler splits a tall comic page image into horizontal strips
// that each fit under a recognition service's per-request payload
// limit, and renders those strips into transport-ready bytes.
package tiler

// Config controls how an oversized image is split into strips.
type Config struct {
	// SizeThresholdBytes is the encoded-size budget one tile may use.
	SizeThresholdBytes int
	// OverlapPercentage is the fraction of a tile's height duplicated
	// into each neighboring tile so text cut by a strip boundary is
	// fully visible in at least one tile. Must be in [0, 1).
	OverlapPercentage float64
}

// DefaultSizeThresholdBytes matches the 1 MiB request limit of the
// free OCR.space tier.
const DefaultSizeThresholdBytes = 1 << 20

// DefaultOverlapPercentage duplicates 6% of a tile's height into each
// neighbor.
const DefaultOverlapPercentage = 0.06

// Span is one planned horizontal strip in full-image coordinates.
type Span struct {
	StartY int
	Height int
}

// EndY returns the exclusive bottom edge of the span.
func (s Span) EndY() int {
	return s.StartY + s.Height
}

// Plan computes the set of spans covering an image of the given pixel
// dimensions whose encoded form is byteLength bytes long.
//
// The plan always covers [0, imgHeight) with no gaps: the first span
// starts at 0, the last ends exactly at imgHeight, and each span's
// start never exceeds the previous span's end. Overlap extends spans
// downward into their successor but never moves the forward walk, so
// coverage holds for any overlap value.
func Plan(byteLength, imgWidth, imgHeight int, cfg Config) []Span {
	if imgWidth <= 0 || imgHeight <= 0 {
		return nil
	}
	if cfg.SizeThresholdBytes <= 0 || byteLength < cfg.SizeThresholdBytes {
		return []Span{{StartY: 0, Height: imgHeight}}
	}

	divisions := (byteLength + cfg.SizeThresholdBytes - 1) / cfg.SizeThresholdBytes
	// Never plan a tile shorter than one pixel row.
	if divisions > imgHeight {
		divisions = imgHeight
	}

	baseHeight := imgHeight / divisions
	remainder := imgHeight % divisions
	overlap := 0
	if cfg.OverlapPercentage > 0 && cfg.OverlapPercentage < 1 {
		overlap = int(float64(baseHeight) * cfg.OverlapPercentage)
	}

	spans := make([]Span, divisions)
	for i := range spans {
		baseStart := i * baseHeight

		startY := 0
		if i > 0 {
			startY = max(0, baseStart-overlap)
		}

		endY := baseStart + baseHeight
		if i == divisions-1 {
			// The remainder rows are absorbed entirely by the last tile.
			endY += remainder
		} else {
			endY += overlap
		}
		endY = min(endY, imgHeight)

		spans[i] = Span{StartY: startY, Height: endY - startY}
	}

	return spans
}
