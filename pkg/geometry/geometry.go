// Package geometry holds the shared value types the OCR pipeline
// passes between stages. Everything here is plain structural data so
// results survive a JSON/HTTP boundary unchanged.
package geometry

// BoundingBox is an axis-aligned pixel rectangle. It describes either
// a detected text fragment's extent or the full-image region a tile
// covers.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Right returns the exclusive right edge.
func (b BoundingBox) Right() int {
	return b.X + b.Width
}

// Bottom returns the exclusive bottom edge.
func (b BoundingBox) Bottom() int {
	return b.Y + b.Height
}

// Area returns the box area in pixels.
func (b BoundingBox) Area() int {
	return b.Width * b.Height
}

// IntersectionArea returns the area shared by b and other, or 0 when
// they do not overlap.
func (b BoundingBox) IntersectionArea(other BoundingBox) int {
	w := min(b.Right(), other.Right()) - max(b.X, other.X)
	h := min(b.Bottom(), other.Bottom()) - max(b.Y, other.Y)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Enclose returns the minimal rectangle containing every box in boxes.
// An empty input returns the zero box.
func Enclose(boxes []BoundingBox) BoundingBox {
	if len(boxes) == 0 {
		return BoundingBox{}
	}

	minX, minY := boxes[0].X, boxes[0].Y
	maxX, maxY := boxes[0].Right(), boxes[0].Bottom()

	for _, b := range boxes[1:] {
		minX = min(minX, b.X)
		minY = min(minY, b.Y)
		maxX = max(maxX, b.Right())
		maxY = max(maxY, b.Bottom())
	}

	return BoundingBox{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// Detection is one OCR-reported text fragment. Coordinates are
// tile-local when a provider produces it and full-image after the
// normalizer has run.
type Detection struct {
	Text string      `json:"text"`
	Box  BoundingBox `json:"bbox"`
}

// Line is the pipeline's terminal output: one reading-order cluster of
// detections with its space-joined text and minimal enclosing box.
type Line struct {
	Text string      `json:"text"`
	Box  BoundingBox `json:"bbox"`
}
