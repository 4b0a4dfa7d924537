package pipeline

import (
	"github.com/yomitoru/yomitoru/pkg/geometry"
	"github.com/yomitoru/yomitoru/pkg/tiler"
)

// TileContext records which tile a detection came from, in page
// coordinates. Dedup uses it to decide which overlapping copy sits
// deeper inside its tile.
type TileContext struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// NormalizedDetection is a detection translated into page coordinates,
// still carrying its source tile.
type NormalizedDetection struct {
	geometry.Detection `yaml:",inline"`
	Tile               TileContext `json:"tile" yaml:"tile"`
}

// Normalize translates tile-local detections into page coordinates by
// offsetting each Y by the tile's start row. X is unchanged since tiles
// span the full page width.
func Normalize(tile tiler.Tile, detections []geometry.Detection) []NormalizedDetection {
	tctx := TileContext{
		X:      0,
		Y:      tile.StartY,
		Width:  tile.Width,
		Height: tile.Height,
	}

	normalized := make([]NormalizedDetection, 0, len(detections))
	for _, d := range detections {
		d.Box.Y += tile.StartY
		normalized = append(normalized, NormalizedDetection{
			Detection: d,
			Tile:      tctx,
		})
	}
	return normalized
}
