package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/yomitoru/yomitoru/pkg/geometry"
	"github.com/yomitoru/yomitoru/pkg/tiler"
)

// Observer receives a copy of each stage's output as the pipeline
// runs. Observers must not mutate what they receive; a slow or failing
// observer never fails the run.
type Observer interface {
	TilesPlanned(spans []tiler.Span)
	TileRecognized(tile tiler.Tile, detections []geometry.Detection)
	Normalized(detections []NormalizedDetection)
	Deduplicated(detections []geometry.Detection)
	Grouped(lines []geometry.Line)
}

// NopObserver ignores every stage.
type NopObserver struct{}

func (NopObserver) TilesPlanned(spans []tiler.Span)                                  {}
func (NopObserver) TileRecognized(tile tiler.Tile, detections []geometry.Detection) {}
func (NopObserver) Normalized(detections []NormalizedDetection)                     {}
func (NopObserver) Deduplicated(detections []geometry.Detection)                    {}
func (NopObserver) Grouped(lines []geometry.Line)                                   {}

// ArtifactObserver writes each stage's output as YAML into a debug
// directory. Write failures are logged and otherwise ignored.
type ArtifactObserver struct {
	Dir string
}

func (o *ArtifactObserver) TilesPlanned(spans []tiler.Span) {
	o.write("01-tiles.yaml", spans)
}

func (o *ArtifactObserver) TileRecognized(tile tiler.Tile, detections []geometry.Detection) {
	o.write(fmt.Sprintf("02-tile-%06d.yaml", tile.StartY), map[string]any{
		"start_y":    tile.StartY,
		"width":      tile.Width,
		"height":     tile.Height,
		"detections": detections,
	})
}

func (o *ArtifactObserver) Normalized(detections []NormalizedDetection) {
	o.write("03-normalized.yaml", detections)
}

func (o *ArtifactObserver) Deduplicated(detections []geometry.Detection) {
	o.write("04-deduplicated.yaml", detections)
}

func (o *ArtifactObserver) Grouped(lines []geometry.Line) {
	o.write("05-lines.yaml", lines)
}

func (o *ArtifactObserver) write(name string, v any) {
	data, err := yaml.Marshal(v)
	if err != nil {
		slog.Warn("failed to marshal debug artifact", "name", name, "err", err)
		return
	}
	if err := os.MkdirAll(o.Dir, 0755); err != nil {
		slog.Warn("failed to create debug directory", "dir", o.Dir, "err", err)
		return
	}
	path := filepath.Join(o.Dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		slog.Warn("failed to write debug artifact", "path", path, "err", err)
	}
}
