package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yomitoru/yomitoru/pkg/geometry"
	"github.com/yomitoru/yomitoru/pkg/tiler"
)

func TestArtifactObserver(t *testing.T) {
	dir := t.TempDir()
	o := &ArtifactObserver{Dir: filepath.Join(dir, "debug")}

	o.TilesPlanned([]tiler.Span{{StartY: 0, Height: 600}, {StartY: 550, Height: 450}})
	o.TileRecognized(tiler.Tile{StartY: 550, Width: 800, Height: 450}, []geometry.Detection{
		{Text: "w", Box: geometry.BoundingBox{X: 1, Y: 2, Width: 3, Height: 4}},
	})
	o.Grouped([]geometry.Line{{Text: "w"}})

	for _, name := range []string{"01-tiles.yaml", "02-tile-000550.yaml", "05-lines.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, "debug", name)); err != nil {
			t.Errorf("expected artifact %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "debug", "02-tile-000550.yaml"))
	if err != nil {
		t.Fatalf("failed to read tile artifact: %v", err)
	}
	if !strings.Contains(string(data), "start_y: 550") {
		t.Errorf("tile artifact missing start_y, got:\n%s", data)
	}
}

func TestArtifactObserver_BadDirDoesNotPanic(t *testing.T) {
	o := &ArtifactObserver{Dir: string([]byte{0})}
	o.Grouped([]geometry.Line{{Text: "w"}})
}
