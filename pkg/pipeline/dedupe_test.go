package pipeline

import (
	"testing"

	"github.com/yomitoru/yomitoru/pkg/geometry"
)

func det(text string, x, y, w, h int, tile TileContext) NormalizedDetection {
	return NormalizedDetection{
		Detection: geometry.Detection{
			Text: text,
			Box:  geometry.BoundingBox{X: x, Y: y, Width: w, Height: h},
		},
		Tile: tile,
	}
}

// renormalize wraps already-deduplicated detections in a page-sized
// tile so a pass can be run over them again.
func renormalize(detections []geometry.Detection, pageHeight int) []NormalizedDetection {
	out := make([]NormalizedDetection, 0, len(detections))
	for _, d := range detections {
		out = append(out, NormalizedDetection{
			Detection: d,
			Tile:      TileContext{Y: 0, Width: 800, Height: pageHeight},
		})
	}
	return out
}

func TestDeduplicate(t *testing.T) {
	tileA := TileContext{Y: 0, Width: 800, Height: 600}
	tileB := TileContext{Y: 500, Width: 800, Height: 600}

	t.Run("same word from two overlapping tiles collapses", func(t *testing.T) {
		detections := []NormalizedDetection{
			det("word", 100, 520, 50, 30, tileA),
			det("word", 100, 521, 50, 30, tileB),
		}
		got := Deduplicate(detections, 0)
		if len(got) != 1 {
			t.Fatalf("expected 1 detection, got %d", len(got))
		}
	})

	t.Run("deeper copy wins", func(t *testing.T) {
		// In tileA the word is 50px from the bottom edge; in tileB it
		// is only 20px from the top edge.
		detections := []NormalizedDetection{
			det("shallow", 100, 520, 50, 30, tileB),
			det("deep", 100, 520, 50, 30, tileA),
		}
		got := Deduplicate(detections, 0)
		if len(got) != 1 {
			t.Fatalf("expected 1 detection, got %d", len(got))
		}
		if got[0].Text != "deep" {
			t.Errorf("kept %q, want the copy further from its tile edge", got[0].Text)
		}
	})

	t.Run("tile context stripped from output", func(t *testing.T) {
		got := Deduplicate([]NormalizedDetection{det("word", 100, 520, 50, 30, tileA)}, 0)
		want := geometry.Detection{Text: "word", Box: geometry.BoundingBox{X: 100, Y: 520, Width: 50, Height: 30}}
		if got[0] != want {
			t.Errorf("got %+v, want %+v", got[0], want)
		}
	})

	t.Run("distinct words survive", func(t *testing.T) {
		detections := []NormalizedDetection{
			det("one", 10, 10, 40, 16, tileA),
			det("two", 200, 10, 40, 16, tileA),
			det("three", 10, 300, 40, 16, tileA),
		}
		got := Deduplicate(detections, 0)
		if len(got) != 3 {
			t.Errorf("expected 3 detections, got %d", len(got))
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		detections := []NormalizedDetection{
			det("word", 100, 520, 50, 30, tileA),
			det("word", 101, 520, 50, 30, tileB),
			det("other", 400, 100, 40, 16, tileA),
		}
		once := Deduplicate(detections, 0)
		twice := Deduplicate(renormalize(once, 1100), 0)
		if len(once) != len(twice) {
			t.Errorf("second pass changed count: %d -> %d", len(once), len(twice))
		}
	})

	t.Run("slight overlap below threshold is kept", func(t *testing.T) {
		detections := []NormalizedDetection{
			det("a", 0, 0, 100, 100, tileA),
			det("b", 80, 80, 100, 100, tileA),
		}
		got := Deduplicate(detections, 0.5)
		if len(got) != 2 {
			t.Errorf("expected 2 detections, got %d", len(got))
		}
	})

	t.Run("small box inside large box is a duplicate", func(t *testing.T) {
		detections := []NormalizedDetection{
			det("big", 0, 0, 200, 100, tileA),
			det("small", 50, 25, 40, 20, tileA),
		}
		got := Deduplicate(detections, 0.5)
		if len(got) != 1 {
			t.Errorf("expected containment to collapse, got %d detections", len(got))
		}
	})
}

func TestDeduplicateExact(t *testing.T) {
	tileA := TileContext{Y: 0, Width: 800, Height: 600}
	tileB := TileContext{Y: 500, Width: 800, Height: 600}

	t.Run("coordinates on the same grid cell collapse", func(t *testing.T) {
		detections := []NormalizedDetection{
			det("deep", 101, 522, 50, 30, tileA),
			det("shallow", 99, 518, 50, 30, tileB),
		}
		got := DeduplicateExact(detections)
		if len(got) != 1 {
			t.Fatalf("expected 1 detection, got %d", len(got))
		}
		if got[0].Text != "deep" {
			t.Errorf("kept %q, want the deeper copy", got[0].Text)
		}
	})

	t.Run("different cells survive", func(t *testing.T) {
		detections := []NormalizedDetection{
			det("a", 100, 100, 40, 16, tileA),
			det("b", 140, 100, 40, 16, tileA),
		}
		if got := DeduplicateExact(detections); len(got) != 2 {
			t.Errorf("expected 2 detections, got %d", len(got))
		}
	})
}

func TestBoxOverlap(t *testing.T) {
	tile := TileContext{Y: 0, Width: 800, Height: 600}
	tests := []struct {
		name string
		a, b NormalizedDetection
		want float64
	}{
		{
			name: "identical boxes",
			a:    det("a", 0, 0, 100, 50, tile),
			b:    det("b", 0, 0, 100, 50, tile),
			want: 1.0,
		},
		{
			name: "disjoint boxes",
			a:    det("a", 0, 0, 100, 50, tile),
			b:    det("b", 500, 500, 100, 50, tile),
			want: 0,
		},
		{
			name: "half overlap",
			a:    det("a", 0, 0, 100, 50, tile),
			b:    det("b", 50, 0, 100, 50, tile),
			want: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := boxOverlap(tt.a, tt.b); got != tt.want {
				t.Errorf("boxOverlap() = %v, want %v", got, tt.want)
			}
		})
	}
}
