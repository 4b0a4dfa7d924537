package tiler

import "testing"

func TestPlanSingleTileShortcut(t *testing.T) {
	cfg := Config{SizeThresholdBytes: 1 << 20, OverlapPercentage: 0.06}
	spans := Plan(500_000, 800, 12000, cfg)

	if len(spans) != 1 {
		t.Fatalf("expected 1 span for an image under the threshold, got %d", len(spans))
	}
	if spans[0].StartY != 0 || spans[0].Height != 12000 {
		t.Errorf("expected span covering [0, 12000), got %+v", spans[0])
	}
}

func TestPlanCoverageAndBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		byteLength int
		imgHeight  int
		cfg        Config
	}{
		{
			name:       "two divisions with overlap",
			byteLength: 2_000_000,
			imgHeight:  10000,
			cfg:        Config{SizeThresholdBytes: 1 << 20, OverlapPercentage: 0.06},
		},
		{
			name:       "five divisions with overlap",
			byteLength: 5 * (1 << 20),
			imgHeight:  23456,
			cfg:        Config{SizeThresholdBytes: 1 << 20, OverlapPercentage: 0.1},
		},
		{
			name:       "zero overlap",
			byteLength: 3_500_000,
			imgHeight:  9000,
			cfg:        Config{SizeThresholdBytes: 1 << 20, OverlapPercentage: 0},
		},
		{
			name:       "height not divisible by divisions",
			byteLength: 3_000_000,
			imgHeight:  10007,
			cfg:        Config{SizeThresholdBytes: 1 << 20, OverlapPercentage: 0.05},
		},
		{
			name:       "byte length far above threshold clamps divisions",
			byteLength: 500 * (1 << 20),
			imgHeight:  100,
			cfg:        Config{SizeThresholdBytes: 1 << 20, OverlapPercentage: 0.06},
		},
		{
			name:       "short image",
			byteLength: 2_000_000,
			imgHeight:  3,
			cfg:        Config{SizeThresholdBytes: 1 << 20, OverlapPercentage: 0.06},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans := Plan(tt.byteLength, 800, tt.imgHeight, tt.cfg)
			if len(spans) == 0 {
				t.Fatal("expected at least one span")
			}

			if spans[0].StartY != 0 {
				t.Errorf("first span starts at %d, want 0", spans[0].StartY)
			}
			if got := spans[len(spans)-1].EndY(); got != tt.imgHeight {
				t.Errorf("last span ends at %d, want %d", got, tt.imgHeight)
			}
			for i, s := range spans {
				if s.Height <= 0 {
					t.Errorf("span %d has non-positive height: %+v", i, s)
				}
				if i > 0 && s.StartY > spans[i-1].EndY() {
					t.Errorf("gap between span %d (ends %d) and span %d (starts %d)",
						i-1, spans[i-1].EndY(), i, s.StartY)
				}
			}
		})
	}
}

func TestPlanOverlapAmount(t *testing.T) {
	// 4 MiB image, 1 MiB threshold: 4 divisions of a 10000px image,
	// baseHeight 2500, overlap floor(2500*0.1) = 250. Interior
	// neighbors share 2*250 rows.
	cfg := Config{SizeThresholdBytes: 1 << 20, OverlapPercentage: 0.1}
	spans := Plan(4*(1<<20), 800, 10000, cfg)

	if len(spans) != 4 {
		t.Fatalf("expected 4 spans, got %d", len(spans))
	}
	for i := 1; i < len(spans)-1; i++ {
		shared := spans[i-1].EndY() - spans[i].StartY
		if shared != 500 {
			t.Errorf("spans %d/%d share %d rows, want 500", i-1, i, shared)
		}
	}
	// First tile starts at the image edge so only extends downward.
	if spans[0].StartY != 0 {
		t.Errorf("first span starts at %d, want 0", spans[0].StartY)
	}
}

func TestPlanZeroThreshold(t *testing.T) {
	spans := Plan(5_000_000, 800, 4000, Config{SizeThresholdBytes: 0, OverlapPercentage: 0.06})
	if len(spans) != 1 {
		t.Fatalf("zero threshold should fall back to one tile, got %d", len(spans))
	}
	if spans[0].StartY != 0 || spans[0].Height != 4000 {
		t.Errorf("expected one full-image span, got %+v", spans[0])
	}
}

func TestPlanZeroOverlapTilesAreDisjoint(t *testing.T) {
	spans := Plan(3*(1<<20), 800, 9000, Config{SizeThresholdBytes: 1 << 20, OverlapPercentage: 0})
	for i := 1; i < len(spans); i++ {
		if spans[i].StartY != spans[i-1].EndY() {
			t.Errorf("spans %d and %d should be adjacent without overlap: %+v %+v",
				i-1, i, spans[i-1], spans[i])
		}
	}
}

func TestPlanRemainderAbsorbedByLastTile(t *testing.T) {
	// 3 divisions of 10007 rows: base 3335, remainder 2. The last
	// tile picks up the remainder; with zero overlap its height is
	// base+remainder exactly.
	spans := Plan(3*(1<<20), 800, 10007, Config{SizeThresholdBytes: 1 << 20})
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}
	if spans[2].Height != 3335+2 {
		t.Errorf("last span height = %d, want %d", spans[2].Height, 3337)
	}
	if spans[2].EndY() != 10007 {
		t.Errorf("last span ends at %d, want 10007", spans[2].EndY())
	}
}

func TestPlanEmptyImage(t *testing.T) {
	if spans := Plan(1000, 0, 0, Config{SizeThresholdBytes: 1 << 20}); spans != nil {
		t.Errorf("expected nil plan for empty image, got %+v", spans)
	}
}
