package pipeline

import "github.com/yomitoru/yomitoru/pkg/geometry"

// Overlapping tiles see the same rows twice, so a word near a tile
// boundary usually shows up in two tiles with nearly identical page
// coordinates. Deduplicate collapses those copies, preferring the copy
// that sits deeper inside its own tile since the one near a tile edge
// is more likely to be cropped mid-glyph.

// DefaultOverlapThreshold is the minimum directed overlap ratio at
// which two detections count as the same word.
const DefaultOverlapThreshold = 0.5

// Deduplicate removes detections that overlap an already accepted
// detection by at least threshold. Input order is preserved for
// accepted detections; the tile context is dropped from the output
// since nothing downstream needs it. A threshold <= 0 uses the
// default.
func Deduplicate(detections []NormalizedDetection, threshold float64) []geometry.Detection {
	if threshold <= 0 {
		threshold = DefaultOverlapThreshold
	}

	accepted := []NormalizedDetection{}
	for _, candidate := range detections {
		matched := false
		for i, kept := range accepted {
			if boxOverlap(candidate, kept) < threshold {
				continue
			}
			matched = true
			if distanceFromEdge(candidate) > distanceFromEdge(kept) {
				accepted[i] = candidate
			}
			break
		}
		if !matched {
			accepted = append(accepted, candidate)
		}
	}
	return stripContext(accepted)
}

// DeduplicateExact is a cheaper fallback that treats detections as
// duplicates only when their origins land on the same coarse grid
// cell. It misses near-duplicates with slightly different coordinates.
func DeduplicateExact(detections []NormalizedDetection) []geometry.Detection {
	type key struct{ x, y int }
	const cell = 10

	index := map[key]int{}
	accepted := []NormalizedDetection{}
	for _, candidate := range detections {
		k := key{roundTo(candidate.Box.X, cell), roundTo(candidate.Box.Y, cell)}
		if i, seen := index[k]; seen {
			if distanceFromEdge(candidate) > distanceFromEdge(accepted[i]) {
				accepted[i] = candidate
			}
			continue
		}
		index[k] = len(accepted)
		accepted = append(accepted, candidate)
	}
	return stripContext(accepted)
}

func stripContext(detections []NormalizedDetection) []geometry.Detection {
	out := make([]geometry.Detection, 0, len(detections))
	for _, d := range detections {
		out = append(out, d.Detection)
	}
	return out
}

// boxOverlap returns the larger of the two directed overlap ratios:
// intersection area over each box's own area. Using the max means a
// small box fully inside a large one still counts as a duplicate.
func boxOverlap(a, b NormalizedDetection) float64 {
	inter := a.Box.IntersectionArea(b.Box)
	if inter == 0 {
		return 0
	}

	ratio := 0.0
	if area := a.Box.Area(); area > 0 {
		ratio = float64(inter) / float64(area)
	}
	if area := b.Box.Area(); area > 0 {
		if r := float64(inter) / float64(area); r > ratio {
			ratio = r
		}
	}
	return ratio
}

// distanceFromEdge is how far the detection sits from the nearest
// horizontal edge of its source tile.
func distanceFromEdge(d NormalizedDetection) int {
	top := d.Box.Y - d.Tile.Y
	bottom := (d.Tile.Y + d.Tile.Height) - d.Box.Bottom()
	return min(top, bottom)
}

func roundTo(v, cell int) int {
	half := cell / 2
	if v < 0 {
		return (v - half) / cell * cell
	}
	return (v + half) / cell * cell
}
