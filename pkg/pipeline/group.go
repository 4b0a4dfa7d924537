package pipeline

import (
	"sort"
	"strings"

	"github.com/yomitoru/yomitoru/pkg/geometry"
)

// DefaultVerticalThreshold is the maximum vertical distance in pixels
// between detections that still read as the same line.
const DefaultVerticalThreshold = 100

// GroupLines clusters page-coordinate detections into reading-order
// lines. Detections are sorted top to bottom, then split into groups
// wherever the vertical gap to the previous detection exceeds the
// threshold. Within a group, words are ordered by baseline band and
// left edge. A threshold <= 0 uses the default.
func GroupLines(detections []geometry.Detection, verticalThreshold int) []geometry.Line {
	if len(detections) == 0 {
		return []geometry.Line{}
	}
	if verticalThreshold <= 0 {
		verticalThreshold = DefaultVerticalThreshold
	}

	sorted := make([]geometry.Detection, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Box.Y < sorted[j].Box.Y
	})

	lines := []geometry.Line{}
	group := []geometry.Detection{sorted[0]}
	for _, d := range sorted[1:] {
		prev := group[len(group)-1]
		if abs(d.Box.Y-prev.Box.Y) <= verticalThreshold {
			group = append(group, d)
			continue
		}
		lines = append(lines, assembleLine(group))
		group = []geometry.Detection{d}
	}
	lines = append(lines, assembleLine(group))
	return lines
}

// assembleLine orders a group's words and joins them into one line.
// Words whose tops are within a fraction of the median word height are
// treated as the same baseline band and ordered left to right; bands
// are ordered top to bottom.
func assembleLine(group []geometry.Detection) geometry.Line {
	tolerance := medianHeight(group) / 5

	ordered := make([]geometry.Detection, len(group))
	copy(ordered, group)
	sort.SliceStable(ordered, func(i, j int) bool {
		if abs(ordered[i].Box.Y-ordered[j].Box.Y) > tolerance {
			return ordered[i].Box.Y < ordered[j].Box.Y
		}
		return ordered[i].Box.X < ordered[j].Box.X
	})

	texts := make([]string, 0, len(ordered))
	boxes := make([]geometry.BoundingBox, 0, len(ordered))
	for _, d := range ordered {
		texts = append(texts, d.Text)
		boxes = append(boxes, d.Box)
	}

	return geometry.Line{
		Text: strings.Join(texts, " "),
		Box:  geometry.Enclose(boxes),
	}
}

func medianHeight(group []geometry.Detection) int {
	heights := make([]int, 0, len(group))
	for _, d := range group {
		heights = append(heights, d.Box.Height)
	}
	sort.Ints(heights)

	n := len(heights)
	if n%2 == 0 {
		return (heights[n/2-1] + heights[n/2]) / 2
	}
	return heights[n/2]
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
