// Package pipeline turns a single tall page image into reading-order
// text lines: plan tiles, render and recognize them concurrently, then
// normalize, deduplicate, and group the detections.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/sync/errgroup"

	"github.com/yomitoru/yomitoru/pkg/geometry"
	"github.com/yomitoru/yomitoru/pkg/ocr"
	"github.com/yomitoru/yomitoru/pkg/tiler"
)

// DefaultConcurrency bounds how many tiles are rendered and recognized
// at once. Remote OCR services rate limit aggressively, so keep this
// low.
const DefaultConcurrency = 3

// Options configures a pipeline run. The zero value gets sensible
// defaults applied.
type Options struct {
	Tiling            tiler.Config
	OCR               ocr.Config
	Quality           int
	VerticalThreshold int
	OverlapThreshold  float64
	ExactDedup        bool
	Concurrency       int
	FailFast          bool
	Observer          Observer
}

func (o Options) withDefaults() Options {
	if o.Tiling.SizeThresholdBytes == 0 {
		o.Tiling.SizeThresholdBytes = tiler.DefaultSizeThresholdBytes
	}
	if o.Tiling.OverlapPercentage == 0 {
		o.Tiling.OverlapPercentage = tiler.DefaultOverlapPercentage
	}
	if o.Quality == 0 {
		o.Quality = tiler.DefaultQuality
	}
	if o.VerticalThreshold == 0 {
		o.VerticalThreshold = DefaultVerticalThreshold
	}
	if o.OverlapThreshold == 0 {
		o.OverlapThreshold = DefaultOverlapThreshold
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Observer == nil {
		o.Observer = NopObserver{}
	}
	return o
}

// TileError wraps a failure on one tile with the tile's start row.
type TileError struct {
	StartY int
	Err    error
}

func (e *TileError) Error() string {
	return fmt.Sprintf("tile at y=%d: %v", e.StartY, e.Err)
}

func (e *TileError) Unwrap() error {
	return e.Err
}

// ValidationError reports a detection the pipeline refused to keep.
type ValidationError struct {
	Reason string
	Text   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid detection %q: %s", e.Text, e.Reason)
}

// Pipeline runs the extraction stages against one provider.
type Pipeline struct {
	provider ocr.Provider
	opts     Options
}

// New creates a pipeline around the given provider.
func New(provider ocr.Provider, opts Options) *Pipeline {
	return &Pipeline{provider: provider, opts: opts.withDefaults()}
}

// Run extracts reading-order lines from an encoded page image.
//
// By default the run is best effort: tiles that fail to render or
// recognize are skipped, and their errors come back joined alongside
// the lines from the tiles that succeeded. With FailFast set, the
// first tile failure cancels the remaining tiles and Run returns only
// the error.
func (p *Pipeline) Run(ctx context.Context, imageBytes []byte) ([]geometry.Line, error) {
	if err := p.provider.ValidateConfig(p.opts.OCR); err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	bounds := img.Bounds()

	spans := tiler.Plan(len(imageBytes), bounds.Dx(), bounds.Dy(), p.opts.Tiling)
	if len(spans) == 0 {
		return nil, fmt.Errorf("image has no rows to tile")
	}
	slog.Debug("planned tiles",
		"format", format,
		"width", bounds.Dx(),
		"height", bounds.Dy(),
		"bytes", len(imageBytes),
		"tiles", len(spans))
	p.opts.Observer.TilesPlanned(spans)

	results := make([][]NormalizedDetection, len(spans))
	tileErrs := make([]error, len(spans))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, span := range spans {
		g.Go(func() error {
			detections, err := p.runTile(gctx, img, span)
			if err != nil {
				terr := &TileError{StartY: span.StartY, Err: err}
				if p.opts.FailFast {
					return terr
				}
				slog.Warn("skipping failed tile", "start_y", span.StartY, "err", err)
				tileErrs[i] = terr
				return nil
			}
			results[i] = detections
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	normalized := []NormalizedDetection{}
	for _, r := range results {
		normalized = append(normalized, r...)
	}
	normalized = dropInvalid(normalized)
	p.opts.Observer.Normalized(normalized)

	var deduped []geometry.Detection
	if p.opts.ExactDedup {
		deduped = DeduplicateExact(normalized)
	} else {
		deduped = Deduplicate(normalized, p.opts.OverlapThreshold)
	}
	p.opts.Observer.Deduplicated(deduped)

	lines := GroupLines(deduped, p.opts.VerticalThreshold)
	p.opts.Observer.Grouped(lines)
	slog.Debug("extraction complete",
		"detections", len(deduped),
		"lines", len(lines),
		"failed_tiles", countErrs(tileErrs))

	return lines, errors.Join(tileErrs...)
}

func (p *Pipeline) runTile(ctx context.Context, img image.Image, span tiler.Span) ([]NormalizedDetection, error) {
	start := time.Now()
	tile, err := tiler.Render(img, span, p.opts.Quality)
	if err != nil {
		return nil, err
	}

	detections, err := p.provider.Recognize(ctx, p.opts.OCR, ocr.Request{
		Image:  tile.Data,
		Width:  tile.Width,
		Height: tile.Height,
	})
	if err != nil {
		return nil, err
	}
	slog.Debug("tile recognized",
		"start_y", tile.StartY,
		"detections", len(detections),
		"took", time.Since(start))
	p.opts.Observer.TileRecognized(tile, detections)

	return Normalize(tile, detections), nil
}

// dropInvalid filters detections with empty text or degenerate boxes.
// The services occasionally emit both.
func dropInvalid(detections []NormalizedDetection) []NormalizedDetection {
	kept := detections[:0]
	for _, d := range detections {
		var reason string
		switch {
		case d.Text == "":
			reason = "empty text"
		case d.Box.Width <= 0 || d.Box.Height <= 0:
			reason = "non-positive box dimensions"
		}
		if reason != "" {
			verr := &ValidationError{Reason: reason, Text: d.Text}
			slog.Warn("dropping detection", "err", verr)
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

func countErrs(errs []error) int {
	n := 0
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	return n
}
