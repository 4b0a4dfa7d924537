// Package vision implements a Google Cloud Vision recognition backend
// as an alternative to the OCR.space service.
package vision

import (
	"context"
	"fmt"
	"os"
	"sync"

	visionapi "cloud.google.com/go/vision/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/yomitoru/yomitoru/pkg/geometry"
	"github.com/yomitoru/yomitoru/pkg/ocr"
)

// Provider implements the Cloud Vision backend. The underlying gRPC
// client is created once on first use and reused across tiles.
type Provider struct {
	once   sync.Once
	client *visionapi.ImageAnnotatorClient
	err    error
}

// New creates a new Cloud Vision provider
func New() *Provider {
	return &Provider{}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "vision"
}

// ValidateConfig validates the Cloud Vision configuration
func (p *Provider) ValidateConfig(config ocr.Config) error {
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		return &ocr.ConfigError{Provider: "vision", Reason: "GOOGLE_APPLICATION_CREDENTIALS environment variable not set"}
	}
	return nil
}

// Close releases the underlying client, if one was created.
func (p *Provider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

func (p *Provider) annotator(ctx context.Context) (*visionapi.ImageAnnotatorClient, error) {
	p.once.Do(func() {
		p.client, p.err = visionapi.NewImageAnnotatorClient(ctx)
	})
	if p.err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", p.err)
	}
	return p.client, nil
}

// Recognize runs Cloud Vision text detection on the tile and converts
// the word annotations into tile-local detections.
func (p *Provider) Recognize(ctx context.Context, config ocr.Config, req ocr.Request) ([]geometry.Detection, error) {
	if err := p.ValidateConfig(config); err != nil {
		return nil, err
	}

	client, err := p.annotator(ctx)
	if err != nil {
		return nil, err
	}

	var ictx *visionpb.ImageContext
	if hint := languageHint(config.Language); hint != "" {
		ictx = &visionpb.ImageContext{LanguageHints: []string{hint}}
	}

	annotations, err := client.DetectTexts(ctx, &visionpb.Image{Content: req.Image}, ictx, 0)
	if err != nil {
		return nil, &ocr.ServiceError{Provider: "vision", Message: err.Error()}
	}

	return annotationDetections(annotations), nil
}

// annotationDetections converts entity annotations to detections. The
// first annotation is the full-page text blob and is skipped; the rest
// are individual words.
func annotationDetections(annotations []*visionpb.EntityAnnotation) []geometry.Detection {
	if len(annotations) <= 1 {
		return []geometry.Detection{}
	}

	detections := make([]geometry.Detection, 0, len(annotations)-1)
	for _, a := range annotations[1:] {
		if a.GetDescription() == "" || a.GetBoundingPoly() == nil {
			continue
		}
		box, ok := polyBox(a.GetBoundingPoly())
		if !ok {
			continue
		}
		detections = append(detections, geometry.Detection{
			Text: a.GetDescription(),
			Box:  box,
		})
	}
	return detections
}

// polyBox collapses a bounding polygon to its axis-aligned box.
func polyBox(poly *visionpb.BoundingPoly) (geometry.BoundingBox, bool) {
	vertices := poly.GetVertices()
	if len(vertices) == 0 {
		return geometry.BoundingBox{}, false
	}

	minX, minY := int(vertices[0].GetX()), int(vertices[0].GetY())
	maxX, maxY := minX, minY
	for _, v := range vertices[1:] {
		minX = min(minX, int(v.GetX()))
		minY = min(minY, int(v.GetY()))
		maxX = max(maxX, int(v.GetX()))
		maxY = max(maxY, int(v.GetY()))
	}

	return geometry.BoundingBox{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}, true
}

// languageHint maps the pipeline's OCR.space-style language codes to
// the BCP-47 hints Cloud Vision expects. Unknown codes pass through.
func languageHint(language string) string {
	switch language {
	case "":
		return ""
	case "jpn":
		return "ja"
	case "eng":
		return "en"
	case "kor":
		return "ko"
	case "chs":
		return "zh"
	case "cht":
		return "zh-TW"
	default:
		return language
	}
}
