// Package tesseract implements a local recognition backend using the
// Tesseract engine. It needs no API key and is useful for offline work
// and for exercising the pipeline without network access.
package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/yomitoru/yomitoru/pkg/geometry"
	"github.com/yomitoru/yomitoru/pkg/ocr"
)

// Provider implements the local Tesseract backend.
type Provider struct{}

// New creates a new Tesseract provider
func New() *Provider {
	return &Provider{}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "tesseract"
}

// ValidateConfig validates the Tesseract configuration. Tesseract runs
// locally and needs no credentials.
func (p *Provider) ValidateConfig(config ocr.Config) error {
	return nil
}

// Recognize runs Tesseract on the tile and converts word boxes into
// tile-local detections.
func (p *Provider) Recognize(ctx context.Context, config ocr.Config, req ocr.Request) ([]geometry.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(Language(config.Language)); err != nil {
		return nil, &ocr.ConfigError{Provider: "tesseract", Reason: fmt.Sprintf("unsupported language: %v", err)}
	}
	if err := client.SetImageFromBytes(req.Image); err != nil {
		return nil, fmt.Errorf("failed to load tile into tesseract: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, &ocr.ServiceError{Provider: "tesseract", Message: err.Error()}
	}

	detections := []geometry.Detection{}
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		r := box.Box
		detections = append(detections, geometry.Detection{
			Text: box.Word,
			Box: geometry.BoundingBox{
				X:      r.Min.X,
				Y:      r.Min.Y,
				Width:  r.Dx(),
				Height: r.Dy(),
			},
		})
	}
	return detections, nil
}

// Language maps an empty language to Tesseract's default traineddata.
func Language(language string) string {
	if language == "" {
		return "eng"
	}
	return language
}
