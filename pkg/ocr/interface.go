// Package ocr defines the boundary between the tiling pipeline and the
// recognition backends that turn tile bytes into text detections.
package ocr

import (
	"context"
	"time"

	"github.com/yomitoru/yomitoru/pkg/geometry"
)

// Config carries the recognition settings shared by all providers.
type Config struct {
	// Language is the recognition language code the provider expects
	// (e.g. "jpn" for OCR.space, "ja" as a Cloud Vision hint).
	Language string
	// Engine selects the service-side recognition engine where the
	// provider supports more than one.
	Engine int
	// Scale asks the service to upscale the image before recognition.
	Scale bool
	// Timeout bounds a single request to the service.
	Timeout time.Duration
	// MaxRetries is how many times a failed service call is retried
	// with backoff before giving up.
	MaxRetries int
}

// Request is one tile's worth of work for a provider. Image holds the
// encoded tile bytes; Width and Height are the tile's pixel
// dimensions.
type Request struct {
	Image  []byte
	Width  int
	Height int
}

// Provider is implemented by every recognition backend.
type Provider interface {
	// Recognize returns the text fragments found in the tile, with
	// coordinates local to the tile. A tile containing no text yields
	// an empty slice, never an error.
	Recognize(ctx context.Context, config Config, req Request) ([]geometry.Detection, error)
	// Name returns the provider's registry name.
	Name() string
	// ValidateConfig checks provider-specific configuration without
	// touching the network, so missing credentials fail before any
	// tile is rendered.
	ValidateConfig(config Config) error
}
