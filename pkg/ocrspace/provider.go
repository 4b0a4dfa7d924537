// Package ocrspace implements the OCR.space recognition backend, the
// pipeline's primary remote service. See https://ocr.space/OCRAPI for
// the wire format.
package ocrspace

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yomitoru/yomitoru/internal/utils"
	"github.com/yomitoru/yomitoru/pkg/geometry"
	"github.com/yomitoru/yomitoru/pkg/ocr"
)

const defaultEndpoint = "https://api.ocr.space/parse/image"

// Provider implements the OCR.space backend.
type Provider struct{}

// New creates a new OCR.space provider
func New() *Provider {
	return &Provider{}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "ocrspace"
}

// ValidateConfig validates the OCR.space configuration
func (p *Provider) ValidateConfig(config ocr.Config) error {
	if os.Getenv("OCRSPACE_API_KEY") == "" {
		return &ocr.ConfigError{Provider: "ocrspace", Reason: "OCRSPACE_API_KEY environment variable not set"}
	}
	return nil
}

// parseResponse mirrors the OCR.space response envelope.
type parseResponse struct {
	ParsedResults         []parsedResult `json:"ParsedResults"`
	IsErroredOnProcessing bool           `json:"IsErroredOnProcessing"`
	ErrorMessage          flexString     `json:"ErrorMessage"`
	ErrorDetails          flexString     `json:"ErrorDetails"`
}

type parsedResult struct {
	TextOverlay       *textOverlay `json:"TextOverlay"`
	FileParseExitCode int          `json:"FileParseExitCode"`
	ParsedText        string       `json:"ParsedText"`
	ErrorMessage      flexString   `json:"ErrorMessage"`
}

type textOverlay struct {
	Lines      []overlayLine `json:"Lines"`
	HasOverlay bool          `json:"HasOverlay"`
}

type overlayLine struct {
	Words     []overlayWord `json:"Words"`
	MaxHeight float64       `json:"MaxHeight"`
	MinTop    float64       `json:"MinTop"`
}

type overlayWord struct {
	WordText string  `json:"WordText"`
	Left     float64 `json:"Left"`
	Top      float64 `json:"Top"`
	Height   float64 `json:"Height"`
	Width    float64 `json:"Width"`
}

// flexString absorbs fields the service reports either as a string or
// as an array of strings.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = flexString(strings.Join(list, "; "))
		return nil
	}
	*f = flexString(string(data))
	return nil
}

// Recognize sends the tile to OCR.space and converts the word overlay
// into tile-local detections.
func (p *Provider) Recognize(ctx context.Context, config ocr.Config, req ocr.Request) ([]geometry.Detection, error) {
	apiKey := os.Getenv("OCRSPACE_API_KEY")
	if apiKey == "" {
		return nil, &ocr.ConfigError{Provider: "ocrspace", Reason: "OCRSPACE_API_KEY environment variable not set"}
	}

	endpoint := os.Getenv("OCRSPACE_ENDPOINT")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	language := config.Language
	if language == "" {
		language = "eng"
	}
	engine := config.Engine
	if engine == 0 {
		engine = 2
	}

	form := url.Values{}
	form.Set("base64Image", "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString(req.Image))
	form.Set("language", language)
	form.Set("OCREngine", strconv.Itoa(engine))
	form.Set("scale", strconv.FormatBool(config.Scale))
	form.Set("isOverlayRequired", "true")
	body := form.Encode()

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	var resp parseResponse
	backoff := 500 * time.Millisecond
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		resp, lastErr = p.parseImage(ctx, client, endpoint, apiKey, body)
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}

	return overlayDetections(resp), nil
}

func (p *Provider) parseImage(ctx context.Context, client *http.Client, endpoint, apiKey, body string) (parseResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return parseResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("apikey", apiKey)

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return parseResponse{}, utils.MaskSensitiveError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return parseResponse{}, &ocr.ServiceError{
			Provider:   "ocrspace",
			StatusCode: httpResp.StatusCode,
			Message:    truncate(string(respBody), 500),
		}
	}

	var resp parseResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return parseResponse{}, fmt.Errorf("failed to decode OCR.space response: %w", err)
	}

	if resp.IsErroredOnProcessing {
		msg := string(resp.ErrorMessage)
		if msg == "" {
			msg = string(resp.ErrorDetails)
		}
		if msg == "" {
			msg = "processing failed"
		}
		return parseResponse{}, &ocr.ServiceError{Provider: "ocrspace", Message: msg}
	}

	return resp, nil
}

// overlayDetections flattens the overlay's line/word structure into
// detections. A result with no overlay or no words is an empty slice.
func overlayDetections(resp parseResponse) []geometry.Detection {
	detections := []geometry.Detection{}
	for _, result := range resp.ParsedResults {
		if result.TextOverlay == nil {
			continue
		}
		for _, line := range result.TextOverlay.Lines {
			for _, word := range line.Words {
				if word.WordText == "" {
					continue
				}
				detections = append(detections, geometry.Detection{
					Text: word.WordText,
					Box: geometry.BoundingBox{
						X:      int(word.Left + 0.5),
						Y:      int(word.Top + 0.5),
						Width:  int(word.Width + 0.5),
						Height: int(word.Height + 0.5),
					},
				})
			}
		}
	}
	return detections
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	// Back up so a multi-byte rune is never cut in the middle.
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit] + "... (truncated)"
}
