// Package vocab turns extracted text lines into a vocabulary list
// using an OpenAI-compatible chat completions endpoint.
package vocab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/yomitoru/yomitoru/internal/utils"
	"github.com/yomitoru/yomitoru/pkg/geometry"
	"github.com/yomitoru/yomitoru/pkg/ocr"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
)

// Entry is a single vocabulary item pulled from the page text.
type Entry struct {
	Term    string `json:"term" yaml:"term"`
	Reading string `json:"reading" yaml:"reading"`
	Meaning string `json:"meaning" yaml:"meaning"`
}

// Config controls the extraction request.
type Config struct {
	TargetLanguage string
	Model          string
	Timeout        time.Duration
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Extract sends the lines to the model and parses the vocabulary list
// it returns. Set OPENAI_BASE_URL to point at a compatible local
// server.
func Extract(ctx context.Context, lines []geometry.Line, config Config) ([]Entry, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, &ocr.ConfigError{Provider: "openai", Reason: "OPENAI_API_KEY environment variable not set"}
	}
	if len(lines) == 0 {
		return []Entry{}, nil
	}

	baseURL := os.Getenv("OPENAI_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := config.Model
	if model == "" {
		model = defaultModel
	}
	target := config.TargetLanguage
	if target == "" {
		target = "English"
	}

	texts := make([]string, 0, len(lines))
	for _, line := range lines {
		texts = append(texts, line.Text)
	}

	payload := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{
				Role: "system",
				Content: fmt.Sprintf("You are a language tutor. From the text you are given, "+
					"pick the vocabulary worth studying and reply with only a JSON array of "+
					"objects with keys term, reading, and meaning. Meanings are in %s.", target),
			},
			{Role: "user", Content: strings.Join(texts, "\n")},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(baseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	resp, err := client.Do(req)
	if err != nil {
		return nil, utils.MaskSensitiveError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &ocr.ServiceError{
			Provider:   "openai",
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("failed to decode chat response: %w", err)
	}
	if chat.Error != nil {
		return nil, &ocr.ServiceError{Provider: "openai", Message: chat.Error.Message}
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("chat response contained no choices")
	}

	content := cleanResponse(chat.Choices[0].Message.Content)
	var entries []Entry
	if err := json.Unmarshal([]byte(content), &entries); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary list: %w", err)
	}
	return entries, nil
}

// cleanResponse strips the markdown code fences models like to wrap
// JSON in.
func cleanResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
