package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/yomitoru/yomitoru/pkg/ocr"
	"github.com/yomitoru/yomitoru/pkg/pipeline"
	"github.com/yomitoru/yomitoru/pkg/vocab"
)

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Extract a vocabulary list from a page image",
	Long: `Extract a vocabulary list from a page image.

Runs the same tiled OCR pipeline as extract, then sends the recovered
lines to an OpenAI-compatible model that picks out vocabulary worth
studying, with readings and meanings.`,
	RunE: runVocab,
}

var (
	vocabImagePath      string
	vocabProvider       string
	vocabLanguage       string
	vocabTargetLanguage string
	vocabModel          string
	vocabOutputPath     string
	vocabFormat         string
)

func init() {
	RootCmd.AddCommand(vocabCmd)

	vocabCmd.Flags().StringVar(&vocabImagePath, "image", "", "Path to input image file (required)")
	vocabCmd.Flags().StringVar(&vocabProvider, "provider", "ocrspace", "Provider to use: ocrspace, vision, tesseract")
	vocabCmd.Flags().StringVar(&vocabLanguage, "language", "jpn", "OCR language code")
	vocabCmd.Flags().StringVar(&vocabTargetLanguage, "target-language", "English", "Language for the meanings")
	vocabCmd.Flags().StringVar(&vocabModel, "model", "", "Chat model to use (uses OPENAI_MODEL or a default if not specified)")
	vocabCmd.Flags().StringVarP(&vocabOutputPath, "output", "o", "", "Output path (prints to stdout if not specified)")
	vocabCmd.Flags().StringVar(&vocabFormat, "format", "yaml", "Output format: json, yaml")

	err := vocabCmd.MarkFlagRequired("image")
	if err != nil {
		slog.Error("Unable to mark image as required", "err", err)
		os.Exit(1)
	}
}

func runVocab(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(vocabImagePath); os.IsNotExist(err) {
		return fmt.Errorf("input image file does not exist: %s", vocabImagePath)
	}

	registry := newProviderRegistry()
	providerInstance, err := registry.Get(vocabProvider)
	if err != nil {
		return fmt.Errorf("unsupported provider: %s", vocabProvider)
	}
	defer closeProvider(providerInstance)

	imageBytes, err := os.ReadFile(vocabImagePath)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	p := pipeline.New(providerInstance, pipeline.Options{
		OCR: ocr.Config{Language: vocabLanguage, Scale: true},
	})
	lines, err := p.Run(cmd.Context(), imageBytes)
	if err != nil {
		if len(lines) == 0 {
			return err
		}
		slog.Warn("Some tiles failed, vocabulary is from partial text", "err", err)
	}

	model := vocabModel
	if model == "" {
		model = os.Getenv("OPENAI_MODEL")
	}

	slog.Info("Extracting vocabulary", "lines", len(lines), "target_language", vocabTargetLanguage)

	entries, err := vocab.Extract(cmd.Context(), lines, vocab.Config{
		TargetLanguage: vocabTargetLanguage,
		Model:          model,
	})
	if err != nil {
		return fmt.Errorf("failed to extract vocabulary: %w", err)
	}

	var out string
	switch vocabFormat {
	case "json":
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		out = string(data) + "\n"
	case "yaml":
		data, err := yaml.Marshal(entries)
		if err != nil {
			return err
		}
		out = string(data)
	default:
		return fmt.Errorf("unsupported format %s, expected json or yaml", vocabFormat)
	}

	return writeOutput(vocabOutputPath, out)
}
