package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/yomitoru/yomitoru/pkg/geometry"
	"github.com/yomitoru/yomitoru/pkg/ocr"
	"github.com/yomitoru/yomitoru/pkg/ocrspace"
	"github.com/yomitoru/yomitoru/pkg/pipeline"
	"github.com/yomitoru/yomitoru/pkg/tesseract"
	"github.com/yomitoru/yomitoru/pkg/tiler"
	"github.com/yomitoru/yomitoru/pkg/vision"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract reading-order text lines from a page image",
	Long: `Extract reading-order text lines from a page image.

Tall images are split into overlapping tiles sized to the OCR service's
upload limit, recognized concurrently, and the results are merged back
into page-order lines. Tiles that fail are skipped by default; the text
from the surviving tiles is still printed.`,
	RunE: runExtract,
}

var (
	extractImagePath         string
	extractProvider          string
	extractLanguage          string
	extractEngine            int
	extractScale             bool
	extractSizeThreshold     int
	extractOverlap           float64
	extractVerticalThreshold int
	extractQuality           int
	extractConcurrency       int
	extractFailFast          bool
	extractExactDedup        bool
	extractDebugDir          string
	extractConfigPath        string
	extractOutputPath        string
	extractFormat            string
)

func init() {
	RootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractImagePath, "image", "", "Path to input image file (required)")
	extractCmd.Flags().StringVar(&extractProvider, "provider", "ocrspace", "Provider to use: ocrspace, vision, tesseract")
	extractCmd.Flags().StringVar(&extractLanguage, "language", "", "OCR language code (provider default if not specified)")
	extractCmd.Flags().IntVar(&extractEngine, "engine", 0, "OCR.space engine number (provider default if not specified)")
	extractCmd.Flags().BoolVar(&extractScale, "scale", true, "Ask the OCR service to upscale the image")
	extractCmd.Flags().IntVar(&extractSizeThreshold, "size-threshold", 0, "Tile size threshold in bytes (default 1 MiB)")
	extractCmd.Flags().Float64Var(&extractOverlap, "overlap", 0, "Tile overlap as a fraction of tile height (default 0.06)")
	extractCmd.Flags().IntVar(&extractVerticalThreshold, "vertical-threshold", 0, "Max vertical gap in pixels within one line (default 100)")
	extractCmd.Flags().IntVar(&extractQuality, "quality", 0, "JPEG quality for rendered tiles (default 90)")
	extractCmd.Flags().IntVar(&extractConcurrency, "concurrency", 0, "Max tiles recognized at once (default 3)")
	extractCmd.Flags().BoolVar(&extractFailFast, "fail-fast", false, "Abort on the first tile failure instead of skipping it")
	extractCmd.Flags().BoolVar(&extractExactDedup, "exact-dedup", false, "Deduplicate by exact coordinates instead of box overlap")
	extractCmd.Flags().StringVar(&extractDebugDir, "debug-dir", "", "Write per-stage YAML artifacts into this directory")
	extractCmd.Flags().StringVar(&extractConfigPath, "config", "", "Path to a YAML config file")
	extractCmd.Flags().StringVarP(&extractOutputPath, "output", "o", "", "Output path (prints to stdout if not specified)")
	extractCmd.Flags().StringVar(&extractFormat, "format", "text", "Output format: text, json, yaml")

	err := extractCmd.MarkFlagRequired("image")
	if err != nil {
		slog.Error("Unable to mark image as required", "err", err)
		os.Exit(1)
	}
}

func newProviderRegistry() *ocr.Registry {
	registry := ocr.NewRegistry()
	registry.Register(ocrspace.New())
	registry.Register(vision.New())
	registry.Register(tesseract.New())
	return registry
}

// closeProvider releases any connection a provider holds, like the
// vision backend's gRPC client.
func closeProvider(provider ocr.Provider) {
	if closer, ok := provider.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			slog.Warn("failed to close provider", "provider", provider.Name(), "err", err)
		}
	}
}

func runExtract(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(extractImagePath); os.IsNotExist(err) {
		return fmt.Errorf("input image file does not exist: %s", extractImagePath)
	}

	if extractConfigPath != "" {
		cfg, err := loadFileConfig(extractConfigPath)
		if err != nil {
			return err
		}
		applyExtractConfig(cmd, cfg)
	}

	registry := newProviderRegistry()
	providerInstance, err := registry.Get(extractProvider)
	if err != nil {
		return fmt.Errorf("unsupported provider %s, available: %s", extractProvider, strings.Join(registry.List(), ", "))
	}
	defer closeProvider(providerInstance)

	imageBytes, err := os.ReadFile(extractImagePath)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	opts := pipeline.Options{
		Tiling: tiler.Config{
			SizeThresholdBytes: extractSizeThreshold,
			OverlapPercentage:  extractOverlap,
		},
		OCR: ocr.Config{
			Language: extractLanguage,
			Engine:   extractEngine,
			Scale:    extractScale,
		},
		Quality:           extractQuality,
		VerticalThreshold: extractVerticalThreshold,
		ExactDedup:        extractExactDedup,
		Concurrency:       extractConcurrency,
		FailFast:          extractFailFast,
	}
	if extractDebugDir != "" {
		opts.Observer = &pipeline.ArtifactObserver{Dir: extractDebugDir}
	}

	slog.Info("Extracting text", "image", extractImagePath, "provider", providerInstance.Name())

	p := pipeline.New(providerInstance, opts)
	lines, err := p.Run(cmd.Context(), imageBytes)
	if err != nil {
		if len(lines) == 0 {
			return err
		}
		slog.Warn("Some tiles failed, output is partial", "err", err)
	}

	out, err := formatLines(lines, extractFormat)
	if err != nil {
		return err
	}
	return writeOutput(extractOutputPath, out)
}

// applyExtractConfig fills in file values for flags the user did not
// set explicitly.
func applyExtractConfig(cmd *cobra.Command, cfg fileConfig) {
	flags := cmd.Flags()
	if !flags.Changed("provider") && cfg.Provider != "" {
		extractProvider = cfg.Provider
	}
	if !flags.Changed("language") && cfg.Language != "" {
		extractLanguage = cfg.Language
	}
	if !flags.Changed("engine") && cfg.Engine != 0 {
		extractEngine = cfg.Engine
	}
	if !flags.Changed("scale") && cfg.Scale {
		extractScale = true
	}
	if !flags.Changed("size-threshold") && cfg.SizeThresholdBytes != 0 {
		extractSizeThreshold = cfg.SizeThresholdBytes
	}
	if !flags.Changed("overlap") && cfg.OverlapPercentage != 0 {
		extractOverlap = cfg.OverlapPercentage
	}
	if !flags.Changed("vertical-threshold") && cfg.VerticalThreshold != 0 {
		extractVerticalThreshold = cfg.VerticalThreshold
	}
	if !flags.Changed("quality") && cfg.Quality != 0 {
		extractQuality = cfg.Quality
	}
	if !flags.Changed("concurrency") && cfg.Concurrency != 0 {
		extractConcurrency = cfg.Concurrency
	}
}

func formatLines(lines []geometry.Line, format string) (string, error) {
	switch format {
	case "text":
		texts := make([]string, 0, len(lines))
		for _, line := range lines {
			texts = append(texts, line.Text)
		}
		return strings.Join(texts, "\n") + "\n", nil
	case "json":
		data, err := json.MarshalIndent(lines, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	case "yaml":
		data, err := yaml.Marshal(lines)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported format %s, expected text, json, or yaml", format)
	}
}

func writeOutput(path, content string) error {
	if path != "" {
		return os.WriteFile(path, []byte(content), 0644)
	}
	fmt.Print(content)
	return nil
}
