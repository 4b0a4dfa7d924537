package cmd

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/spf13/cobra"

	"github.com/yomitoru/yomitoru/pkg/tiler"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show how an image would be split into tiles",
	Long: `Show how an image would be split into tiles without calling any
OCR service. Useful for picking a size threshold and overlap before
spending API quota.`,
	RunE: runPlan,
}

var (
	planImagePath     string
	planSizeThreshold int
	planOverlap       float64
)

func init() {
	RootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVar(&planImagePath, "image", "", "Path to input image file (required)")
	planCmd.Flags().IntVar(&planSizeThreshold, "size-threshold", 0, "Tile size threshold in bytes (default 1 MiB)")
	planCmd.Flags().Float64Var(&planOverlap, "overlap", 0, "Tile overlap as a fraction of tile height (default 0.06)")

	err := planCmd.MarkFlagRequired("image")
	if err != nil {
		slog.Error("Unable to mark image as required", "err", err)
		os.Exit(1)
	}
}

func runPlan(cmd *cobra.Command, args []string) error {
	imageBytes, err := os.ReadFile(planImagePath)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	config, format, err := image.DecodeConfig(bytes.NewReader(imageBytes))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	cfg := tiler.Config{
		SizeThresholdBytes: planSizeThreshold,
		OverlapPercentage:  planOverlap,
	}
	if cfg.SizeThresholdBytes == 0 {
		cfg.SizeThresholdBytes = tiler.DefaultSizeThresholdBytes
	}
	if cfg.OverlapPercentage == 0 {
		cfg.OverlapPercentage = tiler.DefaultOverlapPercentage
	}

	spans := tiler.Plan(len(imageBytes), config.Width, config.Height, cfg)

	fmt.Printf("image: %s (%s, %dx%d, %d bytes)\n", planImagePath, format, config.Width, config.Height, len(imageBytes))
	fmt.Printf("tiles: %d\n", len(spans))
	for i, span := range spans {
		fmt.Printf("  %3d: rows %d-%d (height %d)\n", i, span.StartY, span.EndY(), span.Height)
	}
	return nil
}
