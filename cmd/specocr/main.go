// Command specocr is a smoke-test harness for the speculative recognition
// core: it runs one coordinated recognition over an image file, or clusters
// detection boxes supplied as JSON, and prints the resulting text blocks.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/overlaykit/specocr"
	"github.com/overlaykit/specocr/adapters/remoteocr"
	"github.com/overlaykit/specocr/adapters/sysmetrics"
	"github.com/overlaykit/specocr/adapters/tesseract"
	"github.com/overlaykit/specocr/grouping"
	"github.com/overlaykit/specocr/internal/logger"
)

var Version = "0.1.0"

var (
	configPath string
	logLevel   string
)

func main() {
	// Best effort: a .env is optional outside development.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:     "specocr",
		Short:   "Speculative OCR execution core harness",
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(os.Stderr, logLevel)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "specocr.toml", "path to TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newRecognizeCmd())
	rootCmd.AddCommand(newGroupCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRecognizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recognize <image-file>",
		Short: "Run one speculative recognition over an image and print text blocks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}

			img, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}

			engine, closeEngine, err := buildEngine(cfg)
			if err != nil {
				return err
			}
			defer closeEngine()

			metrics := sysmetrics.NewProvider(nil)
			coord := specocr.NewCoordinator(cfg.coordinatorConfig(engine, metrics))

			if !coord.TryExecute(cmd.Context(), img, "") {
				return fmt.Errorf("no speculative result was produced (rejected or failed)")
			}

			result, ok := coord.Consume("")
			if !ok {
				return fmt.Errorf("result vanished before consumption")
			}

			printResult(result, coord.GroupDetections(result.Payload.Detections))
			return nil
		},
	}
}

func newGroupCmd() *cobra.Command {
	var baseDistance float64

	cmd := &cobra.Command{
		Use:   "group",
		Short: "Cluster detection boxes (JSON array on stdin) into text blocks",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}

			var detections []grouping.DetectionBox
			if err := json.Unmarshal(raw, &detections); err != nil {
				return fmt.Errorf("failed to parse detections: %w", err)
			}

			printBlocks(grouping.Group(detections, baseDistance))
			return nil
		},
	}
	cmd.Flags().Float64Var(&baseDistance, "base-distance", specocr.DefaultBaseGroupingDistance, "base proximity distance for clustering")
	return cmd
}

// buildEngine picks the remote client when a server URL is configured and
// the local Tesseract engine otherwise.
func buildEngine(cfg *Config) (specocr.RecognitionEngine, func(), error) {
	if url := cfg.Engine.RemoteURL; url != "" {
		return remoteocr.NewClient(url), func() {}, nil
	}

	engine, err := tesseract.NewEngine(cfg.Engine.Languages...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create recognition engine: %w", err)
	}
	return engine, func() { _ = engine.Close() }, nil
}

func printResult(result *specocr.SpeculativeResult, blocks [][]grouping.DetectionBox) {
	header := color.New(color.FgCyan, color.Bold)
	header.Printf("recognized %dx%d image in %v (fingerprint %s)\n",
		result.ImageWidth, result.ImageHeight, result.ExecutionDuration, result.Fingerprint)
	printBlocks(blocks)
}

func printBlocks(blocks [][]grouping.DetectionBox) {
	label := color.New(color.FgGreen)
	for i, block := range blocks {
		// Reading order within a block: top to bottom, then left to right.
		sort.Slice(block, func(a, b int) bool {
			if block[a].Y != block[b].Y {
				return block[a].Y < block[b].Y
			}
			return block[a].X < block[b].X
		})

		label.Printf("block %d:", i+1)
		for _, box := range block {
			fmt.Printf(" %s", box.Text)
		}
		fmt.Println()
	}
}
