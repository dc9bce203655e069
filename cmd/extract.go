package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/ocrweb/pkg/ocr"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract text from a single image",
	Long: `Extract Hindi and English text from a single image, print it with its word
count, and optionally search it for a keyword or save it as JSON.`,
	RunE: runExtract,
}

var (
	extractImage   string
	extractKeyword string
	extractJSON    string
	extractEngine  engineFlags
)

func init() {
	RootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractImage, "image", "", "Path to input image file (required)")
	extractCmd.Flags().StringVar(&extractKeyword, "keyword", "", "Keyword to search for in the extracted text")
	extractCmd.Flags().StringVar(&extractJSON, "json", "", "Write the extracted text as JSON to this path")
	extractEngine.register(extractCmd)

	err := extractCmd.MarkFlagRequired("image")
	if err != nil {
		slog.Error("Unable to mark image as required", "err", err)
		os.Exit(1)
	}
}

func runExtract(cmd *cobra.Command, args []string) error {
	upload, err := os.ReadFile(extractImage)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	pipeline, err := extractEngine.pipeline()
	if err != nil {
		return err
	}

	slog.Info("Extracting text from image", "image", extractImage, "engine", pipeline.Engine())

	result := pipeline.Run(cmd.Context(), ocr.NewSession(), upload)
	if !result.Succeeded {
		return fmt.Errorf("extraction failed: %w", result.Err)
	}

	out := cmd.OutOrStdout()
	printExtraction(out, result, extractKeyword)

	if extractJSON != "" {
		data, err := ocr.ToJSON(result.Text)
		if err != nil {
			return err
		}
		if err := os.WriteFile(extractJSON, data, 0644); err != nil {
			return fmt.Errorf("failed to write JSON: %w", err)
		}
		fmt.Fprintf(out, "\nExtracted text saved to: %s\n", extractJSON)
	}

	return nil
}
