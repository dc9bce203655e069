package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/ocrweb/pkg/ocr"
	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"
)

// BatchConfig is everything needed to repeat a batch run.
type BatchConfig struct {
	Engine      string   `yaml:"engine"`
	Model       string   `yaml:"model,omitempty"`
	Prompt      string   `yaml:"prompt,omitempty"`
	Languages   []string `yaml:"languages"`
	Temperature float64  `yaml:"temperature,omitempty"`
	CSVPath     string   `yaml:"csv_path"`
	Dir         string   `yaml:"dir"`
	Keyword     string   `yaml:"keyword,omitempty"`
	Rows        []int    `yaml:"rows,omitempty"`
	Timestamp   string   `yaml:"timestamp"`
}

type BatchResult struct {
	Row          int    `yaml:"row"`
	Identifier   string `yaml:"identifier"`
	ImagePath    string `yaml:"image_path"`
	Succeeded    bool   `yaml:"succeeded"`
	WordCount    int    `yaml:"word_count"`
	Text         string `yaml:"text,omitempty"`
	Error        string `yaml:"error,omitempty"`
	KeywordFound *bool  `yaml:"keyword_found,omitempty"`
}

type BatchReport struct {
	Config  BatchConfig   `yaml:"config"`
	Results []BatchResult `yaml:"results"`
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Extract text from every image listed in a CSV file",
	Long: `Run every image listed in the first column of a CSV file through one OCR
session. The session history is written as CSV next to a YAML report of
each image's outcome.

You can either provide individual flags or use a previous batch report to rerun it.`,
	RunE: runBatch,
}

var (
	batchCSVPath    string
	batchConfigPath string
	batchDir        string
	batchOutput     string
	batchKeyword    string
	batchRows       []int
	batchEngine     engineFlags
)

func init() {
	RootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&batchCSVPath, "csv", "c", "", "Path to CSV file listing images")
	batchCmd.Flags().StringVar(&batchConfigPath, "config", "", "Path to previous batch report to rerun")
	batchCmd.Flags().StringVar(&batchDir, "dir", "./", "Prepend your CSV file paths with a directory")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "batches", "Directory for history CSV and YAML report")
	batchCmd.Flags().StringVar(&batchKeyword, "keyword", "", "Keyword to search for in each extracted text")
	batchCmd.Flags().IntSliceVar(&batchRows, "rows", []int{}, "Zero-based data row indexes to run the batch on, as shown in the summary (header excluded)")
	batchEngine.register(batchCmd)

	batchCmd.MarkFlagsOneRequired("csv", "config")
	batchCmd.MarkFlagsMutuallyExclusive("csv", "config")
}

func runBatch(cmd *cobra.Command, args []string) error {
	var config BatchConfig
	var err error

	if batchConfigPath != "" {
		config, err = loadBatchConfig(batchConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		batchEngine.engine = config.Engine
		batchEngine.model = config.Model
		batchEngine.prompt = config.Prompt
		batchEngine.temperature = config.Temperature
		if len(config.Languages) > 0 {
			batchEngine.languages = config.Languages
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Loaded configuration from %s\n", batchConfigPath)
	} else {
		engineConfig := batchEngine.config()
		config = BatchConfig{
			Engine:      engineConfig.Provider,
			Model:       engineConfig.Model,
			Prompt:      engineConfig.Prompt,
			Languages:   engineConfig.Languages,
			Temperature: engineConfig.Temperature,
			CSVPath:     batchCSVPath,
			Dir:         batchDir,
			Keyword:     batchKeyword,
			Timestamp:   time.Now().Format("2006-01-02_15-04-05"),
		}
	}

	if cmd.Flags().Changed("rows") {
		config.Rows = batchRows
	}
	if cmd.Flags().Changed("keyword") {
		config.Keyword = batchKeyword
	}

	pipeline, err := batchEngine.pipeline()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(batchOutput, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	images, err := readBatchImages(config.CSVPath, config.Dir, config.Rows)
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	session := ocr.NewSession()
	report := processBatch(cmd.Context(), pipeline, session, config, images)

	historyPath := filepath.Join(batchOutput, fmt.Sprintf("history_%s.csv", config.Timestamp))
	history, err := ocr.ToCSV(session.History.List())
	if err != nil {
		return fmt.Errorf("failed to export history: %w", err)
	}
	if err := os.WriteFile(historyPath, history, 0644); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}

	reportPath := filepath.Join(batchOutput, fmt.Sprintf("batch_%s.yaml", config.Timestamp))
	if err := saveBatchReport(report, reportPath); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	out := cmd.OutOrStdout()
	printBatchSummary(out, report)
	fmt.Fprintf(out, "\nBatch completed. History saved to: %s\nReport saved to: %s\n", historyPath, reportPath)

	return nil
}

func loadBatchConfig(configPath string) (BatchConfig, error) {
	var report BatchReport

	data, err := os.ReadFile(configPath)
	if err != nil {
		return BatchConfig{}, err
	}

	if err := yaml.Unmarshal(data, &report); err != nil {
		return BatchConfig{}, err
	}
	if report.Config.CSVPath == "" {
		return BatchConfig{}, fmt.Errorf("%s has no csv_path", configPath)
	}

	report.Config.Timestamp = time.Now().Format("2006-01-02_15-04-05")

	return report.Config, nil
}

type batchImage struct {
	row  int
	path string
}

// readBatchImages lists the image paths in the first CSV column, skipping
// an "image" header. rows selects data rows by zero-based index; empty
// selects all of them.
func readBatchImages(csvPath, dir string, rows []int) ([]batchImage, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	dataRows := records
	if strings.EqualFold(strings.TrimSpace(records[0][0]), "image") {
		dataRows = records[1:]
	}

	var images []batchImage
	for i, row := range dataRows {
		if len(rows) > 0 && !slices.Contains(rows, i) {
			slog.Debug("Skipping row", "row", i)
			continue
		}
		path := strings.TrimSpace(row[0])
		if path == "" {
			slog.Warn("Empty image path", "row", i)
			continue
		}
		images = append(images, batchImage{row: i, path: filepath.Join(dir, path)})
	}
	return images, nil
}

func processBatch(ctx context.Context, pipeline *ocr.Pipeline, session *ocr.Session, config BatchConfig, images []batchImage) BatchReport {
	report := BatchReport{Config: config}

	for _, img := range images {
		result := BatchResult{
			Row:        img.row,
			Identifier: filepath.Base(img.path),
			ImagePath:  img.path,
		}

		upload, err := os.ReadFile(img.path)
		if err != nil {
			slog.Error("Error reading image", "row", img.row, "image", img.path, "err", err)
			result.Error = err.Error()
			report.Results = append(report.Results, result)
			continue
		}

		extraction := pipeline.Run(ctx, session, upload)
		result.Succeeded = extraction.Succeeded
		result.WordCount = extraction.WordCount
		result.Text = extraction.Text
		result.Error = extraction.FailureReason()

		if config.Keyword != "" && extraction.Succeeded {
			found := ocr.Search(extraction.Text, config.Keyword).Found
			result.KeywordFound = &found
		}

		report.Results = append(report.Results, result)
	}

	return report
}

func saveBatchReport(report BatchReport, outputPath string) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return err
	}

	return os.WriteFile(outputPath, data, 0644)
}

func printBatchSummary(w io.Writer, report BatchReport) {
	showKeyword := report.Config.Keyword != ""
	headers := []string{"Row", "Image", "Words", "Status"}
	if showKeyword {
		headers = append(headers, "Keyword")
	}

	var rows [][]string
	succeeded := 0
	for _, r := range report.Results {
		status := "ok"
		if r.Succeeded {
			succeeded++
		} else {
			status = "Error: " + r.Error
		}
		row := []string{strconv.Itoa(r.Row), r.Identifier, strconv.Itoa(r.WordCount), status}
		if showKeyword {
			row = append(row, keywordStatus(r.KeywordFound))
		}
		rows = append(rows, row)
	}

	printTable(w, headers, rows)
	fmt.Fprintf(w, "\n%d of %d images extracted\n", succeeded, len(report.Results))
}

func keywordStatus(found *bool) string {
	switch {
	case found == nil:
		return "-"
	case *found:
		return "found"
	default:
		return "not found"
	}
}
