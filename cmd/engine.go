package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/ocrweb/internal/utils"
	"github.com/lehigh-university-libraries/ocrweb/pkg/azure"
	"github.com/lehigh-university-libraries/ocrweb/pkg/claude"
	"github.com/lehigh-university-libraries/ocrweb/pkg/gemini"
	"github.com/lehigh-university-libraries/ocrweb/pkg/googlevision"
	"github.com/lehigh-university-libraries/ocrweb/pkg/ocr"
	"github.com/lehigh-university-libraries/ocrweb/pkg/ollama"
	"github.com/lehigh-university-libraries/ocrweb/pkg/openai"
	"github.com/lehigh-university-libraries/ocrweb/pkg/providers"
	"github.com/lehigh-university-libraries/ocrweb/pkg/raster"
	"github.com/lehigh-university-libraries/ocrweb/pkg/tesseract"
	"github.com/spf13/cobra"
)

// engineFlags are the OCR engine settings shared by every command that
// runs the pipeline.
type engineFlags struct {
	engine        string
	model         string
	prompt        string
	languages     []string
	temperature   float64
	timeout       time.Duration
	maxResolution int
	maxPixels     int
}

func (f *engineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.engine, "engine", utils.Getenv("OCR_ENGINE", tesseract.Name), "OCR engine: "+strings.Join(newRegistry().List(), ", "))
	cmd.Flags().StringVar(&f.model, "model", "", "Model to use (uses engine default if not specified)")
	cmd.Flags().StringVar(&f.prompt, "prompt", "", "Prompt for vision model engines (uses built-in prompt if not specified)")
	cmd.Flags().StringSliceVar(&f.languages, "lang", providers.DefaultLanguages, "Tesseract language codes to recognize")
	cmd.Flags().Float64VarP(&f.temperature, "temperature", "t", 0.0, "Temperature for vision model engines")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Per-image engine timeout (uses engine default if zero)")
	cmd.Flags().IntVar(&f.maxResolution, "max-resolution", utils.GetenvInt("OCR_MAX_RESOLUTION", 0), "Downscale images whose longest edge exceeds this many pixels (0 disables)")
	cmd.Flags().IntVar(&f.maxPixels, "max-pixels", utils.GetenvInt("OCR_MAX_PIXELS", raster.DefaultMaxPixels), "Reject images whose width times height exceeds this")
}

func (f *engineFlags) config() providers.Config {
	model := f.model
	if model == "" {
		model = getDefaultModel(f.engine)
	}
	return providers.Config{
		Provider:    f.engine,
		Model:       model,
		Prompt:      f.prompt,
		Temperature: f.temperature,
		Timeout:     f.timeout,
		Languages:   f.languages,
	}
}

// pipeline resolves the selected engine and checks its configuration.
func (f *engineFlags) pipeline(opts ...ocr.Option) (*ocr.Pipeline, error) {
	engine, err := newRegistry().Get(f.engine)
	if err != nil {
		return nil, fmt.Errorf("unsupported engine: %s", f.engine)
	}

	config := f.config()
	if err := engine.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("engine %s is not configured: %w", engine.Name(), err)
	}

	opts = append([]ocr.Option{ocr.WithMaxResolution(f.maxResolution), ocr.WithMaxPixels(f.maxPixels)}, opts...)
	return ocr.NewPipeline(engine, config, opts...), nil
}

func newRegistry() *providers.Registry {
	registry := providers.NewRegistry()
	registry.Register(tesseract.New())
	registry.Register(googlevision.New())
	registry.Register(azure.New())
	registry.Register(openai.New())
	registry.Register(claude.New())
	registry.Register(gemini.New())
	registry.Register(ollama.New())
	return registry
}

// getDefaultModel returns the model for engines that take one, honouring
// <ENGINE>_MODEL overrides.
func getDefaultModel(engine string) string {
	engine = strings.ToLower(engine)
	if model := os.Getenv(strings.ToUpper(engine) + "_MODEL"); model != "" {
		return model
	}
	switch engine {
	case "openai":
		return openai.DefaultModel
	case "claude":
		return claude.DefaultModel
	case "gemini":
		return gemini.DefaultModel
	case "ollama":
		return ollama.DefaultModel
	}
	return ""
}
