package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/ocrweb/internal/utils"
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "ocrweb",
	Short: "Hindi and English OCR",
	Long:  "Extract Hindi and English text from images through a web interface or the command line.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		ll, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return err
		}

		switch strings.ToUpper(ll) {
		case "DEBUG":
			level = slog.LevelDebug
		case "WARN":
			level = slog.LevelWarn
		case "ERROR":
			level = slog.LevelError
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stdout, opts))
		slog.SetDefault(logger)

		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().String("log-level", utils.Getenv("LOG_LEVEL", "INFO"), "The logging level for the command")
}
