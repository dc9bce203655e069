package cmd

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lehigh-university-libraries/ocrweb/internal/metrics"
	"github.com/lehigh-university-libraries/ocrweb/internal/server"
	"github.com/lehigh-university-libraries/ocrweb/internal/utils"
	"github.com/lehigh-university-libraries/ocrweb/pkg/ocr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var (
	daemonPort        string
	daemonHost        string
	daemonMaxUploadMB int64
	daemonSessionTTL  time.Duration
	daemonEngine      engineFlags
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Start the OCR web interface",
	Long: `Start a web server where images can be uploaded for Hindi and English OCR.

Each browser gets its own session holding the extraction history, keyword
search over the latest text, and JSON/CSV downloads. Prometheus metrics are
served at /metrics.`,
	RunE: runDaemon,
}

func init() {
	RootCmd.AddCommand(uiCmd)
	uiCmd.Flags().StringVar(&daemonPort, "port", utils.Getenv("PORT", "8888"), "Port to run the web server on")
	uiCmd.Flags().StringVar(&daemonHost, "host", utils.Getenv("HOST", "localhost"), "Host to bind the web server to")
	uiCmd.Flags().Int64Var(&daemonMaxUploadMB, "max-upload-mb", server.DefaultMaxUploadBytes>>20, "Largest accepted upload in megabytes")
	uiCmd.Flags().DurationVar(&daemonSessionTTL, "session-ttl", 12*time.Hour, "Forget sessions idle for this long (0 keeps them forever)")
	daemonEngine.register(uiCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	pipeline, err := daemonEngine.pipeline(ocr.WithRecorder(m))
	if err != nil {
		return err
	}

	srv, err := server.New(pipeline, m, server.Config{
		MaxUploadBytes: daemonMaxUploadMB << 20,
		SessionTTL:     daemonSessionTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(daemonHost, daemonPort)
	slog.Info("Starting OCR web interface", "engine", pipeline.Engine(), "url", fmt.Sprintf("http://%s", addr))

	return srv.ListenAndServe(ctx, addr)
}
