package cmd

import (
	"io"

	"github.com/lehigh-university-libraries/ocrweb/pkg/providers"
	"github.com/spf13/cobra"
)

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "List the available OCR engines",
	Long:  "List every OCR engine, its default model, and whether its configuration is complete.",
	RunE: func(cmd *cobra.Command, args []string) error {
		printEngines(cmd.OutOrStdout(), newRegistry())
		return nil
	},
}

func init() {
	RootCmd.AddCommand(enginesCmd)
}

func printEngines(w io.Writer, registry *providers.Registry) {
	var rows [][]string
	for _, name := range registry.List() {
		engine, err := registry.Get(name)
		if err != nil {
			continue
		}
		model := getDefaultModel(name)
		if model == "" {
			model = "-"
		}
		status := "ready"
		if err := engine.ValidateConfig(providers.Config{Languages: providers.DefaultLanguages}); err != nil {
			status = err.Error()
		}
		rows = append(rows, []string{name, model, status})
	}
	printTable(w, []string{"Engine", "Model", "Status"}, rows)
}
