package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"cotacoes-ledger/internal/app"
)

var (
	exportPNGPath   string
	exportCSVPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export ledger history as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxPoints: exportMaxPoints,
		}

		outputDir := getApp().Config.Export.OutputDir
		if opts.PNGPath != "" && !filepath.IsAbs(opts.PNGPath) {
			opts.PNGPath = filepath.Join(outputDir, opts.PNGPath)
		}
		if opts.CSVPath != "" && !filepath.IsAbs(opts.CSVPath) {
			opts.CSVPath = filepath.Join(outputDir, opts.CSVPath)
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart (relative paths land in export.output_dir)")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data (relative paths land in export.output_dir)")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
}
