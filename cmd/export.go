package main

import (
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ayalamanuliber/contractor-hub/internal/export"
	"github.com/ayalamanuliber/contractor-hub/internal/store"
)

var (
	exportOut          string
	exportFormat       string
	exportOnlyEnhanced bool
	exportMinScore     int
	exportSince        string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the unified dataset to CSV or XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		ds, err := e.Hub.Dataset(cmd.Context(), false)
		if err != nil {
			return err
		}

		opts := export.Options{
			OnlyEnhanced:       exportOnlyEnhanced,
			MinCompletionScore: exportMinScore,
			Format:             export.Format(exportFormat),
		}
		if exportSince != "" {
			since, perr := time.Parse(time.RFC3339, exportSince)
			if perr != nil {
				return eris.Wrap(perr, "export: --since must be RFC 3339")
			}
			opts.Since = &since
		}

		path := exportOut
		if path == "" {
			name := "contractors_export_" + time.Now().UTC().Format("20060102_150405") + "." + exportFormat
			path = filepath.Join(cfg.Export.Dir, name)
		}

		result, exportErr := export.NewEngine().Export(ds.Contractors, path, opts)
		if e.Store != nil {
			logErr := e.Store.SaveExportLog(cmd.Context(), store.ExportLog{
				Path:       result.Path,
				Format:     exportFormat,
				Exported:   result.Exported,
				Skipped:    result.Skipped,
				BackupPath: result.BackupPath,
				Success:    result.Success,
				Error:      result.Error,
			})
			if logErr != nil {
				zap.L().Warn("export log persist failed", zap.Error(logErr))
			}
		}
		if exportErr != nil {
			return exportErr
		}

		zap.L().Info("export complete",
			zap.String("path", result.Path),
			zap.Int("exported", result.Exported),
			zap.Int("skipped", result.Skipped),
			zap.String("backup", result.BackupPath),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "destination path (default under the export dir)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv or xlsx")
	exportCmd.Flags().BoolVar(&exportOnlyEnhanced, "only-enhanced", false, "export only records touched after unification")
	exportCmd.Flags().IntVar(&exportMinScore, "min-score", 0, "minimum data completion score")
	exportCmd.Flags().StringVar(&exportSince, "since", "", "differential export: records updated strictly after this RFC 3339 instant")
	rootCmd.AddCommand(exportCmd)
}
