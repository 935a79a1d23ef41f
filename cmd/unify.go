package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var unifyOut string

var unifyCmd = &cobra.Command{
	Use:   "unify",
	Short: "Run one unification pass over the configured sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		ds, err := e.Hub.Dataset(cmd.Context(), true)
		if err != nil {
			return err
		}

		zap.L().Info("unification complete",
			zap.Int("records", len(ds.Contractors)),
			zap.Int("with_campaign", ds.Metrics.WithCampaign),
			zap.String("density", string(ds.Metrics.DataDensity)),
		)

		if unifyOut != "" {
			f, err := os.Create(unifyOut)
			if err != nil {
				return err
			}
			defer f.Close()

			enc := json.NewEncoder(f)
			enc.SetIndent("", "  ")
			if err := enc.Encode(ds); err != nil {
				return err
			}
			zap.L().Info("dataset written", zap.String("path", unifyOut))
		}

		return nil
	},
}

func init() {
	unifyCmd.Flags().StringVarP(&unifyOut, "out", "o", "", "write the unified dataset JSON to this path")
	rootCmd.AddCommand(unifyCmd)
}
