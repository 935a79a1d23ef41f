package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ayalamanuliber/contractor-hub/internal/model"
)

var statusYAML bool

// statusReport is the shape printed by the status command.
type statusReport struct {
	Records       int                  `json:"records" yaml:"records"`
	WithCampaign  int                  `json:"with_campaign" yaml:"with_campaign"`
	DataDensity   model.DataDensity    `json:"data_density" yaml:"data_density"`
	UIScaleMode   model.UIScaleMode    `json:"ui_scale_mode" yaml:"ui_scale_mode"`
	QualityTiers  model.QualityTiers   `json:"quality_tiers" yaml:"quality_tiers"`
	Execution     model.ExecutionState `json:"execution" yaml:"execution"`
	UnifiedAt     string               `json:"unified_at" yaml:"unified_at"`
	SchemaVersion string               `json:"schema_version" yaml:"schema_version"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print dataset and funnel status",
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

		report := statusReport{
			Records:       len(ds.Contractors),
			WithCampaign:  ds.Metrics.WithCampaign,
			DataDensity:   ds.Metrics.DataDensity,
			UIScaleMode:   ds.Metrics.UIScaleMode,
			QualityTiers:  ds.Metrics.QualityTiers,
			Execution:     e.Hub.Execution(),
			UnifiedAt:     ds.UnifiedAt.Format("2006-01-02 15:04:05 MST"),
			SchemaVersion: ds.DatabaseInfo.Version,
		}

		if statusYAML {
			return yaml.NewEncoder(os.Stdout).Encode(report)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusYAML, "yaml", false, "emit YAML instead of JSON")
	rootCmd.AddCommand(statusCmd)
}
