package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/taxidispatch/app/plugins"
	"github.com/kilianp07/taxidispatch/core/dispatch/logging"
	"github.com/kilianp07/taxidispatch/core/model"
	"github.com/kilianp07/taxidispatch/pkg/export"
)

var (
	exportFormat  string
	exportAgent   string
	exportOutcome string
	exportSince   time.Duration
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the allocation log as CSV or JSON",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "output format: csv or json")
	exportCmd.Flags().StringVar(&exportAgent, "agent", "", "only decisions involving this agent")
	exportCmd.Flags().StringVar(&exportOutcome, "outcome", "", "awarded or deferred")
	exportCmd.Flags().DurationVar(&exportSince, "since", 0, "only decisions newer than this duration")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := plugins.NewLogStore(cfg.Audit)
	if err != nil {
		return fmt.Errorf("audit store: %w", err)
	}
	if store == nil {
		return fmt.Errorf("audit backend is disabled")
	}
	defer store.Close()

	q := logging.LogQuery{AgentID: model.AgentID(exportAgent), Outcome: exportOutcome}
	if exportSince > 0 {
		q.Start = time.Now().Add(-exportSince)
	}
	records, err := store.Query(cmd.Context(), q)
	if err != nil {
		return err
	}
	switch exportFormat {
	case "csv":
		return export.WriteCSV(cmd.OutOrStdout(), records)
	case "json":
		return export.WriteJSON(cmd.OutOrStdout(), records)
	default:
		return fmt.Errorf("unsupported format: %s", exportFormat)
	}
}
