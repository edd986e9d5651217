package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/rescue/config"
	"github.com/kilianp07/rescue/core/missionlog"
	"github.com/kilianp07/rescue/pkg/export"
)

var (
	logsFormat  string
	logsAlert   string
	logsVehicle string
	logsSince   time.Duration
	logsLimit   int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Export mission log records",
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().StringVar(&logsFormat, "format", "json", "output format (json or csv)")
	logsCmd.Flags().StringVar(&logsAlert, "alert", "", "only records of this alert")
	logsCmd.Flags().StringVar(&logsVehicle, "vehicle", "", "only records of this vehicle")
	logsCmd.Flags().DurationVar(&logsSince, "since", 0, "only records newer than this")
	logsCmd.Flags().IntVar(&logsLimit, "limit", 0, "keep the most recent records")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := missionlog.Open(cfg.MissionLog)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	q := missionlog.Query{AlertID: logsAlert, VehicleID: logsVehicle, Limit: logsLimit}
	if logsSince > 0 {
		q.Start = time.Now().Add(-logsSince)
	}
	recs, err := st.Query(context.Background(), q)
	if err != nil {
		return err
	}
	switch logsFormat {
	case "csv":
		return export.WriteCSV(cmd.OutOrStdout(), recs)
	case "json":
		return export.WriteJSON(cmd.OutOrStdout(), recs)
	default:
		return fmt.Errorf("unknown format %q", logsFormat)
	}
}
