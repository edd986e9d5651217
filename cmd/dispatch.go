package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/rescue/app"
	"github.com/kilianp07/rescue/config"
	"github.com/kilianp07/rescue/core/model"
	"github.com/kilianp07/rescue/infra/logger"
)

var (
	alertKind      string
	alertLat       float64
	alertLng       float64
	alertRequester string
	alertDesc      string
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Submit a test alert and print the assignment",
	RunE:  dispatchAlert,
}

func init() {
	dispatchCmd.Flags().StringVar(&alertKind, "kind", "ambulance", "alert kind (ambulance or fire)")
	dispatchCmd.Flags().Float64Var(&alertLat, "lat", 0, "alert latitude")
	dispatchCmd.Flags().Float64Var(&alertLng, "lng", 0, "alert longitude")
	dispatchCmd.Flags().StringVar(&alertRequester, "requester", "cli", "requester id")
	dispatchCmd.Flags().StringVar(&alertDesc, "description", "test alert", "alert description")
	rootCmd.AddCommand(dispatchCmd)
}

func dispatchAlert(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// The command shares the store with a running engine; it must not
	// compete for the MQTT client id.
	cfg.MQTT.Enabled = false
	cfg.Metrics.PrometheusAddr = ""

	logg := logger.New("dispatch-command")
	engine, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logg.Errorf("engine close: %v", err)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- engine.Run(runCtx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			logg.Errorf("engine run: %v", err)
		}
	}()
	select {
	case <-engine.Ready():
	case err := <-done:
		done <- err
		return err
	}

	sub, err := engine.SubmitAlert(ctx, model.Actor{ID: alertRequester, Role: model.RolePublic},
		model.AlertKind(alertKind), model.Location{Lat: alertLat, Lng: alertLng}, alertDesc)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	out := json.NewEncoder(cmd.OutOrStdout())
	out.SetIndent("", "  ")
	if err := out.Encode(sub); err != nil {
		return err
	}
	if sub.Assignment == nil {
		logg.Warnf("alert %s is pending: no vehicle available", sub.Alert.ID)
	}
	return nil
}
