package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/rescue/api"
	"github.com/kilianp07/rescue/app"
	"github.com/kilianp07/rescue/config"
	coremon "github.com/kilianp07/rescue/core/monitoring"
	"github.com/kilianp07/rescue/infra/logger"
	"github.com/kilianp07/rescue/infra/monitoring"
)

var (
	cfgPath string
	envPath string
)

var rootCmd = &cobra.Command{
	Use:   "rescue",
	Short: "Emergency dispatch and assignment engine",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv(envPath)
	},
	RunE: run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env-file", ".env", "optional .env file with K_ overrides")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New("main")
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)
	defer coremon.Flush(2 * time.Second)

	engine, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Errorf("engine close: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	engineErr := make(chan error, 1)
	go func() { engineErr <- engine.Run(ctx) }()
	select {
	case <-engine.Ready():
	case err := <-engineErr:
		return err
	}

	serveErr := api.Serve(ctx, api.NewRouter(engine, cfg.HTTP), cfg.HTTP)
	cancel()
	if err := <-engineErr; err != nil {
		return err
	}
	return serveErr
}
