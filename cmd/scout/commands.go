package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"runner-scout/internal/alert"
	"runner-scout/internal/domain"
)

const shutdownTimeout = 30 * time.Second

func newRunCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll sources continuously and emit alerts every cycle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := buildApp(ctx, cfg)
			if err != nil {
				log.Error().Err(err).Msg("startup failed")
				return err
			}
			defer a.Close()

			done := make(chan struct{})
			defer close(done)
			watchSignals(cancel, done)

			return a.Run(ctx)
		},
	}
}

func newOnceCmd(flags *rootFlags) *cobra.Command {
	var printJSON bool

	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single poll cycle and print its alerts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			cfg.Server.Enabled = new(bool)

			var emitted []domain.Alert
			capture := alert.Sink{Name: "stdout", Emitter: alert.EmitterFunc(func(_ context.Context, c alert.Cycle) error {
				emitted = c.Alerts
				return nil
			})}

			a, err := buildApp(cmd.Context(), cfg, capture)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.pipeline.RunCycle(cmd.Context())
			if err != nil {
				log.Warn().Err(err).Msg("emit failed")
			}

			out := cmd.OutOrStdout()
			if printJSON {
				payloads := alert.Payloads(emitted)
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(payloads)
			}
			fmt.Fprintf(out, "cycle %d: %d candidates, %d alerts, %d source errors\n",
				report.CycleID, report.Candidates, report.Alerts, report.SourceErrors)
			for _, al := range emitted {
				fmt.Fprintf(out, "\n%s\n", alert.Format(al))
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&printJSON, "json", false, "Print alerts as JSON")
	return cmd
}

func newConfigCmd(flags *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			enabled := 0
			for _, s := range cfg.Sources {
				if s.IsEnabled() {
					enabled++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config ok: %d sources (%d enabled), poll every %s, cooldown %s\n",
				len(cfg.Sources), enabled, cfg.PollInterval, cfg.Cooldown)
			return nil
		},
	})
	return cfgCmd
}

// watchSignals cancels on the first SIGINT/SIGTERM and exits on a second
// one or when shutdown takes longer than shutdownTimeout.
func watchSignals(cancel context.CancelFunc, done <-chan struct{}) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("shutting down")
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigCh:
			log.Warn().Str("signal", sig.String()).Msg("second signal, forcing exit")
			os.Exit(1)
		case <-time.After(shutdownTimeout):
			log.Warn().Dur("timeout", shutdownTimeout).Msg("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()
}
