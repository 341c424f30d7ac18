package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"runner-scout/internal/domain"
	"runner-scout/internal/reporting"
	"runner-scout/internal/storage"
	chstore "runner-scout/internal/storage/clickhouse"
	pgstore "runner-scout/internal/storage/postgres"
)

func newReportCmd(flags *rootFlags) *cobra.Command {
	var (
		cycleID int64
		pair    string
		format  string
		topN    int
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a cycle report (or a pair history) from stored observations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if cfg.Sinks.ClickhouseDSN == "" {
				return errors.New("report needs sinks.clickhouse_dsn or CLICKHOUSE_DSN")
			}
			if (cycleID == 0) == (pair == "") {
				return errors.New("exactly one of --cycle or --pair is required")
			}

			ctx := cmd.Context()
			conn, err := chstore.NewConn(ctx, cfg.Sinks.ClickhouseDSN)
			if err != nil {
				return fmt.Errorf("connect to clickhouse: %w", err)
			}
			defer conn.Close()
			observations := chstore.NewObservationStore(conn)
			out := cmd.OutOrStdout()

			if pair != "" {
				chain, pairID, err := parsePair(pair)
				if err != nil {
					return err
				}
				history, err := observations.GetByPair(ctx, chain, pairID)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(out, reporting.RenderCSV(history))
				return err
			}

			var alerts storage.AlertStore
			if cfg.Sinks.PostgresDSN != "" {
				pool, err := pgstore.NewPool(ctx, cfg.Sinks.PostgresDSN)
				if err != nil {
					return fmt.Errorf("connect to postgres: %w", err)
				}
				defer pool.Close()
				alerts = pgstore.NewAlertStore(pool)
			}

			gen := reporting.NewGenerator(observations, alerts).
				WithTopN(topN).
				WithHighScoreCutoff(cfg.Filter.HighScoreCutoff)

			switch format {
			case "csv":
				obs, err := observations.GetByCycle(ctx, cycleID)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(out, reporting.RenderCSV(obs))
				return err
			case "md", "markdown":
				r, err := gen.Generate(ctx, cycleID)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(out, reporting.RenderMarkdown(r))
				return err
			default:
				return fmt.Errorf("unknown format %q (md, csv)", format)
			}
		},
	}
	cmd.Flags().Int64Var(&cycleID, "cycle", 0, "Cycle id to report")
	cmd.Flags().StringVar(&pair, "pair", "", "Pair history as chain/pair_id (CSV)")
	cmd.Flags().StringVar(&format, "format", "md", "Output format for --cycle (md, csv)")
	cmd.Flags().IntVar(&topN, "top", reporting.DefaultTopN, "Top observations listed")
	return cmd
}

// parsePair splits "chain/pair_id".
func parsePair(s string) (domain.Chain, string, error) {
	chain, pairID, ok := strings.Cut(s, "/")
	if !ok || domain.ParseChain(chain) == "" || pairID == "" {
		return "", "", fmt.Errorf("invalid pair %q, want chain/pair_id", s)
	}
	return domain.ParseChain(chain), pairID, nil
}
