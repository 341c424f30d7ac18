package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"runner-scout/internal/aggregate"
	"runner-scout/internal/alert"
	"runner-scout/internal/clock"
	"runner-scout/internal/config"
	"runner-scout/internal/domain"
	"runner-scout/internal/enrich"
	"runner-scout/internal/filter"
	"runner-scout/internal/jsonrpc"
	"runner-scout/internal/observability"
	"runner-scout/internal/pipeline"
	"runner-scout/internal/provider"
	"runner-scout/internal/scheduler"
	"runner-scout/internal/scoring"
	"runner-scout/internal/seen"
	"runner-scout/internal/server"
	"runner-scout/internal/solana"
	"runner-scout/internal/storage"
	chstore "runner-scout/internal/storage/clickhouse"
	"runner-scout/internal/storage/memory"
	"runner-scout/internal/storage/migrations"
	pgstore "runner-scout/internal/storage/postgres"
)

// app holds the wired components of one scout process.
type app struct {
	cfg       *config.Config
	pipeline  *pipeline.Pipeline
	scheduler *scheduler.Scheduler
	server    *server.Server
	alerts    storage.AlertStore
	closers   []func() error
}

// buildApp wires every component from cfg. extra sinks receive each cycle
// after the configured ones.
func buildApp(ctx context.Context, cfg *config.Config, extra ...alert.Sink) (a *app, err error) {
	a = &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()
	clk := clock.System{}

	sources, err := buildSources(cfg)
	if err != nil {
		return a, err
	}

	enricher, err := a.buildEnricher(ctx, cfg, clk)
	if err != nil {
		return a, err
	}

	aggOpts := aggregate.Options{
		Sources:           sources,
		AlwaysRunFallback: cfg.AlwaysRunFallback,
		DefaultLimit:      cfg.FetchLimit,
	}
	if enricher != nil {
		aggOpts.Enricher = enricher
	}
	agg, err := aggregate.New(aggOpts)
	if err != nil {
		return a, err
	}

	seenState := seen.New(seen.Options{
		Cooldown: cfg.Cooldown,
		Clock:    clk,
		OnReset:  observability.RecordSeenReset,
	})

	flt, err := filter.New(filter.Options{
		Chains:          cfg.Filter.Chains,
		HighScoreCutoff: cfg.Filter.HighScoreCutoff,
		Narrative:       cfg.Filter.Narrative,
		Seen:            seenState,
	})
	if err != nil {
		return a, err
	}

	alerts, observations, err := a.buildStores(ctx, cfg)
	if err != nil {
		return a, err
	}
	a.alerts = alerts

	var hub *alert.Hub
	if cfg.Server.IsEnabled() {
		hub = alert.NewHub(nil)
		a.closers = append(a.closers, func() error { hub.Close(); return nil })
	}

	emitter, err := a.buildEmitter(cfg, alerts, hub, extra)
	if err != nil {
		return a, err
	}

	pipe, err := pipeline.New(pipeline.Options{
		Aggregator:   agg,
		Scorer:       scoring.NewScorer(cfg.Policies(), nil),
		Filter:       flt,
		Emitter:      emitter,
		Observations: observations,
		Clock:        clk,
		CycleIDBase:  clk.Now().Unix(),
	})
	if err != nil {
		return a, err
	}
	a.pipeline = pipe

	sched, err := scheduler.New(scheduler.Options{Runner: pipe, Interval: cfg.PollInterval, Clock: clk})
	if err != nil {
		return a, err
	}
	a.scheduler = sched

	if cfg.Server.IsEnabled() {
		a.server = server.New(server.Options{
			Addr:      cfg.Server.Addr,
			Scheduler: sched,
			Alerts:    alerts,
			Seen:      seenState,
			Feed:      hub,
			Clock:     clk,
		})
	}

	log.Info().
		Int("sources", len(sources)).
		Bool("enrich", enricher != nil).
		Dur("interval", cfg.PollInterval).
		Dur("cooldown", cfg.Cooldown).
		Msg("scout initialized")
	return a, nil
}

func buildSources(cfg *config.Config) ([]aggregate.Source, error) {
	var sources []aggregate.Source
	for _, sc := range cfg.Sources {
		if !sc.IsEnabled() {
			continue
		}
		spec := sc.ProviderSpec()
		spec.Client.Logger = &log.Logger
		adapter, err := provider.NewAdapter(spec)
		if err != nil {
			return nil, err
		}
		sources = append(sources, aggregate.Source{
			Adapter:      adapter,
			Group:        sc.Group,
			Limit:        sc.Limit,
			MaxMarketCap: sc.MaxMarketCap,
		})
	}
	return sources, nil
}

func (a *app) buildEnricher(ctx context.Context, cfg *config.Config, clk clock.Clock) (*enrich.Enricher, error) {
	ec := cfg.Enrich
	if !ec.Enabled() {
		return nil, nil
	}

	metaSources := make(map[domain.Chain]enrich.MetadataSource)
	if ec.SolanaRPCURL != "" {
		metaSources[domain.ChainSolana] = enrich.NewSolanaSource(solana.NewHTTPClient(ec.SolanaRPCURL), ec.HolderLimit)
	}
	if ec.AlchemyURL != "" {
		metaSources[domain.ChainEthereum] = enrich.NewEthereumSource(jsonrpc.NewClient(ec.AlchemyURL))
	}

	var cache enrich.Cache = enrich.NewMemoryCache(clk)
	if ec.RedisAddr != "" {
		rc, err := enrich.NewRedisCache(ctx, ec.RedisAddr, ec.RedisPassword, ec.RedisDB, ec.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		a.closers = append(a.closers, rc.Close)
		cache = rc
	}

	return enrich.New(enrich.Options{
		Sources:     metaSources,
		Cache:       cache,
		TTL:         ec.CacheTTL,
		MaxPerCycle: ec.MaxPerCycle,
		OnLookup: func(chain domain.Chain, outcome string) {
			observability.RecordEnrichment(chain.String(), outcome)
		},
	}), nil
}

func (a *app) buildStores(ctx context.Context, cfg *config.Config) (storage.AlertStore, storage.ObservationStore, error) {
	var alerts storage.AlertStore
	if dsn := cfg.Sinks.PostgresDSN; dsn != "" {
		pool, err := pgstore.NewPool(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		alerts = pgstore.NewAlertStore(pool)
	} else {
		alerts = memory.NewAlertStore(cfg.Sinks.MemoryAlerts)
	}

	var observations storage.ObservationStore
	if dsn := cfg.Sinks.ClickhouseDSN; dsn != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		a.closers = append(a.closers, conn.Close)
		observations = chstore.NewObservationStore(conn)
	}
	return alerts, observations, nil
}

func (a *app) buildEmitter(cfg *config.Config, alerts storage.AlertStore, hub *alert.Hub, extra []alert.Sink) (alert.Emitter, error) {
	sinks := []alert.Sink{{Name: "store", Emitter: alert.NewStoreEmitter(alerts)}}
	if cfg.Sinks.Log {
		sinks = append(sinks, alert.Sink{Name: "log", Emitter: alert.NewLogEmitter(nil)})
	}
	if len(cfg.Sinks.Kafka.Brokers) > 0 {
		k, err := alert.NewKafkaEmitter(alert.KafkaOptions{
			Brokers: cfg.Sinks.Kafka.Brokers,
			Topic:   cfg.Sinks.Kafka.Topic,
			Logger:  &log.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("kafka sink: %w", err)
		}
		a.closers = append(a.closers, k.Close)
		sinks = append(sinks, alert.Sink{Name: "kafka", Emitter: k})
	}
	if hub != nil {
		sinks = append(sinks, alert.Sink{Name: "ws", Emitter: hub})
	}
	sinks = append(sinks, extra...)
	return alert.NewMulti(alert.MultiOptions{EmitEmpty: cfg.Sinks.EmitEmpty}, sinks...), nil
}

// Run serves the status server and runs the poll loop until ctx is done.
func (a *app) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverErr := make(chan error, 1)
	if a.server != nil {
		go func() {
			serverErr <- a.server.ListenAndServe()
		}()
	}

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- a.scheduler.Run(ctx)
	}()

	var err error
	select {
	case err = <-loopErr:
	case err = <-serverErr:
		if err != nil {
			err = fmt.Errorf("status server: %w", err)
		}
		cancel()
		<-loopErr
	}

	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := a.server.Shutdown(shutdownCtx); serr != nil {
			log.Warn().Err(serr).Msg("status server shutdown")
		}
	}

	st := a.scheduler.Status()
	log.Info().Int64("cycles", st.Cycles).Int64("failures", st.Failures).Msg("scout stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases every connection opened by buildApp, newest first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}
	a.closers = nil
}
