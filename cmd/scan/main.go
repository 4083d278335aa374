// Package main runs the rotation scan pipeline for one issuer-quarter:
// detection → signal derivation → scoring → persistence → event study.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"rotation-lab/internal/config"
	"rotation-lab/internal/domain"
	"rotation-lab/internal/eventstudy"
	"rotation-lab/internal/fixtures"
	"rotation-lab/internal/observability"
	"rotation-lab/internal/orchestrator"
	"rotation-lab/internal/resolve"
	"rotation-lab/internal/rotation"
	"rotation-lab/internal/scoring"
	"rotation-lab/internal/storage"
	chstore "rotation-lab/internal/storage/clickhouse"
	"rotation-lab/internal/storage/migrations"
	pgstore "rotation-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	issuer := flag.String("issuer", "", "Issuer to scan (required unless --demo)")
	symbol := flag.String("symbol", "", "Traded symbol for the issuer (optional; enables event study)")
	quarterEnd := flag.String("quarter-end", "", "Quarter end date YYYY-MM-DD (required unless --demo)")
	indexPenalty := flag.Float64("index-penalty", 0, "Index rebalancing penalty subtracted from the score")
	demo := flag.Bool("demo", false, "Run against seeded in-memory fixtures")
	outputJSON := flag.Bool("json", false, "Print scored events as JSON")
	flag.Parse()

	ctx := context.Background()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	log := newLogger(cfg)

	if !*demo && (*issuer == "" || *quarterEnd == "") {
		fmt.Fprintln(os.Stderr, "Error: --issuer and --quarter-end are required, or pass --demo")
		os.Exit(1)
	}
	if !*demo && (cfg.Postgres.DSN == "" || cfg.ClickHouse.DSN == "") {
		fmt.Fprintln(os.Stderr, "Error: postgres and clickhouse DSNs must be set in the config when not running --demo")
		os.Exit(1)
	}

	var (
		stores  *scanStores
		cleanup func()
	)
	if *demo {
		stores, err = demoStores(ctx)
		cleanup = func() {}
	} else {
		stores, cleanup, err = databaseStores(ctx, cfg)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("store setup failed")
	}
	defer cleanup()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("rotation_lab")
		go serveMetrics(cfg, log)
	}

	orch := buildOrchestrator(cfg, stores, metrics, log)

	target, err := buildTarget(*demo, *issuer, *symbol, *quarterEnd, *indexPenalty)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid scan target")
	}

	result, err := orch.ScanIssuerQuarter(ctx, target)
	if err != nil {
		log.Fatal().Err(err).Str("issuer", target.Issuer).Msg("scan failed")
	}

	log.Info().
		Str("issuer", target.Issuer).
		Int("dumps_detected", result.DumpsDetected).
		Int("events_stored", result.EventsStored).
		Int("events_gated", result.EventsGated).
		Int("studies_run", result.StudiesRun).
		Msg("scan complete")

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.Events); err != nil {
			log.Fatal().Err(err).Msg("encode events")
		}
	}
}

// scanStores bundles the store interfaces the pipeline reads and writes.
type scanStores struct {
	master    storage.SecurityMasterStore
	positions storage.PositionSnapshotStore
	ownership storage.OwnershipStore
	hf        storage.HighFrequencyPositionStore
	shortInt  storage.ShortInterestStore
	returns   storage.DailyReturnStore
	offExch   storage.OffExchangeStore
	micro     storage.MicrostructureStore
	events    storage.RotationEventStore
	studies   storage.EventStudyStore
}

func demoStores(ctx context.Context) (*scanStores, error) {
	s := fixtures.NewStores()
	if err := fixtures.Seed(ctx, s); err != nil {
		return nil, fmt.Errorf("seed fixtures: %w", err)
	}
	return &scanStores{
		master:    s.Master,
		positions: s.Positions,
		ownership: s.Ownership,
		hf:        s.HF,
		shortInt:  s.ShortInt,
		returns:   s.Returns,
		offExch:   s.OffExch,
		micro:     s.Micro,
		events:    s.Events,
		studies:   s.Studies,
	}, nil
}

func databaseStores(ctx context.Context, cfg *config.Config) (*scanStores, func(), error) {
	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &scanStores{
		master:    pgstore.NewSecurityMasterStore(pool),
		positions: pgstore.NewPositionSnapshotStore(pool),
		ownership: pgstore.NewOwnershipStore(pool),
		shortInt:  pgstore.NewShortInterestStore(pool),
		events:    pgstore.NewRotationEventStore(pool),
		studies:   pgstore.NewEventStudyStore(pool),
		hf:        chstore.NewHighFrequencyPositionStore(conn),
		returns:   chstore.NewDailyReturnStore(conn),
		offExch:   chstore.NewOffExchangeStore(conn),
		micro:     chstore.NewMicrostructureStore(conn),
	}
	cleanup := func() {
		pool.Close()
		conn.Close()
	}
	return stores, cleanup, nil
}

func buildOrchestrator(cfg *config.Config, stores *scanStores, metrics *observability.Metrics, log zerolog.Logger) *orchestrator.Orchestrator {
	params := rotation.ParamsFromConfig(cfg.Detection)

	resolver := resolve.NewChain(resolve.NewMasterStoreStrategy(stores.master))
	contexts := rotation.NewContextBuilder(resolver, stores.positions, rotation.NewCache())
	anomaly := rotation.NewAnomalyScorer(stores.positions, params)
	detector := rotation.NewDetector(contexts, stores.ownership, anomaly, params)
	signals := rotation.NewSignalDeriver(stores.hf, stores.shortInt, params)

	study := eventstudy.NewRunner(
		stores.returns, stores.shortInt, stores.offExch, stores.studies,
		eventstudy.WindowsFromConfig(cfg.Study),
		log.With().Str("component", "eventstudy").Logger(),
	)

	return orchestrator.New(orchestrator.Options{
		Contexts:        contexts,
		Detector:        detector,
		Signals:         signals,
		Weights:         scoring.WeightsFromConfig(cfg.Scoring),
		EventStore:      stores.events,
		MicroStore:      stores.micro,
		Study:           study,
		Metrics:         metrics,
		EOWWindowDays:   cfg.Detection.EOWWindowDays,
		MicroWindowDays: 30,
		Logger:          log.With().Str("component", "orchestrator").Logger(),
	})
}

func buildTarget(demo bool, issuer, symbol, quarterEnd string, indexPenalty float64) (orchestrator.Target, error) {
	if demo {
		bounds, err := domain.NewQuarterBounds(fixtures.QuarterStart, fixtures.QuarterEnd)
		if err != nil {
			return orchestrator.Target{}, err
		}
		return orchestrator.Target{
			Issuer: fixtures.Issuer,
			Symbol: fixtures.Symbol,
			Bounds: bounds,
		}, nil
	}

	end, err := time.Parse("2006-01-02", quarterEnd)
	if err != nil {
		return orchestrator.Target{}, fmt.Errorf("parse quarter end: %w", err)
	}
	end = domain.QuarterEndOf(end)
	start := domain.ShiftQuarterEnd(end, -1).AddDate(0, 0, 1)

	bounds, err := domain.NewQuarterBounds(start, end)
	if err != nil {
		return orchestrator.Target{}, err
	}
	return orchestrator.Target{
		Issuer:       issuer,
		Symbol:       symbol,
		Bounds:       bounds,
		IndexPenalty: indexPenalty,
	}, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if cfg.Logging.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

func serveMetrics(cfg *config.Config, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, observability.Handler())
	if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}
