// Package main generates the rotation report: a markdown summary of
// scored events with per-quarter rollups and event-study outcomes, plus
// a CSV of the top events.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"rotation-lab/internal/config"
	"rotation-lab/internal/domain"
	"rotation-lab/internal/eventstudy"
	"rotation-lab/internal/fixtures"
	"rotation-lab/internal/orchestrator"
	"rotation-lab/internal/reporting"
	"rotation-lab/internal/resolve"
	"rotation-lab/internal/rotation"
	"rotation-lab/internal/scoring"
	"rotation-lab/internal/storage"
	"rotation-lab/internal/storage/migrations"
	pgstore "rotation-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	outputDir := flag.String("output-dir", "docs", "Output directory for generated files")
	topN := flag.Int("top-n", reporting.DefaultTopEvents, "Number of top events to include")
	demo := flag.Bool("demo", false, "Scan seeded in-memory fixtures and report on the result")
	flag.Parse()

	ctx := context.Background()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	log := newLogger(cfg)

	var (
		events  storage.RotationEventStore
		studies storage.EventStudyStore
		cleanup = func() {}
	)

	if *demo {
		events, studies, err = demoScan(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("demo scan failed")
		}
	} else {
		if cfg.Postgres.DSN == "" {
			fmt.Fprintln(os.Stderr, "Error: postgres DSN must be set in the config when not running --demo")
			os.Exit(1)
		}

		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("connect postgres")
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("postgres migrations")
		}
		cleanup = pool.Close
		events = pgstore.NewRotationEventStore(pool)
		studies = pgstore.NewEventStudyStore(pool)
	}
	defer cleanup()

	generator := reporting.NewGenerator(events, studies).WithTopN(*topN)
	report, err := generator.Generate(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("generate report")
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("create output directory")
	}

	mdPath := filepath.Join(*outputDir, "ROTATION_REPORT.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		log.Fatal().Err(err).Msg("write markdown report")
	}

	csvPath := filepath.Join(*outputDir, "rotation_events.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.TopEvents)), 0o644); err != nil {
		log.Fatal().Err(err).Msg("write events csv")
	}

	log.Info().
		Int("events", report.Summary.TotalEvents).
		Int("gated", report.Summary.GatedEvents).
		Str("markdown", mdPath).
		Str("csv", csvPath).
		Msg("report written")
}

// demoScan seeds fixtures, runs the scan pipeline over them and returns
// the populated event and study stores.
func demoScan(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.RotationEventStore, storage.EventStudyStore, error) {
	s := fixtures.NewStores()
	if err := fixtures.Seed(ctx, s); err != nil {
		return nil, nil, fmt.Errorf("seed fixtures: %w", err)
	}

	params := rotation.ParamsFromConfig(cfg.Detection)
	resolver := resolve.NewChain(resolve.NewMasterStoreStrategy(s.Master))
	contexts := rotation.NewContextBuilder(resolver, s.Positions, rotation.NewCache())
	anomaly := rotation.NewAnomalyScorer(s.Positions, params)
	detector := rotation.NewDetector(contexts, s.Ownership, anomaly, params)
	signals := rotation.NewSignalDeriver(s.HF, s.ShortInt, params)

	study := eventstudy.NewRunner(
		s.Returns, s.ShortInt, s.OffExch, s.Studies,
		eventstudy.WindowsFromConfig(cfg.Study),
		log.With().Str("component", "eventstudy").Logger(),
	)

	orch := orchestrator.New(orchestrator.Options{
		Contexts:        contexts,
		Detector:        detector,
		Signals:         signals,
		Weights:         scoring.WeightsFromConfig(cfg.Scoring),
		EventStore:      s.Events,
		MicroStore:      s.Micro,
		Study:           study,
		EOWWindowDays:   cfg.Detection.EOWWindowDays,
		MicroWindowDays: 30,
		Logger:          log.With().Str("component", "orchestrator").Logger(),
	})

	bounds, err := domain.NewQuarterBounds(fixtures.QuarterStart, fixtures.QuarterEnd)
	if err != nil {
		return nil, nil, err
	}

	if _, err := orch.ScanIssuerQuarter(ctx, orchestrator.Target{
		Issuer: fixtures.Issuer,
		Symbol: fixtures.Symbol,
		Bounds: bounds,
	}); err != nil {
		return nil, nil, fmt.Errorf("scan fixtures: %w", err)
	}

	return s.Events, s.Studies, nil
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
