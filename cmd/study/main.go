// Package main runs a standalone abnormal-return event study for one
// issuer and anchor date, without the surrounding scan pipeline.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"rotation-lab/internal/config"
	"rotation-lab/internal/eventstudy"
	"rotation-lab/internal/fixtures"
	"rotation-lab/internal/storage"
	chstore "rotation-lab/internal/storage/clickhouse"
	"rotation-lab/internal/storage/migrations"
	pgstore "rotation-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	issuer := flag.String("issuer", "", "Issuer to study (required unless --demo)")
	symbol := flag.String("symbol", "", "Traded symbol (optional; enables covariates and persistence)")
	anchorDate := flag.String("anchor", "", "Anchor date YYYY-MM-DD (required unless --demo)")
	demo := flag.Bool("demo", false, "Run against seeded in-memory fixtures")
	flag.Parse()

	ctx := context.Background()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	log := newLogger(cfg)

	if !*demo && (*issuer == "" || *anchorDate == "") {
		fmt.Fprintln(os.Stderr, "Error: --issuer and --anchor are required, or pass --demo")
		os.Exit(1)
	}

	var (
		returns  storage.DailyReturnStore
		shortInt storage.ShortInterestStore
		offExch  storage.OffExchangeStore
		studies  storage.EventStudyStore
		cleanup  = func() {}
	)

	if *demo {
		s := fixtures.NewStores()
		if err := fixtures.Seed(ctx, s); err != nil {
			log.Fatal().Err(err).Msg("seed fixtures")
		}
		returns, shortInt, offExch, studies = s.Returns, s.ShortInt, s.OffExch, s.Studies
		*issuer = fixtures.Issuer
		*symbol = fixtures.Symbol
		*anchorDate = fixtures.AnchorDate.Format("2006-01-02")
	} else {
		if cfg.Postgres.DSN == "" || cfg.ClickHouse.DSN == "" {
			fmt.Fprintln(os.Stderr, "Error: postgres and clickhouse DSNs must be set in the config when not running --demo")
			os.Exit(1)
		}

		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("connect postgres")
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("postgres migrations")
		}
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("clickhouse migrations")
		}
		cleanup = func() {
			pool.Close()
			conn.Close()
		}

		returns = chstore.NewDailyReturnStore(conn)
		offExch = chstore.NewOffExchangeStore(conn)
		shortInt = pgstore.NewShortInterestStore(pool)
		studies = pgstore.NewEventStudyStore(pool)
	}
	defer cleanup()

	anchor, err := time.Parse("2006-01-02", *anchorDate)
	if err != nil {
		log.Fatal().Err(err).Msg("parse anchor date")
	}

	runner := eventstudy.NewRunner(
		returns, shortInt, offExch, studies,
		eventstudy.WindowsFromConfig(cfg.Study),
		log.With().Str("component", "eventstudy").Logger(),
	)

	result, err := runner.Run(ctx, *issuer, *symbol, anchor)
	if err != nil {
		log.Fatal().Err(err).Str("issuer", *issuer).Msg("event study failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatal().Err(err).Msg("encode result")
	}
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
