// Package config loads the YAML configuration file, applies defaults
// and validates the result. Every statistical constant the engine uses
// lives here so deployments can tune them without code changes.
package config

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config is the root configuration.
type Config struct {
	Logging struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	} `yaml:"logging"`

	Postgres struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`

	ClickHouse struct {
		DSN string `yaml:"dsn"`
	} `yaml:"clickhouse"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr" default:":9180"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Detection DetectionConfig `yaml:"detection"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Study     StudyConfig     `yaml:"study"`
}

// DetectionConfig holds dump detection and anomaly scoring constants.
type DetectionConfig struct {
	// MinDumpPct is the minimum fractional reduction that qualifies as a
	// dump. A delta exactly at -MinDumpPct qualifies.
	MinDumpPct float64 `yaml:"min_dump_pct" default:"0.30" validate:"gt=0,lte=1"`

	// MinHistoryObservations is the number of historical quarterly
	// reduction observations required before the robust z-score is
	// trusted over the coarse fallback.
	MinHistoryObservations int `yaml:"min_history_observations" default:"12" validate:"gt=0"`

	// FallbackZ is the anomaly score assigned to large reductions when
	// history is too sparse for a robust z-score.
	FallbackZ float64 `yaml:"fallback_z" default:"2.0" validate:"gte=0"`

	// HistoryDays is the trailing window for holder history.
	HistoryDays int `yaml:"history_days" default:"1095" validate:"gt=0"`

	// OwnershipLookbackDays extends the beneficial-ownership scan before
	// quarter start so a prior snapshot exists to delta against.
	OwnershipLookbackDays int `yaml:"ownership_lookback_days" default:"190" validate:"gt=0"`

	// UHFBaselineDays is the pre-quarter baseline window that anchors the
	// first high-frequency delta.
	UHFBaselineDays int `yaml:"uhf_baseline_days" default:"31" validate:"gt=0"`

	// EOWWindowDays is the end-of-window span: anchors within this many
	// calendar days of the quarter end get the end-of-window attenuation.
	EOWWindowDays int `yaml:"eow_window_days" default:"5" validate:"gt=0"`
}

// ScoringConfig holds the rotation scorer gate, weights and
// end-of-window multipliers.
type ScoringConfig struct {
	ZGate float64 `yaml:"z_gate" default:"1.5" validate:"gte=0"`

	WeightDumpZ       float64 `yaml:"weight_dump_z" default:"2.0"`
	WeightUSame       float64 `yaml:"weight_u_same" default:"1.0"`
	WeightUNext       float64 `yaml:"weight_u_next" default:"0.85"`
	WeightUHFSame     float64 `yaml:"weight_uhf_same" default:"0.7"`
	WeightUHFNext     float64 `yaml:"weight_uhf_next" default:"0.6"`
	WeightOptSame     float64 `yaml:"weight_opt_same" default:"0.5"`
	WeightOptNext     float64 `yaml:"weight_opt_next" default:"0.4"`
	WeightShortRelief float64 `yaml:"weight_short_relief" default:"0.4"`

	EOWMultUNext   float64 `yaml:"eow_mult_u_next" default:"0.95" validate:"gte=0,lte=1"`
	EOWMultUHFNext float64 `yaml:"eow_mult_uhf_next" default:"0.90" validate:"gte=0,lte=1"`
	EOWMultOptNext float64 `yaml:"eow_mult_opt_next" default:"0.50" validate:"gte=0,lte=1"`

	// Microstructure extension. The sub-score moves the primary score
	// only when source confidence exceeds MicroConfidenceFloor.
	MicroConfidenceFloor  float64 `yaml:"micro_confidence_floor" default:"0.5" validate:"gte=0,lte=1"`
	MicroWeightVpinSpike  float64 `yaml:"micro_weight_vpin_spike" default:"0.5"`
	MicroWeightVpinAvg    float64 `yaml:"micro_weight_vpin_avg" default:"0.3"`
	MicroWeightLambda     float64 `yaml:"micro_weight_lambda" default:"0.3"`
	MicroWeightImbalance  float64 `yaml:"micro_weight_imbalance" default:"0.2"`
	MicroWeightBlockRatio float64 `yaml:"micro_weight_block_ratio" default:"0.2"`
	MicroWeightFlowAttr   float64 `yaml:"micro_weight_flow_attr" default:"0.3"`
}

// StudyConfig holds event-study window constants.
type StudyConfig struct {
	// PreDays/PostDays bound the return series pull around the anchor.
	PreDays  int `yaml:"pre_days" default:"10" validate:"gt=0"`
	PostDays int `yaml:"post_days" default:"120" validate:"gt=0"`

	// CovariateWindowDays bounds the off-exchange ratio average around
	// the anchor.
	CovariateWindowDays int `yaml:"covariate_window_days" default:"5" validate:"gt=0"`

	// ShortInterestHorizonDays is the forward horizon for the
	// short-interest change covariate.
	ShortInterestHorizonDays int `yaml:"short_interest_horizon_days" default:"45" validate:"gt=0"`
}

// Load reads, defaults and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Default returns a configuration with all defaults applied and no
// store DSNs set. Used by demo runs and tests.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		// Tags are static; a failure here is a programming error.
		panic(err)
	}
	return &c
}
