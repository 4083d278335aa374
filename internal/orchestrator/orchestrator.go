// Package orchestrator provides end-to-end scan orchestration.
// It coordinates: detection → signal derivation → scoring → persistence
// → event study.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/eventstudy"
	"rotation-lab/internal/rotation"
	"rotation-lab/internal/scoring"
	"rotation-lab/internal/storage"
)

// Target is one (issuer, quarter) scan unit. Symbol may be empty when
// the issuer has no traded symbol; the event study is skipped then.
type Target struct {
	Issuer       string
	Symbol       string
	Bounds       domain.QuarterBounds
	IndexPenalty float64
}

// Orchestrator coordinates the scan pipeline execution.
type Orchestrator struct {
	contexts     *rotation.ContextBuilder
	detector     *rotation.Detector
	signals      *rotation.SignalDeriver
	weights      scoring.Weights
	micro        storage.MicrostructureStore
	events       storage.RotationEventStore
	study        *eventstudy.Runner
	eowDays      int
	microWindow  int
	metrics      Recorder
	log          zerolog.Logger
}

// Recorder receives scan counters. Satisfied by
// observability.Metrics; a nil *observability.Metrics no-ops.
type Recorder interface {
	RecordDumpEvent(source string)
	RecordScan(status string, durationSeconds float64)
	RecordScanError(stage string)
}

// Options for creating Orchestrator.
type Options struct {
	// Required collaborators
	Contexts   *rotation.ContextBuilder
	Detector   *rotation.Detector
	Signals    *rotation.SignalDeriver
	Weights    scoring.Weights
	EventStore storage.RotationEventStore

	// Optional collaborators
	MicroStore storage.MicrostructureStore // nil disables the extension
	Study      *eventstudy.Runner          // nil disables event studies
	Metrics    Recorder                    // nil disables counters

	// EOWWindowDays is the length of the end-of-window attenuation span
	// at the tail of the quarter. Zero or negative disables it.
	EOWWindowDays int

	// MicroWindowDays is the microstructure aggregation span ending at
	// the anchor.
	MicroWindowDays int

	Logger zerolog.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		contexts:    opts.Contexts,
		detector:    opts.Detector,
		signals:     opts.Signals,
		weights:     opts.Weights,
		micro:       opts.MicroStore,
		events:      opts.EventStore,
		study:       opts.Study,
		eowDays:     opts.EOWWindowDays,
		microWindow: opts.MicroWindowDays,
		metrics:     opts.Metrics,
		log:         opts.Logger,
	}
}

// ScanResult contains results from one issuer-quarter scan.
type ScanResult struct {
	DumpsDetected int
	EventsStored  int
	EventsGated   int
	StudiesRun    int
	Events        []*domain.RotationEvent
}

// ScanIssuerQuarter runs the full pipeline for one target. Absence of
// data at any stage yields an empty result; collaborator failures and
// persistence failures abort the scan.
func (o *Orchestrator) ScanIssuerQuarter(ctx context.Context, target Target) (*ScanResult, error) {
	started := time.Now()
	result, err := o.scan(ctx, target)
	if err != nil {
		o.record(func(r Recorder) { r.RecordScan("error", time.Since(started).Seconds()) })
		return nil, err
	}
	o.record(func(r Recorder) { r.RecordScan("ok", time.Since(started).Seconds()) })
	return result, nil
}

func (o *Orchestrator) scan(ctx context.Context, target Target) (*ScanResult, error) {
	result := &ScanResult{}

	dumps, err := o.detector.Detect(ctx, target.Issuer, target.Bounds)
	if err != nil {
		o.record(func(r Recorder) { r.RecordScanError("detect") })
		return nil, fmt.Errorf("detect dumps for %s: %w", target.Issuer, err)
	}
	result.DumpsDetected = len(dumps)
	if len(dumps) == 0 {
		o.log.Debug().Str("issuer", target.Issuer).Msg("no dump events")
		return result, nil
	}

	// The context is cached from the detection pass; signals derive once
	// per quarter, not once per dump.
	dc, err := o.contexts.Build(ctx, target.Issuer, target.Bounds)
	if err != nil {
		o.record(func(r Recorder) { r.RecordScanError("context") })
		return nil, err
	}
	signals, err := o.signals.Derive(ctx, dc)
	if err != nil {
		o.record(func(r Recorder) { r.RecordScanError("signals") })
		return nil, fmt.Errorf("derive signals for %s: %w", target.Issuer, err)
	}

	for _, dump := range dumps {
		o.record(func(r Recorder) { r.RecordDumpEvent(dump.Source) })

		micro, err := o.microSignals(ctx, target, dump.AnchorDate)
		if err != nil {
			o.record(func(r Recorder) { r.RecordScanError("micro") })
			return nil, err
		}

		score := scoring.Score(scoring.Inputs{
			DumpZ:        dump.DumpZ,
			USame:        signals.USame,
			UNext:        signals.UNext,
			UHFSame:      signals.UHFSame,
			UHFNext:      signals.UHFNext,
			OptSame:      signals.OptSame,
			OptNext:      signals.OptNext,
			ShortRelief:  signals.ShortRelief,
			IndexPenalty: target.IndexPenalty,
			EOW:          o.isEndOfWindow(dump.AnchorDate, target.Bounds),
			Micro:        micro,
		}, o.weights)

		event := &domain.RotationEvent{
			ClusterID:    dump.ClusterID,
			Issuer:       dump.Issuer,
			Holder:       dump.Holder,
			AnchorDate:   dump.AnchorDate,
			QuarterStart: target.Bounds.Start,
			QuarterEnd:   target.Bounds.End,
			PctDelta:     dump.PctDelta,
			SharesDumped: dump.Shares,
			DumpZ:        dump.DumpZ,
			USame:        signals.USame,
			UNext:        signals.UNext,
			UHFSame:      signals.UHFSame,
			UHFNext:      signals.UHFNext,
			OptSame:      signals.OptSame,
			OptNext:      signals.OptNext,
			ShortRelief:  signals.ShortRelief,
			RScore:       score.RScore,
			Gated:        score.Gated,
		}
		if err := o.events.Upsert(ctx, event); err != nil {
			o.record(func(r Recorder) { r.RecordScanError("persist") })
			return nil, fmt.Errorf("persist rotation event %s/%s: %w", event.Issuer, event.Holder, err)
		}
		result.EventsStored++
		result.Events = append(result.Events, event)

		if !score.Gated {
			continue
		}
		result.EventsGated++

		if o.study != nil {
			if _, err := o.study.Run(ctx, target.Issuer, target.Symbol, dump.AnchorDate); err != nil {
				o.record(func(r Recorder) { r.RecordScanError("study") })
				return nil, fmt.Errorf("event study for %s: %w", target.Issuer, err)
			}
			result.StudiesRun++
		}

		o.log.Info().
			Str("issuer", event.Issuer).
			Str("holder", event.Holder).
			Str("anchor", event.AnchorDate.Format(domain.DateLayout)).
			Float64("r_score", event.RScore).
			Float64("dump_z", event.DumpZ).
			Msg("gated rotation event")
	}

	return result, nil
}

// microSignals fetches the microstructure aggregate for the window
// ending at the anchor. Absence is a valid outcome, not a failure.
func (o *Orchestrator) microSignals(ctx context.Context, target Target, anchor time.Time) (*domain.MicrostructureSignals, error) {
	if o.micro == nil || target.Symbol == "" {
		return nil, nil
	}
	from := anchor.AddDate(0, 0, -o.microWindow)
	sig, err := o.micro.GetSignals(ctx, target.Symbol, from, anchor)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("microstructure signals for %s: %w", target.Symbol, err)
	}
	return sig, nil
}

// isEndOfWindow reports whether the anchor falls inside the final
// eowDays calendar days of the quarter, quarter end inclusive.
func (o *Orchestrator) isEndOfWindow(anchor time.Time, bounds domain.QuarterBounds) bool {
	if o.eowDays <= 0 {
		return false
	}
	cutoff := bounds.End.AddDate(0, 0, -(o.eowDays - 1))
	return !anchor.Before(cutoff) && !anchor.After(bounds.End)
}

func (o *Orchestrator) record(fn func(Recorder)) {
	if o.metrics != nil {
		fn(o.metrics)
	}
}
