// Package orchestrator coordinates the conversion pipeline: frame
// validation, the candidate search, and result assembly.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ideamans/go-l10n"

	"github.com/user/stickerpress/pkg/pipeline"
	"github.com/user/stickerpress/pkg/ports"
	"github.com/user/stickerpress/pkg/search"
	"github.com/user/stickerpress/pkg/webm"
)

// Config contains all configuration for a conversion run.
type Config struct {
	// Budget
	MaxBytes      int // Hard output size limit
	MaxDurationMs int // Maximum playback span of the input

	// Geometry
	TargetLongestSide int // Longest output side at scale 1.0

	// Encoding
	FPS float64

	// Search
	Axes             search.Axes
	JumpThreshold    float64
	MaxJump          int
	Workers          int
	CandidateTimeout time.Duration

	// Container metadata
	WritingApp string
}

// DefaultConfig returns a Config with Telegram sticker defaults.
func DefaultConfig() Config {
	searchOpts := search.DefaultOptions()
	return Config{
		MaxBytes:          256 * 1024,
		MaxDurationMs:     2840,
		TargetLongestSide: 512,
		FPS:               30.0,
		Axes:              search.DefaultAxes(),
		JumpThreshold:     searchOpts.JumpThreshold,
		MaxJump:           searchOpts.MaxJump,
		Workers:           searchOpts.Workers,
		CandidateTimeout:  searchOpts.CandidateTimeout,
	}
}

// Result is the outcome of a conversion run. BudgetMet=false is the
// best-effort case: the smallest container the search saw, returned as
// a success so the caller decides what to do with it.
type Result struct {
	WebM      []byte
	SizeBytes int
	BudgetMet bool
	Config    pipeline.EncodeConfig
	Evaluated int
	Width     int
	Height    int
}

// Orchestrator coordinates the conversion of a frame sequence into a
// budget-constrained WebM.
type Orchestrator struct {
	encodeStage pipeline.Stage[pipeline.DualEncodeInput, pipeline.DualEncodeResult]
	sink        ports.DebugSink
	logger      ports.Logger
}

// New creates a new Orchestrator.
func New(
	encodeStage pipeline.Stage[pipeline.DualEncodeInput, pipeline.DualEncodeResult],
	sink ports.DebugSink,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		encodeStage: encodeStage,
		sink:        sink,
		logger:      logger,
	}
}

// Run converts frames into a WebM container within the configured
// budget. The frames are shared read-only across candidate evaluations.
func (o *Orchestrator) Run(ctx context.Context, frames []pipeline.Frame, config Config) (Result, error) {
	o.logger.Info(l10n.T("Starting conversion"))

	if err := pipeline.ValidateFrames(frames, config.MaxDurationMs); err != nil {
		o.logger.Error(l10n.F("Invalid frame sequence: %s", err))
		return Result{}, err
	}
	if config.Axes.Empty() {
		return Result{}, fmt.Errorf("empty search axes")
	}
	if config.MaxBytes <= 0 {
		return Result{}, fmt.Errorf("max bytes must be positive, got %d", config.MaxBytes)
	}

	configs := search.Enumerate(config.Axes)
	o.logger.Info(l10n.F("Searching %d candidate configs for %d frames within %d bytes",
		len(configs), len(frames), config.MaxBytes))

	evaluator, trace := o.newEvaluator(frames, config)
	searcher := search.New(evaluator, o.logger, search.Options{
		JumpThreshold:    config.JumpThreshold,
		MaxJump:          config.MaxJump,
		Workers:          config.Workers,
		CandidateTimeout: config.CandidateTimeout,
	})

	outcome, err := searcher.Run(ctx, configs, config.MaxBytes)
	if err != nil {
		o.logger.Error(l10n.F("Search failed: %s", err))
		return Result{}, err
	}

	if outcome.BudgetMet {
		o.logger.Info(l10n.F("Fit found: %s, %d bytes after %d candidates",
			outcome.Best.Config, outcome.Best.SizeBytes, outcome.Evaluated))
	} else {
		o.logger.Warn(l10n.F("Budget not met, returning smallest candidate: %s, %d bytes",
			outcome.Best.Config, outcome.Best.SizeBytes))
	}

	if o.sink.Enabled() {
		o.saveSearchTrace(trace, outcome)
	}

	dims := trace.dimensions(outcome.Best.Config)
	return Result{
		WebM:      outcome.Best.Container,
		SizeBytes: outcome.Best.SizeBytes,
		BudgetMet: outcome.BudgetMet,
		Config:    outcome.Best.Config,
		Evaluated: outcome.Evaluated,
		Width:     dims.width,
		Height:    dims.height,
	}, nil
}

// newEvaluator builds the per-candidate pipeline: dual-stream encode,
// mux, measure. It also records a trace entry per evaluation for the
// debug sink.
func (o *Orchestrator) newEvaluator(frames []pipeline.Frame, config Config) (search.Evaluator, *searchTrace) {
	trace := newSearchTrace()
	durationMs := pipeline.SpanMs(frames)

	eval := search.EvaluatorFunc(func(ctx context.Context, cfg pipeline.EncodeConfig) (search.Candidate, error) {
		encoded, err := o.encodeStage.Execute(ctx, pipeline.DualEncodeInput{
			Frames:            frames,
			Config:            cfg,
			TargetLongestSide: config.TargetLongestSide,
			FPS:               config.FPS,
		})
		if err != nil {
			trace.record(cfg, 0, 0, 0, err)
			return search.Candidate{}, err
		}

		container, err := webm.Mux(encoded.Color, encoded.Alpha, webm.Metadata{
			PixelWidth:  encoded.Width,
			PixelHeight: encoded.Height,
			DurationMs:  durationMs,
			WritingApp:  config.WritingApp,
		})
		if err != nil {
			trace.record(cfg, encoded.Width, encoded.Height, 0, err)
			return search.Candidate{}, err
		}

		index := trace.record(cfg, encoded.Width, encoded.Height, len(container), nil)
		if o.sink.Enabled() {
			if err := o.sink.SaveCandidate(index, cfg.String(), container); err != nil {
				o.logger.Warn(l10n.F("Failed to save candidate: %s", err))
			}
		}

		return search.Candidate{Config: cfg, SizeBytes: len(container), Container: container}, nil
	})
	return eval, trace
}

func (o *Orchestrator) saveSearchTrace(trace *searchTrace, outcome search.Result) {
	report := trace.report(outcome)
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return
	}
	if err := o.sink.SaveSearchJSON(data); err != nil {
		o.logger.Warn(l10n.F("Failed to save search report: %s", err))
	}
}

// searchTrace collects per-candidate evaluation records. Safe for
// concurrent use by parallel evaluations.
type searchTrace struct {
	mu      sync.Mutex
	entries []traceEntry
}

type traceEntry struct {
	Config    string `json:"config"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	SizeBytes int    `json:"size_bytes,omitempty"`
	Error     string `json:"error,omitempty"`

	config pipeline.EncodeConfig
}

type candidateDims struct {
	width, height int
}

func newSearchTrace() *searchTrace {
	return &searchTrace{}
}

func (t *searchTrace) record(cfg pipeline.EncodeConfig, width, height, size int, err error) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := traceEntry{
		Config:    cfg.String(),
		Width:     width,
		Height:    height,
		SizeBytes: size,
		config:    cfg,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	t.entries = append(t.entries, entry)
	return len(t.entries) - 1
}

func (t *searchTrace) dimensions(cfg pipeline.EncodeConfig) candidateDims {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, entry := range t.entries {
		if entry.config == cfg && entry.Error == "" {
			return candidateDims{width: entry.Width, height: entry.Height}
		}
	}
	return candidateDims{}
}

func (t *searchTrace) report(outcome search.Result) map[string]interface{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return map[string]interface{}{
		"state":      outcome.State.String(),
		"budget_met": outcome.BudgetMet,
		"accepted":   outcome.Best.Config.String(),
		"size_bytes": outcome.Best.SizeBytes,
		"evaluated":  outcome.Evaluated,
		"failed":     outcome.Failed,
		"candidates": t.entries,
	}
}
