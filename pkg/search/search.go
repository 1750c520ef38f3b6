package search

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/stickerpress/pkg/pipeline"
	"github.com/user/stickerpress/pkg/ports"
)

// Candidate is one evaluated search point: a config plus its muxed
// container and exact byte count.
type Candidate struct {
	Config    pipeline.EncodeConfig
	SizeBytes int
	Container []byte
}

// Evaluator runs one full candidate evaluation: dual-stream encode, mux,
// and measure. Implementations must be safe for concurrent use when the
// searcher runs with more than one worker.
type Evaluator interface {
	Evaluate(ctx context.Context, cfg pipeline.EncodeConfig) (Candidate, error)
}

// EvaluatorFunc is a function adapter for Evaluator.
type EvaluatorFunc func(ctx context.Context, cfg pipeline.EncodeConfig) (Candidate, error)

// Evaluate implements Evaluator.
func (f EvaluatorFunc) Evaluate(ctx context.Context, cfg pipeline.EncodeConfig) (Candidate, error) {
	return f(ctx, cfg)
}

// State is the terminal state of a search run.
type State int

const (
	// StateFound means a candidate satisfied the byte budget.
	StateFound State = iota
	// StateExhausted means the lattice ran out; the result carries the
	// smallest candidate observed and BudgetMet is false.
	StateExhausted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateFound:
		return "found"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Result is the outcome of a search run.
type Result struct {
	State     State
	Best      Candidate
	BudgetMet bool
	Evaluated int // Candidates that encoded successfully
	Failed    int // Candidates discarded due to encode/mux failures
}

// ErrNoViableCandidate is returned when every attempted candidate failed
// to encode. It is distinct from a budget that merely could not be met.
var ErrNoViableCandidate = errors.New("search: no candidate produced a valid container")

// Options tunes the search behavior.
type Options struct {
	// JumpThreshold is the overshoot ratio above which the walk skips
	// intermediate configs. See Stride.
	JumpThreshold float64
	// MaxJump caps the number of skipped positions per step.
	MaxJump int
	// Workers bounds concurrent candidate evaluations. 1 = sequential.
	Workers int
	// CandidateTimeout bounds a single evaluation so a pathological
	// input cannot hang the whole conversion.
	CandidateTimeout time.Duration
}

// DefaultOptions returns the default search tunables.
func DefaultOptions() Options {
	return Options{
		JumpThreshold:    2.0,
		MaxJump:          8,
		Workers:          1,
		CandidateTimeout: 2 * time.Minute,
	}
}

// Searcher walks a precomputed config lattice looking for the highest
// quality candidate that fits a byte budget. Best-so-far bookkeeping is
// owned by Run and never shared.
type Searcher struct {
	evaluator Evaluator
	logger    ports.Logger
	opts      Options
}

// New creates a Searcher.
func New(evaluator Evaluator, logger ports.Logger, opts Options) *Searcher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.JumpThreshold <= 0 {
		opts.JumpThreshold = DefaultOptions().JumpThreshold
	}
	if opts.MaxJump < 1 {
		opts.MaxJump = DefaultOptions().MaxJump
	}
	return &Searcher{
		evaluator: evaluator,
		logger:    logger.WithComponent("search"),
		opts:      opts,
	}
}

// Run evaluates configs in order until one fits maxBytes or the lattice
// is exhausted. Configs are never revisited. Cancellation is honored
// between candidate evaluations, never mid-candidate.
func (s *Searcher) Run(ctx context.Context, configs []pipeline.EncodeConfig, maxBytes int) (Result, error) {
	if len(configs) == 0 {
		return Result{}, errors.New("search: empty config lattice")
	}

	if s.opts.Workers > 1 {
		return s.runBatched(ctx, configs, maxBytes)
	}
	return s.runSequential(ctx, configs, maxBytes)
}

func (s *Searcher) runSequential(ctx context.Context, configs []pipeline.EncodeConfig, maxBytes int) (Result, error) {
	result := Result{State: StateExhausted}
	haveBest := false

	idx := 0
	for idx < len(configs) {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		cfg := configs[idx]
		cand, err := s.evaluateOne(ctx, cfg)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			s.logger.Warn("Candidate %s failed: %s", cfg, err)
			result.Failed++
			idx++
			continue
		}
		result.Evaluated++
		s.logger.Debug("Candidate %s: %d bytes (budget %d)", cfg, cand.SizeBytes, maxBytes)

		if cand.SizeBytes <= maxBytes {
			return Result{
				State:     StateFound,
				Best:      cand,
				BudgetMet: true,
				Evaluated: result.Evaluated,
				Failed:    result.Failed,
			}, nil
		}

		if !haveBest || cand.SizeBytes < result.Best.SizeBytes {
			result.Best = cand
			haveBest = true
		}

		overshoot := float64(cand.SizeBytes) / float64(maxBytes)
		stride := Stride(overshoot, s.opts.JumpThreshold, s.opts.MaxJump)
		if stride > 1 {
			s.logger.Debug("Overshoot %.1fx, skipping %d configs", overshoot, stride-1)
		}
		idx += stride
	}

	if !haveBest {
		return Result{}, ErrNoViableCandidate
	}
	return result, nil
}

// runBatched evaluates Workers candidates concurrently, then applies the
// same ordered acceptance rule to the completed batch, so the accepted
// candidate matches what the sequential walk would pick at the same batch
// boundary.
func (s *Searcher) runBatched(ctx context.Context, configs []pipeline.EncodeConfig, maxBytes int) (Result, error) {
	result := Result{State: StateExhausted}
	haveBest := false

	type outcome struct {
		cand Candidate
		err  error
	}

	idx := 0
	for idx < len(configs) {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		end := idx + s.opts.Workers
		if end > len(configs) {
			end = len(configs)
		}
		batch := configs[idx:end]
		outcomes := make([]outcome, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		for i, cfg := range batch {
			i, cfg := i, cfg
			g.Go(func() error {
				cand, err := s.evaluateOne(gctx, cfg)
				outcomes[i] = outcome{cand: cand, err: err}
				return nil
			})
		}
		// Workers never return errors; evaluation failures are
		// per-candidate and handled below.
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		minOvershoot := 0.0
		for i, out := range outcomes {
			if out.err != nil {
				s.logger.Warn("Candidate %s failed: %s", batch[i], out.err)
				result.Failed++
				continue
			}
			result.Evaluated++
			s.logger.Debug("Candidate %s: %d bytes (budget %d)", batch[i], out.cand.SizeBytes, maxBytes)

			if out.cand.SizeBytes <= maxBytes {
				// First fitting candidate in score order wins.
				return Result{
					State:     StateFound,
					Best:      out.cand,
					BudgetMet: true,
					Evaluated: result.Evaluated,
					Failed:    result.Failed,
				}, nil
			}
			if !haveBest || out.cand.SizeBytes < result.Best.SizeBytes {
				result.Best = out.cand
				haveBest = true
			}
			overshoot := float64(out.cand.SizeBytes) / float64(maxBytes)
			if minOvershoot == 0 || overshoot < minOvershoot {
				minOvershoot = overshoot
			}
		}

		idx = end
		if minOvershoot > 0 {
			// The closest miss in the batch predicts how far to skip.
			idx += Stride(minOvershoot, s.opts.JumpThreshold, s.opts.MaxJump) - 1
		}
	}

	if !haveBest {
		return Result{}, ErrNoViableCandidate
	}
	return result, nil
}

func (s *Searcher) evaluateOne(ctx context.Context, cfg pipeline.EncodeConfig) (Candidate, error) {
	if s.opts.CandidateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.CandidateTimeout)
		defer cancel()
	}
	return s.evaluator.Evaluate(ctx, cfg)
}
