package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tranhoait123/anki-mcq-export/internal/budget"
	"github.com/tranhoait123/anki-mcq-export/internal/dedup"
	"github.com/tranhoait123/anki-mcq-export/internal/document"
	"github.com/tranhoait123/anki-mcq-export/internal/llm"
	"github.com/tranhoait123/anki-mcq-export/internal/question"
	"github.com/tranhoait123/anki-mcq-export/internal/request"
	"github.com/tranhoait123/anki-mcq-export/internal/response"
)

var (
	// ErrNoParts is returned when no upload could be normalized.
	ErrNoParts = errors.New("no usable input files")
	// ErrExternalCall wraps failures of the model call.
	ErrExternalCall = errors.New("model call failed")
	// ErrNoCaller is returned when Run is given a nil caller.
	ErrNoCaller = errors.New("no model caller configured")
)

// MaxEmptyBatches bounds consecutive empty continuation batches tolerated
// while the Expected target is not reached.
const MaxEmptyBatches = 3

// Result is the outcome of one successful extraction run.
type Result struct {
	RunID      string               `json:"run_id"`
	Model      string               `json:"model,omitempty"`
	Questions  []question.Question  `json:"questions"`
	Failures   []document.FileError `json:"-"`
	Duplicates []dedup.Duplicate    `json:"duplicates,omitempty"`
	Batches    int                  `json:"batches"`
	Expected   int                  `json:"expected,omitempty"`
	// EstimatedTokens is the estimated prompt size of the first call.
	EstimatedTokens int       `json:"estimated_tokens"`
	CompletedAt     time.Time `json:"completed_at"`
}

// Pipeline wires normalization, request building, the model call, response
// parsing and duplicate filtering into one synchronous run.
type Pipeline struct {
	Normalizer document.Normalizer
	Builder    request.Builder
	Dedup      dedup.Checker
	// Model is used for prompt-size estimation and reporting.
	Model string
	// MaxBatches > 1 enables continuation calls; 0 or 1 makes a single call.
	MaxBatches int
	// BatchSize is the number of questions requested per continuation call.
	BatchSize int
	// Limit stops continuation once this many questions are collected.
	Limit int
	// Expected is the estimated question count, usually from Analyze. While
	// fewer than 90% of it are collected, an empty continuation batch is
	// retried up to MaxEmptyBatches times in a row before giving up.
	Expected int
	// ReservedOutput is subtracted from the context window in the size check.
	ReservedOutput int
}

// Run executes one extraction. Per-file decode failures are reported in the
// Result; a failed model call or an unusable response aborts the run and
// returns no Result.
func (p *Pipeline) Run(ctx context.Context, caller llm.Caller, uploads []document.Upload) (*Result, error) {
	batch, err := p.prepare(caller, uploads)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:    uuid.NewString(),
		Model:    p.Model,
		Failures: batch.Failures,
		Expected: p.Expected,
	}
	logger := log.With().Str("run_id", res.RunID).Logger()

	maxBatches := p.MaxBatches
	if maxBatches < 1 {
		maxBatches = 1
	}
	collected := []question.Question{}
	empty := 0
	for n := 1; n <= maxBatches; n++ {
		directive := request.Directive{}
		if maxBatches > 1 {
			directive = request.Directive{Batch: n, Size: p.BatchSize}
			if len(collected) > 0 {
				directive.After = collected[len(collected)-1].Question
			}
		}
		req := p.Builder.Build(batch.Parts, directive)
		if n == 1 {
			res.EstimatedTokens = p.checkBudget(req)
		}

		start := time.Now()
		raw, err := caller.Call(ctx, req)
		if err != nil {
			logger.Error().Err(err).Int("batch", n).Msg("model call failed")
			return nil, fmt.Errorf("%w: %w", ErrExternalCall, err)
		}
		qs, err := response.Parse(raw)
		if err != nil {
			logger.Error().Err(err).Int("batch", n).Int("response_chars", len(raw)).Msg("response rejected")
			return nil, fmt.Errorf("batch %d: %w", n, err)
		}
		res.Batches = n

		if n > 1 {
			var dups []dedup.Duplicate
			qs, dups = p.Dedup.Filter(collected, qs)
			res.Duplicates = append(res.Duplicates, dups...)
		}
		logger.Info().Int("batch", n).Int("questions", len(qs)).Dur("elapsed", time.Since(start)).Msg("batch extracted")
		if len(qs) == 0 {
			empty++
			if p.belowTarget(len(collected)) && empty < MaxEmptyBatches {
				logger.Warn().Int("batch", n).Int("collected", len(collected)).Int("expected", p.Expected).Msg("empty batch below target; retrying")
				continue
			}
			break
		}
		empty = 0
		collected = append(collected, qs...)
		if p.Limit > 0 && len(collected) >= p.Limit {
			collected = collected[:p.Limit]
			break
		}
	}

	if p.belowTarget(len(collected)) {
		logger.Warn().Int("collected", len(collected)).Int("expected", p.Expected).Msg("extraction below expected count")
	}
	res.Questions = question.WithIDs(collected, res.RunID)
	res.CompletedAt = time.Now().UTC()
	logger.Info().Int("questions", len(res.Questions)).Int("duplicates", len(res.Duplicates)).Int("failed_files", len(res.Failures)).Msg("extraction complete")
	return res, nil
}

// belowTarget reports whether n is under 90% of a positive Expected count.
func (p *Pipeline) belowTarget(n int) bool {
	return p.Expected > 0 && n*10 < p.Expected*9
}

func (p *Pipeline) checkBudget(req request.Request) int {
	parts := make([]budget.Part, 0, len(req.Parts))
	for _, rp := range req.Parts {
		parts = append(parts, budget.Part{
			Text:      rp.Text,
			MediaType: rp.MediaType,
			Size:      len(rp.Data),
			Binary:    rp.Kind == document.KindBinary,
		})
	}
	tokens := budget.EstimateParts(parts)
	reserved := p.ReservedOutput
	if reserved <= 0 {
		reserved = budget.DefaultOutputSize
	}
	if p.Model != "" && !budget.FitsInContext(p.Model, reserved, tokens) {
		log.Warn().Str("model", p.Model).Int("estimated_tokens", tokens).Int("context", budget.ModelContextTokens(p.Model)).Msg("request may exceed model context")
	}
	return tokens
}
