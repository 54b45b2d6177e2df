package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tranhoait123/anki-mcq-export/internal/document"
	"github.com/tranhoait123/anki-mcq-export/internal/llm"
	"github.com/tranhoait123/anki-mcq-export/internal/request"
	"github.com/tranhoait123/anki-mcq-export/internal/response"
)

// Audit statuses.
const (
	AuditWarning = "warning"
	AuditSuccess = "success"
)

// Analysis is the model's estimate of what a document set contains.
type Analysis struct {
	Topic          string `json:"topic"`
	EstimatedCount int    `json:"estimatedCount"`
	QuestionRange  string `json:"questionRange"`
	Confidence     string `json:"confidence,omitempty"`

	Failures []document.FileError `json:"-"`
}

// Audit is the model's explanation of why an extraction came up short.
type Audit struct {
	Status              string   `json:"status"`
	MissingPercentage   float64  `json:"missingPercentage"`
	Reasons             []string `json:"reasons"`
	ProblematicSections []string `json:"problematicSections"`
	Advice              string   `json:"advice"`

	Failures []document.FileError `json:"-"`
}

// Analyze asks the model to estimate the topic and question count of the
// uploads. It makes a single call and extracts no questions.
func (p *Pipeline) Analyze(ctx context.Context, caller llm.Caller, uploads []document.Upload) (*Analysis, error) {
	batch, err := p.prepare(caller, uploads)
	if err != nil {
		return nil, err
	}
	var a Analysis
	if err := p.callObject(ctx, caller, p.Builder.Analysis(batch.Parts), &a); err != nil {
		return nil, err
	}
	if a.EstimatedCount < 0 {
		return nil, &response.ShapeError{Kind: response.ErrShape, Detail: fmt.Sprintf("estimatedCount is negative (%d)", a.EstimatedCount)}
	}
	a.Failures = batch.Failures
	log.Info().Str("topic", a.Topic).Int("estimated", a.EstimatedCount).Str("range", a.QuestionRange).Msg("document analyzed")
	return &a, nil
}

// Audit asks the model why only count questions were extracted from the
// uploads.
func (p *Pipeline) Audit(ctx context.Context, caller llm.Caller, uploads []document.Upload, count int) (*Audit, error) {
	batch, err := p.prepare(caller, uploads)
	if err != nil {
		return nil, err
	}
	var a Audit
	if err := p.callObject(ctx, caller, p.Builder.Audit(batch.Parts, count), &a); err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(a.Status), AuditSuccess) {
		a.Status = AuditWarning
	} else {
		a.Status = AuditSuccess
	}
	if a.Reasons == nil {
		a.Reasons = []string{}
	}
	if a.ProblematicSections == nil {
		a.ProblematicSections = []string{}
	}
	a.Failures = batch.Failures
	log.Info().Str("status", a.Status).Float64("missing_pct", a.MissingPercentage).Int("reasons", len(a.Reasons)).Msg("extraction audited")
	return &a, nil
}

func (p *Pipeline) prepare(caller llm.Caller, uploads []document.Upload) (document.Batch, error) {
	if caller == nil {
		return document.Batch{}, ErrNoCaller
	}
	batch := p.Normalizer.NormalizeAll(uploads)
	if len(batch.Parts) == 0 {
		return batch, fmt.Errorf("%w (%d of %d failed)", ErrNoParts, len(batch.Failures), len(uploads))
	}
	return batch, nil
}

func (p *Pipeline) callObject(ctx context.Context, caller llm.Caller, req request.Request, v any) error {
	raw, err := caller.Call(ctx, req)
	if err != nil {
		log.Error().Err(err).Msg("model call failed")
		return fmt.Errorf("%w: %w", ErrExternalCall, err)
	}
	if err := response.ParseObject(raw, v); err != nil {
		log.Error().Err(err).Int("response_chars", len(raw)).Msg("response rejected")
		return err
	}
	return nil
}
