package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tranhoait123/anki-mcq-export/internal/document"
	"github.com/tranhoait123/anki-mcq-export/internal/export"
	"github.com/tranhoait123/anki-mcq-export/internal/llm"
	"github.com/tranhoait123/anki-mcq-export/internal/pipeline"
	"github.com/tranhoait123/anki-mcq-export/internal/question"
	"github.com/tranhoait123/anki-mcq-export/internal/request"
)

// Run modes recorded in the manifest.
const (
	ModeLive      = "live"
	ModeReplay    = "replay"
	ModeReexport  = "reexport"
	preflightWait = 5 * time.Second
)

// ErrNoQuestions is returned when a run completes without any question to
// export. The CLI maps it to exit code 2.
var ErrNoQuestions = errors.New("no questions extracted")

// App runs one extraction from files on disk to export files.
type App struct {
	cfg    Config
	mode   string
	caller llm.Caller
}

// Outcome describes what a successful Run produced.
type Outcome struct {
	Result   *pipeline.Result
	Analysis *pipeline.Analysis
	Audit    *pipeline.Audit
	Outputs  []string
	Manifest string
}

func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.LLMModel == "" {
		cfg.LLMModel = llm.DefaultModel
	}
	a := &App{cfg: cfg, mode: ModeLive}

	switch {
	case strings.TrimSpace(cfg.QuestionsPath) != "":
		a.mode = ModeReexport
	case strings.TrimSpace(cfg.ResponsePath) != "":
		raw, err := os.ReadFile(cfg.ResponsePath)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		a.mode = ModeReplay
		a.caller = llm.CallerFunc(func(ctx context.Context, req request.Request) (string, error) {
			return string(raw), nil
		})
	default:
		client := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, NewHTTPClient())
		a.caller = &llm.ChatCaller{Client: client, Model: cfg.LLMModel}
		preflight(ctx, client)
	}
	return a, nil
}

// preflight lists models as a best-effort connectivity check. Failures are
// logged and the run continues so the model call surfaces the real error.
func preflight(ctx context.Context, lister llm.ModelLister) {
	ctx, cancel := context.WithTimeout(ctx, preflightWait)
	defer cancel()
	models, err := lister.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("LLM model list failed; continuing")
		return
	}
	if len(models.Models) > 0 {
		log.Info().Int("count", len(models.Models)).Msg("LLM models available")
	} else {
		log.Warn().Msg("LLM returned zero models")
	}
}

func (a *App) Close() {}

func (a *App) newPipeline() *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Normalizer: document.Normalizer{PDFText: a.cfg.PDFText},
		Builder:    request.Builder{Instruction: a.cfg.Instruction},
		Model:      a.cfg.LLMModel,
		MaxBatches: a.cfg.MaxBatches,
		BatchSize:  a.cfg.BatchSize,
		Limit:      a.cfg.Limit,
	}
}

// Run reads the inputs, extracts questions and writes the exports and the
// manifest sidecar.
func (a *App) Run(ctx context.Context) (*Outcome, error) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	uploads, readFailures := readInputs(a.cfg.Inputs)
	var (
		res      *pipeline.Result
		analysis *pipeline.Analysis
		err      error
	)
	p := a.newPipeline()
	if a.mode == ModeReexport {
		res, err = a.reexport()
	} else {
		if a.cfg.Analyze {
			analysis = a.analyze(ctx, p, uploads)
		}
		res, err = p.Run(ctx, a.caller, uploads)
	}
	if err != nil {
		return nil, err
	}
	decodeFailures := res.Failures
	res.Failures = append(append([]document.FileError{}, readFailures...), decodeFailures...)
	if len(res.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	out, err := a.write(res)
	if err != nil {
		return nil, err
	}
	out.Analysis = analysis
	if a.cfg.Audit && a.mode != ModeReexport {
		out.Audit = a.audit(ctx, p, uploads, len(res.Questions))
	}
	if err := a.writeManifest(out, uploads, decodeFailures, readFailures); err != nil {
		return nil, err
	}
	return out, nil
}

// analyze runs the count estimate and sets it as the continuation target.
// A failed analysis is logged and the extraction proceeds without a target.
func (a *App) analyze(ctx context.Context, p *pipeline.Pipeline, uploads []document.Upload) *pipeline.Analysis {
	res, err := p.Analyze(ctx, a.caller, uploads)
	if err != nil {
		log.Warn().Err(err).Msg("analysis failed; extracting without a target")
		return nil
	}
	p.Expected = res.EstimatedCount
	if p.Expected > 0 && p.MaxBatches <= 1 {
		log.Info().Int("expected", p.Expected).Msg("single-call run; the estimate is reported but cannot drive continuation")
	}
	return res
}

// audit explains a short extraction. Its failure does not undo the exports.
func (a *App) audit(ctx context.Context, p *pipeline.Pipeline, uploads []document.Upload, count int) *pipeline.Audit {
	res, err := p.Audit(ctx, a.caller, uploads, count)
	if err != nil {
		log.Warn().Err(err).Msg("audit failed")
		return nil
	}
	return res
}

func (a *App) reexport() (*pipeline.Result, error) {
	data, err := os.ReadFile(a.cfg.QuestionsPath)
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	qs, err := export.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.cfg.QuestionsPath, err)
	}
	runID := uuid.NewString()
	for _, q := range qs {
		if q.ID == "" {
			qs = question.WithIDs(qs, runID)
			break
		}
	}
	return &pipeline.Result{RunID: runID, Questions: qs, CompletedAt: time.Now().UTC()}, nil
}

// readInputs loads each path. A file that cannot be read is reported like a
// decode failure and does not stop the others.
func readInputs(paths []string) ([]document.Upload, []document.FileError) {
	var (
		uploads  []document.Upload
		failures []document.FileError
	)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		name := filepath.Base(p)
		if err != nil {
			log.Warn().Err(err).Str("file", p).Msg("read failed; skipping file")
			failures = append(failures, document.FileError{Name: name, MediaType: document.ResolveMediaType(name, "", nil), Err: err})
			continue
		}
		uploads = append(uploads, document.Upload{Name: name, Data: data})
	}
	return uploads, failures
}

func (a *App) write(res *pipeline.Result) (*Outcome, error) {
	if dir := strings.TrimSpace(a.cfg.OutDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	htmlOpts := export.HTMLOptions{RichText: a.cfg.RichText, Footer: a.cfg.Footer}
	out := &Outcome{Result: res}
	n := len(res.Questions)

	type target struct {
		ext    string
		enable bool
		render func() ([]byte, error)
	}
	targets := []target{
		{"csv", true, func() ([]byte, error) { return export.CSV(res.Questions, htmlOpts) }},
		{"xlsx", a.cfg.XLSX, func() ([]byte, error) { return export.XLSX(res.Questions, htmlOpts) }},
		{"pdf", a.cfg.PDF, func() ([]byte, error) {
			return export.PDF(res.Questions, export.PDFOptions{Title: a.cfg.Prefix, FontPath: a.cfg.FontPath, Answers: true})
		}},
	}
	for _, t := range targets {
		if !t.enable {
			continue
		}
		data, err := t.render()
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", t.ext, err)
		}
		path := deriveOutputPath(a.cfg, n, t.ext)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", t.ext, err)
		}
		log.Info().Str("out", path).Int("questions", n).Msg("wrote export")
		out.Outputs = append(out.Outputs, path)
	}
	return out, nil
}

func (a *App) writeManifest(out *Outcome, uploads []document.Upload, decodeFailures, readFailures []document.FileError) error {
	res := out.Result
	meta := manifestMeta{
		Version:         BuildVersion,
		Mode:            a.mode,
		RunID:           res.RunID,
		Questions:       len(res.Questions),
		Duplicates:      len(res.Duplicates),
		Batches:         res.Batches,
		EstimatedTokens: res.EstimatedTokens,
		Expected:        res.Expected,
		Analysis:        out.Analysis,
		Audit:           out.Audit,
		Outputs:         out.Outputs,
		GeneratedAt:     time.Now().UTC(),
	}
	if a.mode == ModeLive {
		meta.Model = a.cfg.LLMModel
		meta.LLMBaseURL = a.cfg.LLMBaseURL
		if meta.LLMBaseURL == "" {
			meta.LLMBaseURL = llm.DefaultBaseURL
		}
	}
	data, err := marshalManifestJSON(meta, buildManifestEntries(uploads, decodeFailures, readFailures))
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	path := deriveManifestSidecarPath(out.Outputs[0])
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	out.Manifest = path
	return nil
}
