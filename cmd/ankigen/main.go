package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tranhoait123/anki-mcq-export/internal/app"
	"github.com/tranhoait123/anki-mcq-export/internal/pipeline"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		configPath    string
		envFile       string
		outDir        string
		prefix        string
		llmBaseURL    string
		llmModel      string
		llmKey        string
		timeout       time.Duration
		maxBatches    int
		batchSize     int
		limit         int
		pdfText       bool
		analyze       bool
		audit         bool
		instruction   string
		xlsx          bool
		pdf           bool
		fontPath      string
		richText      bool
		footer        bool
		responsePath  string
		questionsPath string
		verbose       bool
		version       bool
	)

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: ankigen [flags] file...\n\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&configPath, "config", "", "Path to YAML or JSON config file")
	flag.StringVar(&envFile, "env", ".env", "Dotenv file loaded before reading the environment")
	flag.StringVar(&outDir, "out.dir", "", "Directory for export files (default: current directory)")
	flag.StringVar(&prefix, "prefix", "", "Export file name prefix (default: ankigen_pro)")
	flag.StringVar(&llmBaseURL, "llm.base", "", "OpenAI-compatible base URL (default: Gemini)")
	flag.StringVar(&llmModel, "llm.model", "", "Model name")
	flag.StringVar(&llmKey, "llm.key", "", "API key; prefer LLM_API_KEY or GEMINI_API_KEY")
	flag.DurationVar(&timeout, "timeout", 0, "Deadline for the whole extraction, e.g. 5m; 0 disables")
	flag.IntVar(&maxBatches, "max.batches", 0, "Maximum continuation calls; 0 or 1 makes a single call")
	flag.IntVar(&batchSize, "batch.size", 0, "Questions requested per continuation call (default 50)")
	flag.IntVar(&limit, "limit", 0, "Stop after this many questions; 0 disables")
	flag.BoolVar(&pdfText, "pdf.text", false, "Send extracted PDF text instead of the PDF bytes")
	flag.BoolVar(&analyze, "analyze", false, "Estimate the question count first and keep extracting until close to it")
	flag.BoolVar(&audit, "audit", false, "After extracting, ask the model why questions may be missing")
	flag.StringVar(&instruction, "instruction", "", "Path to a file replacing the built-in extraction instruction")
	flag.BoolVar(&xlsx, "xlsx", false, "Also write an .xlsx export")
	flag.BoolVar(&pdf, "pdf", false, "Also write a printable .pdf question sheet")
	flag.StringVar(&fontPath, "pdf.font", "", "TTF font for the PDF sheet (needed for Vietnamese diacritics)")
	flag.BoolVar(&richText, "rich", false, "Render **bold**, *italic* and line breaks in explanations")
	flag.BoolVar(&footer, "footer", false, "Append difficulty and depth footer to explanations")
	flag.StringVar(&responsePath, "response", "", "Replay a saved raw model response instead of calling the model")
	flag.StringVar(&questionsPath, "questions", "", "Re-export a saved JSON question list")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.BoolVar(&version, "version", false, "Print version and exit")
	flag.Parse()

	if version {
		fmt.Printf("ankigen %s (%s)\n", app.BuildVersion, app.BuildCommit)
		return
	}
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := app.LoadEnvFiles(envFile); err != nil {
		log.Error().Err(err).Msg("load env file")
		os.Exit(1)
	}

	cfg := app.Config{
		Inputs:        flag.Args(),
		OutDir:        outDir,
		Prefix:        prefix,
		LLMBaseURL:    llmBaseURL,
		LLMModel:      llmModel,
		LLMAPIKey:     llmKey,
		Timeout:       timeout,
		MaxBatches:    maxBatches,
		BatchSize:     batchSize,
		Limit:         limit,
		PDFText:       pdfText,
		Analyze:       analyze,
		Audit:         audit,
		XLSX:          xlsx,
		PDF:           pdf,
		FontPath:      fontPath,
		RichText:      richText,
		Footer:        footer,
		ResponsePath:  responsePath,
		QuestionsPath: questionsPath,
		Verbose:       verbose,
	}
	if instruction != "" {
		b, err := os.ReadFile(instruction)
		if err != nil {
			log.Error().Err(err).Str("file", instruction).Msg("read instruction")
			os.Exit(1)
		}
		cfg.Instruction = string(b)
	}

	// Precedence: flags, then environment, then config file.
	app.ApplyEnvToConfig(&cfg)
	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("config", configPath).Msg("load config")
			os.Exit(1)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	if err := app.ValidateConfig(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(exitCode(err))
	}
}

// exitCode maps run errors to the process exit code: 2 when nothing could be
// extracted, 1 for every other failure.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, pipeline.ErrNoParts), errors.Is(err, app.ErrNoQuestions):
		return 2
	default:
		return 1
	}
}

func run(ctx context.Context, cfg app.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	out, err := a.Run(ctx)
	if err != nil {
		return err
	}
	res := out.Result
	log.Info().
		Str("run_id", res.RunID).
		Int("questions", len(res.Questions)).
		Int("duplicates", len(res.Duplicates)).
		Int("failed_files", len(res.Failures)).
		Str("manifest", out.Manifest).
		Msg("done")
	for _, f := range res.Failures {
		log.Warn().Str("file", f.Name).Err(f.Err).Msg("file skipped")
	}
	if an := out.Analysis; an != nil {
		log.Info().Str("topic", an.Topic).Int("estimated", an.EstimatedCount).Str("range", an.QuestionRange).Str("confidence", an.Confidence).Msg("analysis")
	}
	if au := out.Audit; au != nil {
		ev := log.Info()
		if au.Status == pipeline.AuditWarning {
			ev = log.Warn()
		}
		ev.Str("status", au.Status).Float64("missing_pct", au.MissingPercentage).Strs("reasons", au.Reasons).Strs("sections", au.ProblematicSections).Str("advice", au.Advice).Msg("audit")
	}
	return nil
}
