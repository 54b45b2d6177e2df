package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tranhoait123/anki-mcq-export/internal/app"
	"github.com/tranhoait123/anki-mcq-export/internal/document"
	"github.com/tranhoait123/anki-mcq-export/internal/export"
	"github.com/tranhoait123/anki-mcq-export/internal/pipeline"
	"github.com/tranhoait123/anki-mcq-export/internal/request"
	"github.com/tranhoait123/anki-mcq-export/internal/server"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		addr       string
		configPath string
		envFile    string
		origins    string
		sessionTTL time.Duration
		verbose    bool
	)
	flag.StringVar(&addr, "addr", ":8080", "Listen address")
	flag.StringVar(&configPath, "config", "", "Path to YAML or JSON config file")
	flag.StringVar(&envFile, "env", ".env", "Dotenv file loaded before reading the environment")
	flag.StringVar(&origins, "cors.origins", os.Getenv("CORS_ORIGINS"), "Comma-separated allowed origins; empty allows all")
	flag.DurationVar(&sessionTTL, "session.ttl", 0, "Idle session lifetime (default 2h)")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		gin.SetMode(gin.ReleaseMode)
	}
	if err := app.LoadEnvFiles(envFile); err != nil {
		log.Fatal().Err(err).Msg("load env file")
	}

	// Precedence: environment, then config file.
	var cfg app.Config
	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Fatal().Err(err).Str("config", configPath).Msg("load config")
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)
	if cfg.LLMAPIKey == "" {
		log.Warn().Msg("no server API key configured; clients must send X-API-Key")
	}

	srv := server.New(server.Config{
		APIKey:     cfg.LLMAPIKey,
		BaseURL:    cfg.LLMBaseURL,
		Model:      cfg.LLMModel,
		HTTPClient: app.NewHTTPClient(),
		Pipeline: pipeline.Pipeline{
			Normalizer: document.Normalizer{PDFText: cfg.PDFText},
			Builder:    request.Builder{Instruction: cfg.Instruction},
			MaxBatches: cfg.MaxBatches,
			BatchSize:  cfg.BatchSize,
			Limit:      cfg.Limit,
		},
		HTML:         export.HTMLOptions{RichText: cfg.RichText, Footer: cfg.Footer},
		PDF:          export.PDFOptions{Title: cfg.Prefix, FontPath: cfg.FontPath, Answers: true},
		Prefix:       cfg.Prefix,
		AllowOrigins: splitList(origins),
		SessionTTL:   sessionTTL,
		CallTimeout:  cfg.Timeout,
	})

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", addr).Str("version", app.BuildVersion).Msg("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
