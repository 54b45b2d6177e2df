package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.LLMBaseURL == "" {
		cfg.LLMBaseURL = os.Getenv("LLM_BASE_URL")
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = os.Getenv("LLM_MODEL")
	}
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = apiKeyFromEnv()
	}
	if cfg.OutDir == "" {
		cfg.OutDir = os.Getenv("ANKIGEN_OUT_DIR")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = os.Getenv("ANKIGEN_PREFIX")
	}
	if cfg.FontPath == "" {
		cfg.FontPath = os.Getenv("ANKIGEN_FONT")
	}

	setInt := func(dst *int, envKey string) {
		if *dst != 0 {
			return
		}
		if n, ok := envInt(envKey); ok {
			*dst = n
		}
	}
	setInt(&cfg.MaxBatches, "ANKIGEN_MAX_BATCHES")
	setInt(&cfg.BatchSize, "ANKIGEN_BATCH_SIZE")
	setInt(&cfg.Limit, "ANKIGEN_LIMIT")

	if cfg.Timeout == 0 {
		if d, ok := envDuration("ANKIGEN_TIMEOUT"); ok {
			cfg.Timeout = d
		}
	}

	setBool := func(dst *bool, envKey string) {
		if *dst {
			return
		}
		if v, ok := envBool(envKey); ok && v {
			*dst = true
		}
	}
	setBool(&cfg.PDFText, "ANKIGEN_PDF_TEXT")
	setBool(&cfg.Analyze, "ANKIGEN_ANALYZE")
	setBool(&cfg.Audit, "ANKIGEN_AUDIT")
	setBool(&cfg.XLSX, "ANKIGEN_XLSX")
	setBool(&cfg.PDF, "ANKIGEN_PDF")
	setBool(&cfg.RichText, "ANKIGEN_RICH_TEXT")
	setBool(&cfg.Footer, "ANKIGEN_FOOTER")
	setBool(&cfg.Verbose, "VERBOSE")
}

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// when the corresponding env vars are set. This is used to let env take
// precedence over values coming from a config file while still allowing flags
// to remain highest precedence.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLMBaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLMModel = v
	}
	if v := apiKeyFromEnv(); v != "" {
		cfg.LLMAPIKey = v
	}
	if v := os.Getenv("ANKIGEN_OUT_DIR"); v != "" {
		cfg.OutDir = v
	}
	if v := os.Getenv("ANKIGEN_PREFIX"); v != "" {
		cfg.Prefix = v
	}
	if v := os.Getenv("ANKIGEN_FONT"); v != "" {
		cfg.FontPath = v
	}
	if n, ok := envInt("ANKIGEN_MAX_BATCHES"); ok {
		cfg.MaxBatches = n
	}
	if n, ok := envInt("ANKIGEN_BATCH_SIZE"); ok {
		cfg.BatchSize = n
	}
	if n, ok := envInt("ANKIGEN_LIMIT"); ok {
		cfg.Limit = n
	}
	if d, ok := envDuration("ANKIGEN_TIMEOUT"); ok {
		cfg.Timeout = d
	}

	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, envKey string) {
		if v, ok := envBool(envKey); ok {
			*dst = v
		}
	}
	setBool(&cfg.PDFText, "ANKIGEN_PDF_TEXT")
	setBool(&cfg.Analyze, "ANKIGEN_ANALYZE")
	setBool(&cfg.Audit, "ANKIGEN_AUDIT")
	setBool(&cfg.XLSX, "ANKIGEN_XLSX")
	setBool(&cfg.PDF, "ANKIGEN_PDF")
	setBool(&cfg.RichText, "ANKIGEN_RICH_TEXT")
	setBool(&cfg.Footer, "ANKIGEN_FOOTER")
	setBool(&cfg.Verbose, "VERBOSE")
}

// apiKeyFromEnv prefers LLM_API_KEY and falls back to GEMINI_API_KEY.
func apiKeyFromEnv() string {
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		return v
	}
	return os.Getenv("GEMINI_API_KEY")
}

func envInt(key string) (int, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func envDuration(key string) (time.Duration, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, false
	}
	return d, true
}

func envBool(key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
