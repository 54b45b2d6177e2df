package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to flags/env.
type FileConfig struct {
	Inputs []string `yaml:"inputs" json:"inputs"`
	OutDir string   `yaml:"outDir" json:"outDir"`
	Prefix string   `yaml:"prefix" json:"prefix"`

	LLM struct {
		BaseURL string        `yaml:"base" json:"base"`
		Model   string        `yaml:"model" json:"model"`
		APIKey  string        `yaml:"key" json:"key"`
		Timeout time.Duration `yaml:"timeout" json:"timeout"`
	} `yaml:"llm" json:"llm"`

	Extract struct {
		MaxBatches      int    `yaml:"maxBatches" json:"maxBatches"`
		BatchSize       int    `yaml:"batchSize" json:"batchSize"`
		Limit           int    `yaml:"limit" json:"limit"`
		PDFText         bool   `yaml:"pdfText" json:"pdfText"`
		Analyze         bool   `yaml:"analyze" json:"analyze"`
		Audit           bool   `yaml:"audit" json:"audit"`
		Instruction     string `yaml:"instruction" json:"instruction"`
		InstructionFile string `yaml:"instructionFile" json:"instructionFile"`
	} `yaml:"extract" json:"extract"`

	Export struct {
		XLSX     bool   `yaml:"xlsx" json:"xlsx"`
		PDF      bool   `yaml:"pdf" json:"pdf"`
		Font     string `yaml:"font" json:"font"`
		RichText bool   `yaml:"richText" json:"richText"`
		Footer   bool   `yaml:"footer" json:"footer"`
	} `yaml:"export" json:"export"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	if fc.Extract.Instruction == "" && fc.Extract.InstructionFile != "" {
		ib, err := os.ReadFile(fc.Extract.InstructionFile)
		if err != nil {
			return fc, fmt.Errorf("read instruction file: %w", err)
		}
		fc.Extract.Instruction = string(ib)
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are currently unset/zero in cfg. Flags should already have been parsed; this
// function lets file config supply defaults while preserving explicit flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if len(cfg.Inputs) == 0 && len(fc.Inputs) > 0 {
		cfg.Inputs = append([]string{}, fc.Inputs...)
	}
	if cfg.OutDir == "" && fc.OutDir != "" {
		cfg.OutDir = fc.OutDir
	}
	if cfg.Prefix == "" && fc.Prefix != "" {
		cfg.Prefix = fc.Prefix
	}

	if cfg.LLMBaseURL == "" && fc.LLM.BaseURL != "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if cfg.LLMModel == "" && fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" {
		cfg.LLMAPIKey = fc.LLM.APIKey
	}
	if cfg.Timeout == 0 && fc.LLM.Timeout > 0 {
		cfg.Timeout = fc.LLM.Timeout
	}

	if cfg.MaxBatches == 0 && fc.Extract.MaxBatches > 0 {
		cfg.MaxBatches = fc.Extract.MaxBatches
	}
	if cfg.BatchSize == 0 && fc.Extract.BatchSize > 0 {
		cfg.BatchSize = fc.Extract.BatchSize
	}
	if cfg.Limit == 0 && fc.Extract.Limit > 0 {
		cfg.Limit = fc.Extract.Limit
	}
	if !cfg.PDFText && fc.Extract.PDFText {
		cfg.PDFText = true
	}
	if !cfg.Analyze && fc.Extract.Analyze {
		cfg.Analyze = true
	}
	if !cfg.Audit && fc.Extract.Audit {
		cfg.Audit = true
	}
	if cfg.Instruction == "" && fc.Extract.Instruction != "" {
		cfg.Instruction = fc.Extract.Instruction
	}

	if !cfg.XLSX && fc.Export.XLSX {
		cfg.XLSX = true
	}
	if !cfg.PDF && fc.Export.PDF {
		cfg.PDF = true
	}
	if cfg.FontPath == "" && fc.Export.Font != "" {
		cfg.FontPath = fc.Export.Font
	}
	if !cfg.RichText && fc.Export.RichText {
		cfg.RichText = true
	}
	if !cfg.Footer && fc.Export.Footer {
		cfg.Footer = true
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig performs minimal validation for required settings. Offline
// modes need no credential; a live run needs an API key and at least one
// input.
func ValidateConfig(cfg Config) error {
	offline := strings.TrimSpace(cfg.ResponsePath) != "" || strings.TrimSpace(cfg.QuestionsPath) != ""
	if strings.TrimSpace(cfg.QuestionsPath) == "" && len(cfg.Inputs) == 0 {
		return errors.New("config: at least one input file is required")
	}
	if !offline && strings.TrimSpace(cfg.LLMAPIKey) == "" {
		return errors.New("config: API key is required (set LLM_API_KEY or GEMINI_API_KEY)")
	}
	if offline && (cfg.Analyze || cfg.Audit) {
		return errors.New("config: analyze and audit need a live model, not -response or -questions")
	}
	if cfg.MaxBatches < 0 || cfg.BatchSize < 0 || cfg.Limit < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.Timeout < 0 {
		return errors.New("config: negative timeout")
	}
	return nil
}
