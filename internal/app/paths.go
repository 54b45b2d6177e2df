package app

import (
	"path/filepath"
	"strings"

	"github.com/tranhoait123/anki-mcq-export/internal/export"
)

// deriveOutputPath returns <out dir>/<prefix>_<count>cau.<ext>.
func deriveOutputPath(cfg Config, count int, ext string) string {
	root := strings.TrimSpace(cfg.OutDir)
	if root == "" {
		root = "."
	}
	return filepath.Join(root, export.FileName(cfg.Prefix, count, ext))
}
