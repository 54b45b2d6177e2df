package app

import "time"

// Config holds runtime configuration for the application.
type Config struct {
	// Inputs are the document paths to extract questions from.
	Inputs []string
	OutDir string
	Prefix string

	// LLM
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string
	// Timeout bounds one extraction run; zero means no limit.
	Timeout time.Duration

	// Extraction
	MaxBatches  int
	BatchSize   int
	Limit       int
	PDFText     bool
	Instruction string
	// Analyze estimates the question count before extracting and uses it as
	// the continuation target.
	Analyze     bool
	// Audit asks the model to explain the shortfall after extracting.
	Audit       bool

	// Export
	XLSX     bool
	PDF      bool
	FontPath string
	RichText bool
	Footer   bool

	// Offline modes: ResponsePath replays a saved raw model response;
	// QuestionsPath re-exports a saved question list without any model call.
	ResponsePath  string
	QuestionsPath string

	Verbose bool
}
