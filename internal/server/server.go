package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tranhoait123/anki-mcq-export/internal/document"
	"github.com/tranhoait123/anki-mcq-export/internal/export"
	"github.com/tranhoait123/anki-mcq-export/internal/llm"
	"github.com/tranhoait123/anki-mcq-export/internal/pipeline"
	"github.com/tranhoait123/anki-mcq-export/internal/response"
	"github.com/tranhoait123/anki-mcq-export/internal/session"
)

// Request headers understood by the API.
const (
	HeaderAPIKey    = "X-API-Key"
	HeaderSessionID = "X-Session-ID"
)

// DefaultMaxUploadBytes bounds the size of one uploaded file.
const DefaultMaxUploadBytes = 32 << 20

// CallerFactory builds a model caller authenticated with apiKey.
type CallerFactory func(apiKey string) llm.Caller

// Config configures the HTTP API.
type Config struct {
	// APIKey is used when a request carries no X-API-Key header.
	APIKey  string
	BaseURL string
	Model   string
	// HTTPClient is shared by all model calls.
	HTTPClient *http.Client
	// NewCaller overrides how callers are built from a key.
	NewCaller CallerFactory

	Pipeline pipeline.Pipeline
	HTML     export.HTMLOptions
	PDF      export.PDFOptions
	Prefix   string

	AllowOrigins   []string
	SessionTTL     time.Duration
	MaxUploadBytes int64
	// CallTimeout bounds one extraction run; zero means no limit.
	CallTimeout time.Duration
}

// Server serves the extraction API over per-client sessions.
type Server struct {
	cfg      Config
	sessions *session.Store
}

// New returns a Server with an empty session store.
func New(cfg Config) *Server {
	if cfg.NewCaller == nil {
		cfg.NewCaller = chatCallerFactory(cfg)
	}
	if cfg.Model == "" {
		cfg.Model = llm.DefaultModel
	}
	if cfg.Pipeline.Model == "" {
		cfg.Pipeline.Model = cfg.Model
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Server{cfg: cfg, sessions: session.NewStore(cfg.SessionTTL)}
}

func chatCallerFactory(cfg Config) CallerFactory {
	return func(apiKey string) llm.Caller {
		return &llm.ChatCaller{
			Client: llm.NewClient(cfg.BaseURL, apiKey, cfg.HTTPClient),
			Model:  cfg.Model,
		}
	}
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())

	corsCfg := cors.DefaultConfig()
	if len(s.cfg.AllowOrigins) > 0 {
		corsCfg.AllowOrigins = s.cfg.AllowOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, HeaderAPIKey, HeaderSessionID)
	corsCfg.ExposeHeaders = []string{HeaderSessionID, "Content-Disposition"}
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", s.health)
	api := router.Group("/api")
	{
		api.POST("/analyze", s.analyze)
		api.POST("/extract", s.extract)
		api.POST("/audit", s.audit)
		api.GET("/questions", s.questions)
		api.GET("/export/:format", s.export)
		api.DELETE("/session", s.deleteSession)
	}
	return router
}

func (s *Server) health(c *gin.Context) {
	RespondOK(c, gin.H{"status": "ok", "sessions": s.sessions.Len()})
}

type failure struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Error     string `json:"error"`
}

type extractResponse struct {
	SessionID string `json:"session_id"`
	*pipeline.Result
	Count    int       `json:"count"`
	Failures []failure `json:"failures"`
}

// apiKey resolves the credential for this request or aborts with 401.
func (s *Server) apiKey(c *gin.Context) (string, bool) {
	key := strings.TrimSpace(c.GetHeader(HeaderAPIKey))
	if key == "" {
		key = s.cfg.APIKey
	}
	if key == "" {
		RespondError(c, http.StatusUnauthorized, CodeMissingKey, errors.New("no API key: set the X-API-Key header"))
		return "", false
	}
	return key, true
}

func (s *Server) runContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if s.cfg.CallTimeout > 0 {
		return context.WithTimeout(c.Request.Context(), s.cfg.CallTimeout)
	}
	return context.WithCancel(c.Request.Context())
}

// formInt reads an optional non-negative integer form field.
func formInt(c *gin.Context, name string) (int, bool, error) {
	v := strings.TrimSpace(c.PostForm(name))
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false, fmt.Errorf("%s must be a non-negative integer, got %q", name, v)
	}
	return n, true, nil
}

// POST /api/analyze
// Multipart form with one or more "files" fields. Returns the estimated
// topic and question count without extracting.
func (s *Server) analyze(c *gin.Context) {
	key, ok := s.apiKey(c)
	if !ok {
		return
	}
	uploads, err := s.readUploads(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, CodeBadRequest, err)
		return
	}
	ctx, cancel := s.runContext(c)
	defer cancel()
	p := s.cfg.Pipeline
	res, err := p.Analyze(ctx, s.cfg.NewCaller(key), uploads)
	if err != nil {
		status, code := classify(err)
		RespondError(c, status, code, err)
		return
	}
	RespondOK(c, gin.H{"analysis": res, "failures": failuresOf(res.Failures)})
}

// POST /api/audit
// Multipart form with the same "files" and an optional "count"; without it
// the question count of the session's current result is used.
func (s *Server) audit(c *gin.Context) {
	key, ok := s.apiKey(c)
	if !ok {
		return
	}
	uploads, err := s.readUploads(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, CodeBadRequest, err)
		return
	}
	count, given, err := formInt(c, "count")
	if err != nil {
		RespondError(c, http.StatusBadRequest, CodeBadRequest, err)
		return
	}
	if !given {
		res, ok := s.current(c)
		if !ok {
			return
		}
		count = len(res.Questions)
	}
	ctx, cancel := s.runContext(c)
	defer cancel()
	p := s.cfg.Pipeline
	res, err := p.Audit(ctx, s.cfg.NewCaller(key), uploads, count)
	if err != nil {
		status, code := classify(err)
		RespondError(c, status, code, err)
		return
	}
	RespondOK(c, gin.H{"count": count, "audit": res, "failures": failuresOf(res.Failures)})
}

// POST /api/extract
// Multipart form with one or more "files" fields and an optional "expected"
// question count, usually taken from /api/analyze.
func (s *Server) extract(c *gin.Context) {
	key, ok := s.apiKey(c)
	if !ok {
		return
	}

	sess, created := s.sessions.GetOrCreate(c.GetHeader(HeaderSessionID))
	c.Header(HeaderSessionID, sess.ID)
	if created {
		log.Debug().Str("session_id", sess.ID).Msg("session created")
	}

	uploads, err := s.readUploads(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, CodeBadRequest, err)
		return
	}

	expected, _, err := formInt(c, "expected")
	if err != nil {
		RespondError(c, http.StatusBadRequest, CodeBadRequest, err)
		return
	}

	ctx, cancel := s.runContext(c)
	defer cancel()
	p := s.cfg.Pipeline
	p.Expected = expected
	res, err := p.Run(ctx, s.cfg.NewCaller(key), uploads)
	sess.Apply(res, err)
	if err != nil {
		status, code := classify(err)
		RespondError(c, status, code, err)
		return
	}

	RespondOK(c, extractResponse{SessionID: sess.ID, Result: res, Count: len(res.Questions), Failures: failuresOf(res.Failures)})
}

func failuresOf(errs []document.FileError) []failure {
	out := []failure{}
	for _, f := range errs {
		out = append(out, failure{Name: f.Name, MediaType: f.MediaType, Error: f.Err.Error()})
	}
	return out
}

func (s *Server) readUploads(c *gin.Context) ([]document.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}
	files := form.File["files"]
	files = append(files, form.File["files[]"]...)
	if len(files) == 0 {
		return nil, errors.New(`no files: send one or more "files" form fields`)
	}
	uploads := make([]document.Upload, 0, len(files))
	for _, fh := range files {
		if fh.Size > s.cfg.MaxUploadBytes {
			return nil, fmt.Errorf("%s: file exceeds %d bytes", fh.Filename, s.cfg.MaxUploadBytes)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fh.Filename, err)
		}
		uploads = append(uploads, document.Upload{
			Name:      fh.Filename,
			MediaType: fh.Header.Get("Content-Type"),
			Data:      data,
		})
	}
	return uploads, nil
}

// classify maps a run error to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, pipeline.ErrNoParts):
		return http.StatusUnprocessableEntity, CodeNoParts
	case errors.Is(err, response.ErrShape), errors.Is(err, response.ErrParse):
		return http.StatusBadGateway, CodeBadResponse
	case errors.Is(err, pipeline.ErrExternalCall):
		return http.StatusBadGateway, CodeUpstream
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func sessionID(c *gin.Context) string {
	if id := c.GetHeader(HeaderSessionID); id != "" {
		return id
	}
	return c.Query("session")
}

func (s *Server) current(c *gin.Context) (*pipeline.Result, bool) {
	id := sessionID(c)
	sess, err := s.sessions.Get(id)
	if err != nil {
		RespondError(c, http.StatusNotFound, CodeNotFound, err)
		return nil, false
	}
	c.Header(HeaderSessionID, sess.ID)
	res := sess.Current()
	if res == nil {
		RespondError(c, http.StatusNotFound, CodeNotFound, errors.New("no questions extracted in this session"))
		return nil, false
	}
	return res, true
}

// GET /api/questions
func (s *Server) questions(c *gin.Context) {
	res, ok := s.current(c)
	if !ok {
		return
	}
	RespondOK(c, gin.H{"run_id": res.RunID, "count": len(res.Questions), "questions": res.Questions})
}

// GET /api/export/:format
// Downloads the current question set as csv, xlsx or pdf.
func (s *Server) export(c *gin.Context) {
	format := strings.ToLower(c.Param("format"))
	var contentType string
	switch format {
	case "csv":
		contentType = "text/csv; charset=utf-8"
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "pdf":
		contentType = "application/pdf"
	default:
		RespondError(c, http.StatusBadRequest, CodeBadRequest, fmt.Errorf("unsupported export format %q", format))
		return
	}
	res, ok := s.current(c)
	if !ok {
		return
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case "csv":
		data, err = export.CSV(res.Questions, s.cfg.HTML)
	case "xlsx":
		data, err = export.XLSX(res.Questions, s.cfg.HTML)
	case "pdf":
		data, err = export.PDF(res.Questions, s.cfg.PDF)
	}
	if err != nil {
		RespondError(c, http.StatusInternalServerError, CodeExportFailed, err)
		return
	}
	name := export.FileName(s.cfg.Prefix, len(res.Questions), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, data)
}

// DELETE /api/session
// Drops the session and its questions.
func (s *Server) deleteSession(c *gin.Context) {
	id := sessionID(c)
	if id == "" || !s.sessions.Delete(id) {
		RespondError(c, http.StatusNotFound, CodeNotFound, session.ErrNotFound)
		return
	}
	log.Debug().Str("session_id", id).Msg("session deleted")
	c.Status(http.StatusNoContent)
}
