// Package web serves the batch UI and its JSON API.
//
// A page upload is parsed into conditions, a batch is started against a
// medcopy.Completer, progress streams back over Server-Sent Events and the
// finished table can be downloaded as CSV or XLSX. Runs live in memory only.
package web

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"sync"

	"github.com/nevindra/medcopy"
)

const (
	// DefaultMaxRuns is how many runs are kept when WithMaxRuns is not set.
	DefaultMaxRuns = 16

	// DefaultMaxUploadBytes bounds a spreadsheet upload when
	// WithMaxUploadBytes is not set.
	DefaultMaxUploadBytes = 32 << 20

	maxRequestBodyBytes = 32 << 20
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Server is the HTTP front end. Create it with New and mount it as an
// http.Handler.
type Server struct {
	mux       *http.ServeMux
	orch      *medcopy.Orchestrator
	runs      *registry
	relay     http.Handler
	relayPath string
	prompt    string
	maxRuns   int
	maxUpload int64
	batchOpts []medcopy.BatchOption
	logger    *slog.Logger

	// base is the parent context of every run. Runs are detached from the
	// request that started them.
	base context.Context
	wg   sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithRelay mounts the relay endpoint at path (e.g. "/api/openai").
func WithRelay(path string, h http.Handler) Option {
	return func(s *Server) { s.relayPath, s.relay = path, h }
}

// WithBatchOptions passes options to the orchestrator.
func WithBatchOptions(opts ...medcopy.BatchOption) Option {
	return func(s *Server) { s.batchOpts = append(s.batchOpts, opts...) }
}

// WithMaxRuns sets how many runs are kept in memory (default 16).
func WithMaxRuns(n int) Option {
	return func(s *Server) { s.maxRuns = n }
}

// WithMaxUploadBytes bounds the size of an uploaded spreadsheet. Larger
// uploads are answered with 413.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) { s.maxUpload = n }
}

// WithDefaultPrompt overrides the prompt pre-filled on the page and used
// when a batch is started without one.
func WithDefaultPrompt(p string) Option {
	return func(s *Server) { s.prompt = p }
}

// WithBaseContext sets the parent context of runs. Cancelling it makes
// in-flight completions fail; runs still settle every item.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Server) { s.base = ctx }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a Server that runs batches through c.
func New(c medcopy.Completer, opts ...Option) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		prompt: DefaultPrompt,
		base:   context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUploadBytes
	}
	s.runs = newRegistry(s.maxRuns)
	s.orch = medcopy.NewOrchestrator(c, append([]medcopy.BatchOption{medcopy.WithBatchLogger(s.logger)}, s.batchOpts...)...)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /api/conditions", s.handleConditions)
	s.mux.HandleFunc("POST /api/batches", s.handleStartBatch)
	s.mux.HandleFunc("GET /api/batches/{id}", s.handleGetBatch)
	s.mux.HandleFunc("GET /api/batches/{id}/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/batches/{id}/export", s.handleExport)
	if s.relay != nil {
		s.mux.Handle(s.relayPath, s.relay)
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Wait blocks until every started run has finished.
func (s *Server) Wait() { s.wg.Wait() }

// start registers a run and executes it in the background.
func (s *Server) start(conditions []string, prompt string) *run {
	rn := newRun(medcopy.NewID(), len(conditions))
	s.runs.add(rn)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log := s.logger.With("batch", rn.id)
		log.Info("batch started", "total", len(conditions), "concurrency", s.orch.Concurrency())

		records, err := s.orch.Run(s.base, conditions, prompt, rn.update)
		if err != nil {
			log.Warn("batch not run", "error", err)
		}
		rn.finish(records)
	}()
	return rn
}
