// Package httpapi exposes the assessment service, the visa catalog and the
// ShalayeAI analyzer over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/immisense/advisor/agent/agents/shalaye"
	"github.com/immisense/advisor/agent/assessment"
	contractx "github.com/immisense/advisor/agent/contract"
	historyx "github.com/immisense/advisor/agent/history"
	statex "github.com/immisense/advisor/agent/state"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Addr              string        `envconfig:"ADDR" split_words:"true" default:":8080"`
	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" split_words:"true" default:"10s"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"15s"`
	MaxUploadBytes    int64         `envconfig:"MAX_UPLOAD_BYTES" split_words:"true" default:"10485760"`
}

type Assessor interface {
	Assess(ctx context.Context, req assessment.AssessRequest, observer contractx.Observer, sink contractx.ChunkSink) (*assessment.Result, error)
	SaveProfile(ctx context.Context, sessionID string, profile map[string]any) (*statex.SessionState, error)
	LastReport(ctx context.Context, sessionID string) (*statex.ReportRecord, error)
	Session(ctx context.Context, sessionID string) (*statex.SessionState, error)
	History(ctx context.Context, sessionID string, limit int) ([]historyx.Record, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, req shalaye.AnalyzeRequest) (*shalaye.Analysis, error)
}

type Server struct {
	cfg      Config
	assessor Assessor
	analyzer Analyzer
}

// New wires the routes. analyzer may be nil, in which case the ShalayeAI
// route answers 503.
func New(cfg Config, assessor Assessor, analyzer Analyzer) (*Server, error) {
	if assessor == nil {
		return nil, errors.New("assessor is required")
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	return &Server{cfg: cfg, assessor: assessor, analyzer: analyzer}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/visas", s.listVisas)
	mux.HandleFunc("GET /v1/visas/{category}", s.getVisa)

	mux.HandleFunc("GET /v1/sessions/{id}", s.session)
	mux.HandleFunc("PUT /v1/sessions/{id}/profile", s.saveProfile)
	mux.HandleFunc("POST /v1/sessions/{id}/assessments", s.runAssessment)
	mux.HandleFunc("GET /v1/sessions/{id}/report", s.lastReport)
	mux.HandleFunc("GET /v1/sessions/{id}/history", s.history)

	mux.HandleFunc("POST /v1/shalaye/analyze", s.analyze)

	return accessLog(mux)
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for up to ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}
