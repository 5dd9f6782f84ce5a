// Package assessment is the boundary between callers and the pipeline. It
// owns session persistence and is the single place a failed run is recorded.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/immisense/advisor/agent/contract"
	historyx "github.com/immisense/advisor/agent/history"
	statex "github.com/immisense/advisor/agent/state"
	"github.com/rs/zerolog/log"
)

var ErrNoReport = errors.New("no report for session")

// Coordinator runs one pipeline execution.
type Coordinator interface {
	Run(ctx context.Context, input string, observer contractx.Observer, sink contractx.ChunkSink) (*contractx.Run, error)
}

type HistoryStore interface {
	Append(ctx context.Context, rec *historyx.Record) error
	List(ctx context.Context, sessionID string, limit int) ([]historyx.Record, error)
}

type Config struct {
	RunTimeout time.Duration `envconfig:"RUN_TIMEOUT" split_words:"true" default:"10m"`
}

type AssessRequest struct {
	SessionID string             `json:"session_id"`
	Category  string             `json:"visa_category"`
	Answers   []contractx.Answer `json:"answers"`
	Profile   map[string]any     `json:"profile,omitempty"`
}

type Result struct {
	Run    *contractx.Run
	Report statex.ReportRecord
}

type Service struct {
	coordinator Coordinator
	store       statex.Store
	history     HistoryStore
	timeout     time.Duration
	now         func() time.Time
}

type Option func(*Service)

func WithHistory(h HistoryStore) Option {
	return func(s *Service) { s.history = h }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(coordinator Coordinator, store statex.Store, cfg Config, opts ...Option) (*Service, error) {
	if coordinator == nil {
		return nil, errors.New("coordinator is required")
	}
	if store == nil {
		return nil, errors.New("session store is required")
	}

	s := &Service{
		coordinator: coordinator,
		store:       store,
		timeout:     cfg.RunTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Assess runs one assessment for a session. On failure the previous report
// stays in place and the error is recorded on the session once.
func (s *Service) Assess(ctx context.Context, req AssessRequest, observer contractx.Observer, sink contractx.ChunkSink) (*Result, error) {
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return nil, fmt.Errorf("%w: visa category is required", contractx.ErrValidation)
	}

	st, err := s.loadOrCreate(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if len(req.Profile) > 0 {
		st.MergeProfile(req.Profile, s.now())
	}
	if len(st.Profile) == 0 {
		return nil, fmt.Errorf("%w: save a profile before running an assessment", contractx.ErrValidation)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	query := BuildQuery(st.Profile, category, req.Answers)
	run, runErr := s.coordinator.Run(ctx, query, observer, sink)
	if runErr != nil {
		st.RecordFailure(failureMessage(runErr), s.now())
		if err := s.store.Save(context.WithoutCancel(ctx), st); err != nil {
			log.Error().Err(err).Str("session_id", st.SessionID).Msg("save session after failed assessment")
		}
		return &Result{Run: run}, runErr
	}

	rec := statex.ReportRecord{
		RunID:     run.ID,
		Category:  category,
		Markdown:  run.Report,
		CreatedAt: s.now().UTC(),
	}
	if run.Score != nil {
		rec.OverallScore = run.Score.OverallScore
	}
	if run.Profile != nil && run.Profile.VisaCategory != "" {
		rec.Category = run.Profile.VisaCategory
	}

	st.RecordReport(rec, s.now())
	if err := s.store.Save(ctx, st); err != nil {
		return &Result{Run: run, Report: rec}, fmt.Errorf("save session: %w", err)
	}

	if s.history != nil {
		err := s.history.Append(ctx, &historyx.Record{
			SessionID:    st.SessionID,
			RunID:        rec.RunID,
			VisaCategory: rec.Category,
			OverallScore: rec.OverallScore,
			Report:       rec.Markdown,
			CreatedAt:    rec.CreatedAt,
		})
		if err != nil {
			log.Warn().Err(err).Str("run_id", rec.RunID).Msg("append assessment history")
		}
	}

	return &Result{Run: run, Report: rec}, nil
}

func (s *Service) SaveProfile(ctx context.Context, sessionID string, profile map[string]any) (*statex.SessionState, error) {
	if len(profile) == 0 {
		return nil, fmt.Errorf("%w: profile is empty", contractx.ErrValidation)
	}

	st, err := s.loadOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st.MergeProfile(profile, s.now())
	if err := s.store.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return st, nil
}

func (s *Service) LastReport(ctx context.Context, sessionID string) (*statex.ReportRecord, error) {
	st, err := s.store.Load(ctx, sessionID)
	if errors.Is(err, statex.ErrStateNotFound) {
		return nil, ErrNoReport
	}
	if err != nil {
		return nil, err
	}
	if st.LastReport == nil {
		return nil, ErrNoReport
	}
	return st.LastReport, nil
}

func (s *Service) Session(ctx context.Context, sessionID string) (*statex.SessionState, error) {
	return s.store.Load(ctx, sessionID)
}

func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]historyx.Record, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.List(ctx, sessionID, limit)
}

func (s *Service) loadOrCreate(ctx context.Context, sessionID string) (*statex.SessionState, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, statex.ErrInvalidSession
	}

	st, err := s.store.Load(ctx, sessionID)
	if errors.Is(err, statex.ErrStateNotFound) {
		return statex.NewSessionState(sessionID, s.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return st, nil
}

func failureMessage(err error) string {
	var se *contractx.StageError
	if errors.As(err, &se) {
		return fmt.Sprintf("An error occurred during %s: %v", se.Stage, se.Err)
	}
	return fmt.Sprintf("An error occurred during analysis: %v", err)
}
