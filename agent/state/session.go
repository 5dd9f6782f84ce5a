package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SessionState is what survives between assessments for one user: the saved
// profile and the last report that completed.
type SessionState struct {
	SessionID string         `json:"session_id"`
	Profile   map[string]any `json:"profile,omitempty"`

	LastReport *ReportRecord `json:"last_report,omitempty"`
	LastError  string        `json:"last_error,omitempty"`

	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReportRecord is one finished assessment as shown back to the user.
type ReportRecord struct {
	RunID        string    `json:"run_id"`
	Category     string    `json:"visa_category"`
	Markdown     string    `json:"markdown"`
	OverallScore float64   `json:"overall_score"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewSessionState(sessionID string, now time.Time) *SessionState {
	return &SessionState{
		SessionID: strings.TrimSpace(sessionID),
		Profile:   make(map[string]any),
		Version:   1,
		UpdatedAt: now.UTC(),
	}
}

func (s *SessionState) Validate() error {
	if s == nil {
		return ErrNilSessionState
	}
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSession
	}
	if s.LastReport != nil {
		if strings.TrimSpace(s.LastReport.Markdown) == "" {
			return errors.New("last report has no content")
		}
		if s.LastReport.OverallScore < 0 || s.LastReport.OverallScore > 100 {
			return fmt.Errorf("last report score out of range: %v", s.LastReport.OverallScore)
		}
	}
	return nil
}

// MergeProfile overwrites the given keys and drops any whose value is nil.
func (s *SessionState) MergeProfile(patch map[string]any, now time.Time) {
	if s.Profile == nil {
		s.Profile = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if v == nil {
			delete(s.Profile, k)
			continue
		}
		s.Profile[k] = v
	}
	s.Touch(now)
}

// RecordReport replaces the last report and clears any earlier failure.
func (s *SessionState) RecordReport(rec ReportRecord, now time.Time) {
	rec.CreatedAt = rec.CreatedAt.UTC()
	s.LastReport = &rec
	s.LastError = ""
	s.Touch(now)
}

// RecordFailure keeps the last report and stores only the message.
func (s *SessionState) RecordFailure(msg string, now time.Time) {
	s.LastError = strings.TrimSpace(msg)
	s.Touch(now)
}

func (s *SessionState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}
