package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	contractx "github.com/immisense/advisor/agent/contract"
	historyx "github.com/immisense/advisor/agent/history"
	statex "github.com/immisense/advisor/agent/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCoordinator struct {
	report string
	score  float64
	err    error
	inputs []string
}

func (f *fakeCoordinator) Run(ctx context.Context, input string, observer contractx.Observer, sink contractx.ChunkSink) (*contractx.Run, error) {
	f.inputs = append(f.inputs, input)
	run := &contractx.Run{ID: fmt.Sprintf("run-%d", len(f.inputs)), Input: input}
	if f.err != nil {
		run.State = contractx.RunFailed
		if observer != nil {
			observer.OnEvent(contractx.Event{Type: contractx.EventFailed, Err: f.err})
		}
		return run, f.err
	}
	if sink != nil {
		if err := sink(f.report); err != nil {
			return run, err
		}
	}
	run.State = contractx.RunReportReady
	run.Report = f.report
	run.Profile = &contractx.ProfileRecord{VisaCategory: "F-1"}
	run.Score = &contractx.ScoreReport{OverallScore: f.score}
	return run, nil
}

type fakeHistory struct {
	records []historyx.Record
	err     error
}

func (f *fakeHistory) Append(ctx context.Context, rec *historyx.Record) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeHistory) List(ctx context.Context, sessionID string, limit int) ([]historyx.Record, error) {
	return f.records, nil
}

var fixed = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T, coord Coordinator, hist HistoryStore) (*Service, *statex.MemoryStore) {
	t.Helper()

	store := statex.NewMemoryStore()
	svc, err := New(coord, store, Config{RunTimeout: time.Minute}, WithHistory(hist), WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	return svc, store
}

func TestAssessSavesReportAndHistory(t *testing.T) {
	coord := &fakeCoordinator{report: "## Applicant Profile\nScore 72", score: 72}
	hist := &fakeHistory{}
	svc, _ := newService(t, coord, hist)
	ctx := context.Background()

	_, err := svc.SaveProfile(ctx, "s1", map[string]any{"full_name": "Ada Obi", "nationality": "Nigerian"})
	require.NoError(t, err)

	var streamed strings.Builder
	res, err := svc.Assess(ctx, AssessRequest{
		SessionID: "s1",
		Category:  "F-1",
		Answers:   []contractx.Answer{{Question: "Accepted?", Answer: "Yes"}},
	}, nil, func(c string) error {
		streamed.WriteString(c)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, coord.report, streamed.String())
	assert.Equal(t, 72.0, res.Report.OverallScore)
	assert.Contains(t, coord.inputs[0], "- Full Name: Ada Obi")
	assert.Contains(t, coord.inputs[0], "## Assessment for Visa Category: F-1")

	last, err := svc.LastReport(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", last.RunID)
	assert.True(t, fixed.Equal(last.CreatedAt))

	require.Len(t, hist.records, 1)
	assert.Equal(t, "s1", hist.records[0].SessionID)
	assert.Equal(t, "F-1", hist.records[0].VisaCategory)
}

func TestAssessFailureKeepsPreviousReport(t *testing.T) {
	coord := &fakeCoordinator{report: "# first", score: 60}
	hist := &fakeHistory{}
	svc, _ := newService(t, coord, hist)
	ctx := context.Background()

	req := AssessRequest{SessionID: "s1", Category: "F-1", Profile: map[string]any{"full_name": "Ada"}}
	_, err := svc.Assess(ctx, req, nil, nil)
	require.NoError(t, err)

	stageErr := &contractx.StageError{Stage: contractx.StageRecommend, Err: fmt.Errorf("%w: 503", contractx.ErrModelInvoke)}
	coord.err = stageErr

	var failures int
	observer := contractx.ObserverFunc(func(e contractx.Event) {
		if e.Type == contractx.EventFailed {
			failures++
		}
	})
	res, err := svc.Assess(ctx, req, observer, nil)
	require.ErrorIs(t, err, contractx.ErrModelInvoke)
	assert.Equal(t, 1, failures)
	assert.Empty(t, res.Run.Report)

	st, err := svc.Session(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, st.LastReport)
	assert.Equal(t, "# first", st.LastReport.Markdown)
	assert.Contains(t, st.LastError, "recommend")
	assert.Len(t, hist.records, 1)
}

func TestAssessRequiresProfileAndCategory(t *testing.T) {
	coord := &fakeCoordinator{report: "x"}
	svc, _ := newService(t, coord, nil)
	ctx := context.Background()

	_, err := svc.Assess(ctx, AssessRequest{SessionID: "s1", Category: "F-1"}, nil, nil)
	assert.ErrorIs(t, err, contractx.ErrValidation)

	_, err = svc.Assess(ctx, AssessRequest{SessionID: "s1", Category: " ", Profile: map[string]any{"a": 1}}, nil, nil)
	assert.ErrorIs(t, err, contractx.ErrValidation)

	_, err = svc.Assess(ctx, AssessRequest{Category: "F-1", Profile: map[string]any{"a": 1}}, nil, nil)
	assert.ErrorIs(t, err, statex.ErrInvalidSession)

	assert.Empty(t, coord.inputs)
}

func TestAssessHistoryFailureDoesNotFailRun(t *testing.T) {
	coord := &fakeCoordinator{report: "# ok", score: 50}
	svc, _ := newService(t, coord, &fakeHistory{err: errors.New("db down")})

	_, err := svc.Assess(context.Background(), AssessRequest{SessionID: "s", Category: "B-2", Profile: map[string]any{"full_name": "A"}}, nil, nil)
	assert.NoError(t, err)
}

func TestLastReportMissing(t *testing.T) {
	svc, _ := newService(t, &fakeCoordinator{}, nil)

	_, err := svc.LastReport(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNoReport)

	_, err = svc.SaveProfile(context.Background(), "s", map[string]any{"full_name": "A"})
	require.NoError(t, err)
	_, err = svc.LastReport(context.Background(), "s")
	assert.ErrorIs(t, err, ErrNoReport)

	records, err := svc.History(context.Background(), "s", 5)
	assert.NoError(t, err)
	assert.Empty(t, records)
}
