package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	contractx "github.com/immisense/advisor/agent/contract"
	nodex "github.com/immisense/advisor/agent/nodes/orchestrator"
	metricsx "github.com/immisense/advisor/pkg/metrics"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyInput = nodex.ErrEmptyInput
)

// Orchestrator runs the five assessment stages in order. It holds no per-run
// state; everything a run produces lives in the returned Run.
type Orchestrator struct {
	models contractx.Registry

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now   func() time.Time
	newID func() string
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) {
		if newID != nil {
			o.newID = newID
		}
	}
}

func New(models contractx.Registry, opts ...Option) (*Orchestrator, error) {
	if models == nil {
		return nil, errors.New("model registry is required")
	}

	o := &Orchestrator{
		models: models,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}

	graphRunner, err := o.compileAssessmentGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Run executes one assessment. The returned Run is never nil; on failure its
// state is failed, it carries no report, and observer has seen exactly one
// failed event.
func (o *Orchestrator) Run(
	ctx context.Context,
	input string,
	observer contractx.Observer,
	sink contractx.ChunkSink,
) (*contractx.Run, error) {
	run := &contractx.Run{
		ID:        o.newID(),
		Input:     input,
		State:     contractx.RunAwaitingProfile,
		StartedAt: o.now().UTC(),
	}

	metricsx.ActiveRuns.Inc()
	defer metricsx.ActiveRuns.Dec()

	_, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		Run:      run,
		Observer: observer,
		Sink:     sink,
	})
	if err != nil {
		o.fail(run, observer, err)
		return run, err
	}

	metricsx.PipelineRuns.WithLabelValues("report_ready").Inc()
	log.Info().
		Str("run_id", run.ID).
		Dur("elapsed", o.now().Sub(run.StartedAt)).
		Msg("assessment report ready")
	return run, nil
}

func (o *Orchestrator) fail(run *contractx.Run, observer contractx.Observer, err error) {
	stage, ok := contractx.StageOf(err)
	if !ok {
		stage = run.Stage
	}

	run.Stage = stage
	run.State = contractx.RunFailed
	run.Report = ""

	metricsx.PipelineRuns.WithLabelValues("failed").Inc()
	log.Error().Err(err).Str("run_id", run.ID).Str("stage", string(stage)).Msg("assessment failed")

	if observer != nil {
		observer.OnEvent(contractx.Event{
			Type:  contractx.EventFailed,
			RunID: run.ID,
			Stage: stage,
			State: contractx.RunFailed,
			Err:   err,
			At:    o.now().UTC(),
		})
	}
}
