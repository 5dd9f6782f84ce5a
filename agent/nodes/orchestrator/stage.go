package orchestratornode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	contractx "github.com/immisense/advisor/agent/contract"
	metricsx "github.com/immisense/advisor/pkg/metrics"
	"github.com/rs/zerolog/log"
)

// runStage moves the run into stage, emits the start and completion events
// and tags any failure with the stage name.
func runStage(ctx context.Context, st *GraphState, stage contractx.Stage, fn func(context.Context) error) error {
	if st == nil || st.Run == nil {
		return ErrNoRun
	}
	if err := ctx.Err(); err != nil {
		return &contractx.StageError{Stage: stage, Err: err}
	}

	st.Run.Stage = stage
	st.Run.State = contractx.StateFor(stage)
	st.emit(contractx.Event{Type: contractx.EventStageStarted, Stage: stage})
	log.Debug().Str("run_id", st.Run.ID).Str("stage", string(stage)).Msg("stage started")

	started := st.Now()
	err := fn(ctx)
	metricsx.StageDuration.WithLabelValues(string(stage)).Observe(st.Now().Sub(started).Seconds())
	if err != nil {
		metricsx.StageFailures.WithLabelValues(string(stage), failureReason(err)).Inc()
		return &contractx.StageError{Stage: stage, Err: err}
	}

	st.emit(contractx.Event{Type: contractx.EventStageCompleted, Stage: stage})
	log.Debug().Str("run_id", st.Run.ID).Str("stage", string(stage)).Msg("stage completed")
	return nil
}

func (st *GraphState) emit(e contractx.Event) {
	if st.Observer == nil {
		return
	}
	e.RunID = st.Run.ID
	e.State = st.Run.State
	if e.At.IsZero() {
		e.At = st.Now().UTC()
	}
	st.Observer.OnEvent(e)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, contractx.ErrSchemaViolation):
		return "schema"
	case errors.Is(err, contractx.ErrValidation):
		return "validation"
	case errors.Is(err, contractx.ErrModelInvoke):
		return "model"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}

func payload(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode stage payload: %w", err)
	}
	return string(b), nil
}
