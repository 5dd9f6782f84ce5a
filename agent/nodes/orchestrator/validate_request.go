package orchestratornode

import (
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/immisense/advisor/agent/contract"
)

var (
	ErrEmptyInput = fmt.Errorf("%w: profile input is empty", contractx.ErrValidation)
	ErrNoRun      = errors.New("run is nil")
)

type GraphInput struct {
	Run      *contractx.Run
	Observer contractx.Observer
	Sink     contractx.ChunkSink
}

type GraphOutput struct {
	Run *contractx.Run
}

// GraphState travels through every node of one pipeline run.
type GraphState struct {
	Run      *contractx.Run
	Observer contractx.Observer
	Sink     contractx.ChunkSink
	Now      func() time.Time
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	if in.Run == nil {
		return nil, ErrNoRun
	}
	if in.Run.State != contractx.RunAwaitingProfile {
		return nil, fmt.Errorf("%w: run %s is in state %s", contractx.ErrValidation, in.Run.ID, in.Run.State)
	}
	if strings.TrimSpace(in.Run.Input) == "" {
		return nil, &contractx.StageError{Stage: contractx.StageParseProfile, Err: ErrEmptyInput}
	}

	return &GraphState{
		Run:      in.Run,
		Observer: in.Observer,
		Sink:     in.Sink,
		Now:      nowFn,
	}, nil
}
