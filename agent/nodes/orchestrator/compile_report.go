package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/immisense/advisor/agent/contract"
)

type compileInput struct {
	Profile         *contractx.ProfileRecord  `json:"profile"`
	Requirements    *contractx.RequirementSet `json:"requirements"`
	Scoring         *contractx.ScoreReport    `json:"scoring"`
	Recommendations *contractx.Recommendation `json:"recommendations"`
}

// CompileReport streams the Markdown report. Each chunk is forwarded to the
// caller's sink and emitted as a report_chunk event before the next arrives.
func CompileReport(ctx context.Context, in *GraphState, compiler contractx.ReportCompiler) (*GraphState, error) {
	err := runStage(ctx, in, contractx.StageCompileReport, func(ctx context.Context) error {
		if in.Run.Recommendation == nil {
			return fmt.Errorf("%w: recommendation missing", contractx.ErrValidation)
		}

		input, err := payload(compileInput{
			Profile:         in.Run.Profile,
			Requirements:    in.Run.Requirements,
			Scoring:         in.Run.Score,
			Recommendations: in.Run.Recommendation,
		})
		if err != nil {
			return err
		}

		report, err := compiler.Stream(ctx, input, func(chunk string) error {
			in.emit(contractx.Event{Type: contractx.EventReportChunk, Stage: contractx.StageCompileReport, Chunk: chunk})
			if in.Sink != nil {
				return in.Sink(chunk)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if strings.TrimSpace(report) == "" {
			return fmt.Errorf("%w: compiler returned an empty report", contractx.ErrSchemaViolation)
		}

		in.Run.Report = report
		return nil
	})
	if err != nil {
		return nil, err
	}
	return in, nil
}
