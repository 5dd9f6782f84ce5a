package orchestratornode

import (
	"fmt"

	contractx "github.com/immisense/advisor/agent/contract"
)

func Finalize(in *GraphState) (GraphOutput, error) {
	if in == nil || in.Run == nil {
		return GraphOutput{}, ErrNoRun
	}
	if in.Run.Report == "" {
		return GraphOutput{}, fmt.Errorf("%w: run finished without a report", contractx.ErrValidation)
	}

	in.Run.State = contractx.RunReportReady
	in.emit(contractx.Event{Type: contractx.EventReportReady, Stage: contractx.StageCompileReport})
	return GraphOutput{Run: in.Run}, nil
}
