package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/immisense/advisor/agent/contract"
	handoffx "github.com/immisense/advisor/agent/handoff"
)

func ResearchRequirements(ctx context.Context, in *GraphState, researcher contractx.RoleAgent) (*GraphState, error) {
	err := runStage(ctx, in, contractx.StageResearchRequirements, func(ctx context.Context) error {
		if in.Run.Profile == nil {
			return fmt.Errorf("%w: profile is missing", contractx.ErrValidation)
		}

		input, err := payload(map[string]string{"visa_category": in.Run.Profile.VisaCategory})
		if err != nil {
			return err
		}
		raw, err := researcher.Invoke(ctx, input)
		if err != nil {
			return err
		}

		reqs, err := handoffx.Decode[contractx.RequirementSet](handoffx.SchemaRequirements, raw)
		if err != nil {
			return err
		}
		in.Run.Requirements = &reqs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return in, nil
}
