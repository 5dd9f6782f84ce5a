package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/immisense/advisor/agent/contract"
	handoffx "github.com/immisense/advisor/agent/handoff"
)

type scoreInput struct {
	UserProfile      *contractx.ProfileRecord `json:"user_profile"`
	VisaRequirements []string                 `json:"visa_requirements"`
}

func ScoreEligibility(ctx context.Context, in *GraphState, scorer contractx.RoleAgent) (*GraphState, error) {
	err := runStage(ctx, in, contractx.StageScoreEligibility, func(ctx context.Context) error {
		if in.Run.Profile == nil || in.Run.Requirements == nil {
			return fmt.Errorf("%w: profile or requirements missing", contractx.ErrValidation)
		}

		input, err := payload(scoreInput{
			UserProfile:      in.Run.Profile,
			VisaRequirements: in.Run.Requirements.VisaRequirements,
		})
		if err != nil {
			return err
		}
		raw, err := scorer.Invoke(ctx, input)
		if err != nil {
			return err
		}

		score, err := handoffx.Decode[contractx.ScoreReport](handoffx.SchemaScore, raw)
		if err != nil {
			return err
		}
		in.Run.Score = &score
		return nil
	})
	if err != nil {
		return nil, err
	}
	return in, nil
}
