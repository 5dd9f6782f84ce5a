package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/immisense/advisor/agent/contract"
	handoffx "github.com/immisense/advisor/agent/handoff"
)

type recommendInput struct {
	UserProfile      *contractx.ProfileRecord `json:"user_profile"`
	VisaRequirements []string                 `json:"visa_requirements"`
	ScoringData      *contractx.ScoreReport   `json:"scoring_data"`
}

func Recommend(ctx context.Context, in *GraphState, recommender contractx.RoleAgent) (*GraphState, error) {
	err := runStage(ctx, in, contractx.StageRecommend, func(ctx context.Context) error {
		if in.Run.Profile == nil || in.Run.Requirements == nil || in.Run.Score == nil {
			return fmt.Errorf("%w: earlier stage artifacts missing", contractx.ErrValidation)
		}

		input, err := payload(recommendInput{
			UserProfile:      in.Run.Profile,
			VisaRequirements: in.Run.Requirements.VisaRequirements,
			ScoringData:      in.Run.Score,
		})
		if err != nil {
			return err
		}
		raw, err := recommender.Invoke(ctx, input)
		if err != nil {
			return err
		}

		rec, err := handoffx.Decode[contractx.Recommendation](handoffx.SchemaRecommendation, raw)
		if err != nil {
			return err
		}
		in.Run.Recommendation = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return in, nil
}
