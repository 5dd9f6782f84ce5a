package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/immisense/advisor/agent/contract"
	handoffx "github.com/immisense/advisor/agent/handoff"
)

// ParseProfile turns the composite input block into a ProfileRecord. A record
// without a visa category stops the run here.
func ParseProfile(ctx context.Context, in *GraphState, parser contractx.RoleAgent) (*GraphState, error) {
	err := runStage(ctx, in, contractx.StageParseProfile, func(ctx context.Context) error {
		raw, err := parser.Invoke(ctx, in.Run.Input)
		if err != nil {
			return err
		}

		profile, err := handoffx.Decode[contractx.ProfileRecord](handoffx.SchemaProfile, raw)
		if err != nil {
			return err
		}
		profile.VisaCategory = strings.TrimSpace(profile.VisaCategory)
		if profile.VisaCategory == "" {
			return fmt.Errorf("%w: profile has no visa_category", contractx.ErrValidation)
		}

		in.Run.Profile = &profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return in, nil
}
