package persistence

import (
	"context"
	"fmt"

	"github.com/elastic/dorothy/pkg/ledger"
	"github.com/elastic/dorothy/pkg/modules"
	"github.com/elastic/dorothy/pkg/okta"
)

var resetFactorsDescriptor = modules.Descriptor{
	ID:          modules.TechniqueID{Tactic: modules.Persistence, Name: "reset-factors"},
	Description: "Remove all enrolled MFA factors from an Okta user",
	Scopes:      []string{"okta.users.manage", "okta.factors.manage"},
	Artifacts:   []ledger.Kind{ledger.KindFactor},
	References:  []string{"https://attack.mitre.org/techniques/T1556/006/"},
	Options: []*modules.Option{
		{Name: "user-id", Description: "The unique ID of the user", Required: true, Type: modules.String},
	},
}

type ResetFactors struct {
	modules.BaseModule
}

func NewResetFactors() modules.Module {
	return &ResetFactors{modules.NewBase(resetFactorsDescriptor)}
}

type ResetFactorsOutput struct {
	UserID  string        `json:"user_id"`
	Removed []okta.Factor `json:"removed"`
}

func (m *ResetFactors) Execute(ctx context.Context, exec *modules.Exec) (any, error) {
	userID := exec.Params.String("user-id")

	var factors []okta.Factor
	if err := exec.Client.Get(ctx, "/users/"+userID+"/factors", nil, &factors); err != nil {
		return nil, err
	}

	if exec.DryRun {
		return modules.Planned{
			Description: fmt.Sprintf("Would remove %d enrolled MFA factor(s) from user %s", len(factors), userID),
			Calls:       []string{"DELETE /api/v1/users/" + userID + "/factors/{factorId}"},
			WouldMutate: len(factors) > 0,
		}, nil
	}

	out := ResetFactorsOutput{UserID: userID}
	for _, factor := range factors {
		if err := exec.Client.Delete(ctx, "/users/"+userID+"/factors/"+factor.ID); err != nil {
			return out, err
		}
		// Re-enrollment needs the user, so this mutation has no reversal;
		// cleanup reports it as irreversible.
		if _, err := exec.Artifacts.Created(ledger.KindFactor, factor.ID, nil); err != nil {
			return out, err
		}
		exec.Log.Info("deleted MFA factor", "user", userID, "factor", factor.ID, "type", factor.FactorType)
		out.Removed = append(out.Removed, factor)
	}
	return out, nil
}
