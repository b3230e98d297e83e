package evasion

import (
	"context"

	"github.com/elastic/dorothy/pkg/ledger"
	"github.com/elastic/dorothy/pkg/modules"
)

var changePolicyStateDescriptor = modules.Descriptor{
	ID:          modules.TechniqueID{Tactic: modules.DefenseEvasion, Name: "change-policy-state"},
	Description: "Activate or deactivate an Okta policy",
	Scopes:      []string{"okta.policies.manage"},
	Artifacts:   []ledger.Kind{ledger.KindPolicy},
	References:  []string{"https://attack.mitre.org/techniques/T1562/"},
	Options: []*modules.Option{
		{Name: "policy-id", Description: "The unique ID of the policy", Required: true, Type: modules.String},
		{Name: "operation", Description: "activate or deactivate", Required: true, Type: modules.String, ValueFormat: stateOperationFormat},
	},
}

type ChangePolicyState struct {
	modules.BaseModule
}

func NewChangePolicyState() modules.Module {
	return &ChangePolicyState{modules.NewBase(changePolicyStateDescriptor)}
}

func (m *ChangePolicyState) Execute(ctx context.Context, exec *modules.Exec) (any, error) {
	policyID := exec.Params.String("policy-id")
	return changeState(ctx, exec, ledger.KindPolicy, "/policies/"+policyID, policyID)
}
