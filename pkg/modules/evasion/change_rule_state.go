package evasion

import (
	"context"

	"github.com/elastic/dorothy/pkg/ledger"
	"github.com/elastic/dorothy/pkg/modules"
)

var changeRuleStateDescriptor = modules.Descriptor{
	ID:          modules.TechniqueID{Tactic: modules.DefenseEvasion, Name: "change-rule-state"},
	Description: "Activate or deactivate an individual rule of an Okta policy",
	Scopes:      []string{"okta.policies.manage"},
	Artifacts:   []ledger.Kind{ledger.KindPolicyRule},
	References:  []string{"https://attack.mitre.org/techniques/T1562/"},
	Options: []*modules.Option{
		{Name: "policy-id", Description: "The unique ID of the policy owning the rule", Required: true, Type: modules.String},
		{Name: "rule-id", Description: "The unique ID of the policy rule", Required: true, Type: modules.String},
		{Name: "operation", Description: "activate or deactivate", Required: true, Type: modules.String, ValueFormat: stateOperationFormat},
	},
}

type ChangeRuleState struct {
	modules.BaseModule
}

func NewChangeRuleState() modules.Module {
	return &ChangeRuleState{modules.NewBase(changeRuleStateDescriptor)}
}

func (m *ChangeRuleState) Execute(ctx context.Context, exec *modules.Exec) (any, error) {
	policyID := exec.Params.String("policy-id")
	ruleID := exec.Params.String("rule-id")
	return changeState(ctx, exec, ledger.KindPolicyRule, "/policies/"+policyID+"/rules/"+ruleID, ruleID)
}
