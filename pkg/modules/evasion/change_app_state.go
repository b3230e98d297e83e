package evasion

import (
	"context"

	"github.com/elastic/dorothy/pkg/ledger"
	"github.com/elastic/dorothy/pkg/modules"
)

var changeAppStateDescriptor = modules.Descriptor{
	ID:          modules.TechniqueID{Tactic: modules.DefenseEvasion, Name: "change-app-state"},
	Description: "Activate or deactivate an Okta application",
	Scopes:      []string{"okta.apps.manage"},
	Artifacts:   []ledger.Kind{ledger.KindApp},
	References:  []string{"https://attack.mitre.org/techniques/T1562/"},
	Options: []*modules.Option{
		{Name: "app-id", Description: "The unique ID of the application", Required: true, Type: modules.String},
		{Name: "operation", Description: "activate or deactivate", Required: true, Type: modules.String, ValueFormat: stateOperationFormat},
	},
}

type ChangeAppState struct {
	modules.BaseModule
}

func NewChangeAppState() modules.Module {
	return &ChangeAppState{modules.NewBase(changeAppStateDescriptor)}
}

func (m *ChangeAppState) Execute(ctx context.Context, exec *modules.Exec) (any, error) {
	appID := exec.Params.String("app-id")
	return changeState(ctx, exec, ledger.KindApp, "/apps/"+appID, appID)
}
