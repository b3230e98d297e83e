package evasion

import (
	"context"

	"github.com/elastic/dorothy/pkg/ledger"
	"github.com/elastic/dorothy/pkg/modules"
)

var changeZoneStateDescriptor = modules.Descriptor{
	ID:          modules.TechniqueID{Tactic: modules.DefenseEvasion, Name: "change-zone-state"},
	Description: "Activate or deactivate an Okta network zone",
	Scopes:      []string{"okta.networkZones.manage"},
	Artifacts:   []ledger.Kind{ledger.KindZone},
	References:  []string{"https://attack.mitre.org/techniques/T1562/007/"},
	Options: []*modules.Option{
		{Name: "zone-id", Description: "The unique ID of the network zone", Required: true, Type: modules.String},
		{Name: "operation", Description: "activate or deactivate", Required: true, Type: modules.String, ValueFormat: stateOperationFormat},
	},
}

type ChangeZoneState struct {
	modules.BaseModule
}

func NewChangeZoneState() modules.Module {
	return &ChangeZoneState{modules.NewBase(changeZoneStateDescriptor)}
}

func (m *ChangeZoneState) Execute(ctx context.Context, exec *modules.Exec) (any, error) {
	zoneID := exec.Params.String("zone-id")
	return changeState(ctx, exec, ledger.KindZone, "/zones/"+zoneID, zoneID)
}
