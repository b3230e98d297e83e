package evasion

import (
	"github.com/elastic/dorothy/internal/registry"
	"github.com/elastic/dorothy/pkg/modules"
)

// Register adds the defense-evasion modules to the catalog.
func Register(r *registry.Registry) error {
	entries := []struct {
		descriptor modules.Descriptor
		factory    modules.Factory
	}{
		{changePolicyStateDescriptor, NewChangePolicyState},
		{changeRuleStateDescriptor, NewChangeRuleState},
		{changeZoneStateDescriptor, NewChangeZoneState},
		{changeAppStateDescriptor, NewChangeAppState},
	}

	for _, e := range entries {
		if err := r.Register(e.descriptor, e.factory); err != nil {
			return err
		}
	}
	return nil
}
