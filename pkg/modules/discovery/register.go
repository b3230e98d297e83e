package discovery

import (
	"github.com/elastic/dorothy/internal/registry"
	"github.com/elastic/dorothy/pkg/modules"
)

// Register adds the discovery modules to the catalog.
func Register(r *registry.Registry) error {
	entries := []struct {
		descriptor modules.Descriptor
		factory    modules.Factory
	}{
		{whoamiDescriptor, NewWhoami},
		{getUsersDescriptor, NewGetUsers},
		{getUserDescriptor, NewGetUser},
		{findAdminsDescriptor, NewFindAdmins},
		{findAdminGroupsDescriptor, NewFindAdminGroups},
		{findUsersWithoutMFADescriptor, NewFindUsersWithoutMFA},
		{getPoliciesDescriptor, NewGetPolicies},
	}

	for _, e := range entries {
		if err := r.Register(e.descriptor, e.factory); err != nil {
			return err
		}
	}
	return nil
}
