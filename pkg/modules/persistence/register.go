package persistence

import (
	"github.com/elastic/dorothy/internal/registry"
	"github.com/elastic/dorothy/pkg/modules"
)

// Register adds the persistence modules to the catalog.
func Register(r *registry.Registry) error {
	entries := []struct {
		descriptor modules.Descriptor
		factory    modules.Factory
	}{
		{createUserDescriptor, NewCreateUser},
		{createAdminUserDescriptor, NewCreateAdminUser},
		{createAPITokenDescriptor, NewCreateAPIToken},
		{changeUserStateDescriptor, NewChangeUserState},
		{resetFactorsDescriptor, NewResetFactors},
		{resetPasswordDescriptor, NewResetPassword},
	}

	for _, e := range entries {
		if err := r.Register(e.descriptor, e.factory); err != nil {
			return err
		}
	}
	return nil
}
