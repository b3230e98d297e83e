// Package catalog assembles the full module registry.
package catalog

import (
	"github.com/elastic/dorothy/internal/registry"
	"github.com/elastic/dorothy/pkg/modules/discovery"
	"github.com/elastic/dorothy/pkg/modules/evasion"
	"github.com/elastic/dorothy/pkg/modules/persistence"
)

// Load builds and seals the registry with every shipped module. Callers
// that need a partial or extended catalog construct their own registry
// instead.
func Load() (*registry.Registry, error) {
	r := registry.New()

	for _, register := range []func(*registry.Registry) error{
		discovery.Register,
		persistence.Register,
		evasion.Register,
	} {
		if err := register(r); err != nil {
			return nil, err
		}
	}

	r.Seal()
	return r, nil
}
