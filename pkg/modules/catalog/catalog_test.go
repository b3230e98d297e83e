package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalregistry "github.com/elastic/dorothy/internal/registry"
	"github.com/elastic/dorothy/pkg/modules"
)

func TestLoadBuildsSealedCatalog(t *testing.T) {
	reg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 17, reg.Len())

	// The catalog is sealed once loaded.
	d := modules.Descriptor{ID: modules.TechniqueID{Tactic: modules.Impact, Name: "late"}}
	err = reg.Register(d, func() modules.Module { return nil })
	assert.ErrorIs(t, err, internalregistry.ErrSealed)
}

func TestLoadedDescriptorsAreWellFormed(t *testing.T) {
	reg, err := Load()
	require.NoError(t, err)

	for _, d := range reg.List() {
		assert.NotEmpty(t, d.Description, "module %s has no description", d.ID)
		assert.NotEmpty(t, d.References, "module %s has no references", d.ID)

		// Identifiers must round-trip through the parser the CLI uses.
		id, err := modules.ParseTechniqueID(d.ID.String())
		require.NoError(t, err)
		assert.Equal(t, d.ID, id)

		mod, err := reg.Resolve(d.ID)
		require.NoError(t, err)
		assert.Equal(t, d.ID, mod.Descriptor().ID)
	}
}
