package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModuleSpec(t *testing.T) {
	mreq, err := parseModuleSpec("discovery/get-users")
	require.NoError(t, err)
	assert.Equal(t, "discovery/get-users", mreq.ID)
	assert.Empty(t, mreq.Params)

	mreq, err = parseModuleSpec("persistence/create-user?login=eve%40example.com&first-name=Eve")
	require.NoError(t, err)
	assert.Equal(t, "persistence/create-user", mreq.ID)
	assert.Equal(t, "eve@example.com", mreq.Params["login"])
	assert.Equal(t, "Eve", mreq.Params["first-name"])

	_, err = parseModuleSpec("persistence/create-user?login=%zz")
	assert.Error(t, err)
}

func TestBuildRequestMarksBestEffort(t *testing.T) {
	runModules = []string{"discovery/whoami", "discovery/get-users"}
	runBestEffort = []string{"discovery/get-users"}
	defer func() {
		runModules = nil
		runBestEffort = nil
	}()

	req, err := buildRequest()
	require.NoError(t, err)
	require.Len(t, req.Modules, 2)
	assert.False(t, req.Modules[0].BestEffort)
	assert.True(t, req.Modules[1].BestEffort)
}
