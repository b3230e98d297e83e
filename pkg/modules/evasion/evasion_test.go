package evasion

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elastic/dorothy/pkg/ledger"
	"github.com/elastic/dorothy/pkg/modules"
	"github.com/elastic/dorothy/pkg/okta"
)

func newExec(t *testing.T, srv *httptest.Server, mod modules.Module, params modules.Params, dryRun bool) (*modules.Exec, *ledger.Recorder) {
	t.Helper()

	client, err := okta.New(okta.Config{
		OrgURL:     srv.URL,
		Token:      "00test-token",
		MaxRetries: 1,
		MaxElapsed: 2 * time.Second,
	})
	require.NoError(t, err)
	if dryRun {
		client = client.ReadOnly()
	}

	d := mod.Descriptor()
	validated, err := modules.ValidateParams(d.Options, params)
	require.NoError(t, err)

	recorder := ledger.New("run-test").ForModule(d.ID.String())
	return &modules.Exec{
		Client:    client,
		Params:    validated,
		Artifacts: recorder,
		DryRun:    dryRun,
		Log:       slog.New(slog.DiscardHandler),
	}, recorder
}

func TestChangePolicyStateRecordsOppositeReversal(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.Equal(t, http.MethodPost, r.Method)
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	params := modules.Params{"policy-id": "00p1", "operation": "deactivate"}
	exec, recorder := newExec(t, srv, NewChangePolicyState(), params, false)
	out, err := NewChangePolicyState().Execute(context.Background(), exec)
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/policies/00p1/lifecycle/deactivate", gotPath)
	assert.Equal(t, StateChangeOutput{Target: "00p1", Operation: "deactivate"}, out)

	records := recorder.Records()
	require.Len(t, records, 1)
	assert.Equal(t, ledger.KindPolicy, records[0].Kind)
	require.NotNil(t, records[0].Reversal)
	assert.Equal(t, "/policies/00p1/lifecycle/activate", records[0].Reversal.Steps[0].Path)
}

func TestChangeRuleStateTargetsNestedPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	params := modules.Params{"policy-id": "00p1", "rule-id": "0pr1", "operation": "deactivate"}
	exec, recorder := newExec(t, srv, NewChangeRuleState(), params, false)
	_, err := NewChangeRuleState().Execute(context.Background(), exec)
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/policies/00p1/rules/0pr1/lifecycle/deactivate", gotPath)

	records := recorder.Records()
	require.Len(t, records, 1)
	assert.Equal(t, ledger.KindPolicyRule, records[0].Kind)
	assert.Equal(t, "/policies/00p1/rules/0pr1/lifecycle/activate", records[0].Reversal.Steps[0].Path)
}

func TestChangeZoneStateDryRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
	}))
	defer srv.Close()

	params := modules.Params{"zone-id": "nz1", "operation": "deactivate"}
	exec, recorder := newExec(t, srv, NewChangeZoneState(), params, true)
	out, err := NewChangeZoneState().Execute(context.Background(), exec)
	require.NoError(t, err)

	planned, ok := out.(modules.Planned)
	require.True(t, ok)
	assert.True(t, planned.WouldMutate)
	assert.Contains(t, planned.Calls[0], "/zones/nz1/lifecycle/deactivate")
	assert.Empty(t, recorder.Records())
}

func TestStateOperationValidation(t *testing.T) {
	d := NewChangeAppState().Descriptor()

	_, err := modules.ValidateParams(d.Options, modules.Params{"app-id": "0oa1", "operation": "deactivate"})
	assert.NoError(t, err)

	_, err = modules.ValidateParams(d.Options, modules.Params{"app-id": "0oa1", "operation": "suspend"})
	assert.Error(t, err)
}

func TestOppositeOperation(t *testing.T) {
	assert.Equal(t, "deactivate", oppositeOperation("activate"))
	assert.Equal(t, "activate", oppositeOperation("deactivate"))
}
