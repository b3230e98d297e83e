package persistence

import (
	"context"
	"encoding/json"
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

func userParams() modules.Params {
	return modules.Params{
		"first-name": "Eve",
		"last-name":  "Adversary",
		"email":      "eve@example.com",
		"login":      "eve@example.com",
		"password":   "correct-horse-battery",
	}
}

func TestCreateUserRecordsArtifactWithTeardownSteps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/users", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("activate"))

		var payload okta.NewUser
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "eve@example.com", payload.Profile.Login)
		require.NotNil(t, payload.Credentials)

		fmt.Fprint(w, `{"id":"00uNew","status":"ACTIVE","profile":{"login":"eve@example.com"}}`)
	}))
	defer srv.Close()

	exec, recorder := newExec(t, srv, NewCreateUser(), userParams(), false)
	out, err := NewCreateUser().Execute(context.Background(), exec)
	require.NoError(t, err)

	user, ok := out.(okta.User)
	require.True(t, ok)
	assert.Equal(t, "00uNew", user.ID)

	records := recorder.Records()
	require.Len(t, records, 1)
	assert.Equal(t, ledger.KindUser, records[0].Kind)
	assert.Equal(t, "00uNew", records[0].RemoteID)

	// Deleting an Okta user takes a deactivate call first.
	require.NotNil(t, records[0].Reversal)
	require.Len(t, records[0].Reversal.Steps, 2)
	assert.Equal(t, "/users/00uNew/lifecycle/deactivate", records[0].Reversal.Steps[0].Path)
	assert.Equal(t, "DELETE", records[0].Reversal.Steps[1].Method)
}

func TestCreateUserDryRunIssuesNoCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
	}))
	defer srv.Close()

	exec, recorder := newExec(t, srv, NewCreateUser(), userParams(), true)
	out, err := NewCreateUser().Execute(context.Background(), exec)
	require.NoError(t, err)

	planned, ok := out.(modules.Planned)
	require.True(t, ok)
	assert.True(t, planned.WouldMutate)
	assert.NotEmpty(t, planned.Calls)
	assert.Empty(t, recorder.Records())
}

func TestCreateAdminUserKeepsUserArtifactWhenRoleAssignmentFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"00uNew","status":"ACTIVE","profile":{"login":"eve@example.com"}}`)
	})
	mux.HandleFunc("/api/v1/users/00uNew/roles", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"errorCode":"E0000006","errorSummary":"You do not have permission"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	exec, recorder := newExec(t, srv, NewCreateAdminUser(), userParams(), false)
	_, err := NewCreateAdminUser().Execute(context.Background(), exec)
	require.Error(t, err)

	// The user exists remotely even though the module failed, so it must
	// be in the ledger for cleanup.
	records := recorder.Records()
	require.Len(t, records, 1)
	assert.Equal(t, ledger.KindUser, records[0].Kind)
	assert.Equal(t, "00uNew", records[0].RemoteID)
}

func TestCreateAdminUserRecordsRoleBeforeUserReversalOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"00uNew","status":"ACTIVE","profile":{"login":"eve@example.com"}}`)
	})
	mux.HandleFunc("/api/v1/users/00uNew/roles", func(w http.ResponseWriter, r *http.Request) {
		var assignment okta.RoleAssignment
		require.NoError(t, json.NewDecoder(r.Body).Decode(&assignment))
		assert.Equal(t, "ORG_ADMIN", assignment.Type)
		fmt.Fprint(w, `{"id":"ra1","type":"ORG_ADMIN","status":"ACTIVE"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	params := userParams()
	params["role-type"] = "ORG_ADMIN"

	exec, recorder := newExec(t, srv, NewCreateAdminUser(), params, false)
	out, err := NewCreateAdminUser().Execute(context.Background(), exec)
	require.NoError(t, err)

	result, ok := out.(CreateAdminUserOutput)
	require.True(t, ok)
	assert.Equal(t, "ra1", result.Role.ID)

	records := recorder.Records()
	require.Len(t, records, 2)
	assert.Equal(t, ledger.KindUser, records[0].Kind)
	assert.Equal(t, ledger.KindRole, records[1].Kind)
	assert.Equal(t, "/users/00uNew/roles/ra1", records[1].Reversal.Steps[0].Path)
}

func TestCreateAdminUserRejectsUnknownRoleType(t *testing.T) {
	params := userParams()
	params["role-type"] = "WIZARD"

	d := NewCreateAdminUser().Descriptor()
	_, err := modules.ValidateParams(d.Options, params)
	assert.Error(t, err)
}

func TestChangeUserStateRecordsOppositeOperation(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	params := modules.Params{"user-id": "00u1", "operation": "suspend"}
	exec, recorder := newExec(t, srv, NewChangeUserState(), params, false)
	out, err := NewChangeUserState().Execute(context.Background(), exec)
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/users/00u1/lifecycle/suspend", gotPath)
	assert.Equal(t, ChangeUserStateOutput{UserID: "00u1", Operation: "suspend"}, out)

	records := recorder.Records()
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Reversal)
	assert.Equal(t, "/users/00u1/lifecycle/unsuspend", records[0].Reversal.Steps[0].Path)
}

func TestChangeUserStateUnlockHasNoReversal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	params := modules.Params{"user-id": "00u1", "operation": "unlock"}
	exec, recorder := newExec(t, srv, NewChangeUserState(), params, false)
	_, err := NewChangeUserState().Execute(context.Background(), exec)
	require.NoError(t, err)

	records := recorder.Records()
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Reversal)
}

func TestChangeUserStateRejectsUnknownOperation(t *testing.T) {
	d := NewChangeUserState().Descriptor()
	_, err := modules.ValidateParams(d.Options, modules.Params{"user-id": "00u1", "operation": "obliterate"})
	assert.Error(t, err)
}

func TestResetFactorsRecordsEachRemovedFactor(t *testing.T) {
	var deleted []string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/users/00u1/factors", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"fct1","factorType":"token:software:totp"},{"id":"fct2","factorType":"sms"}]`)
	})
	mux.HandleFunc("DELETE /api/v1/users/00u1/factors/{id}", func(w http.ResponseWriter, r *http.Request) {
		deleted = append(deleted, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	params := modules.Params{"user-id": "00u1"}
	exec, recorder := newExec(t, srv, NewResetFactors(), params, false)
	out, err := NewResetFactors().Execute(context.Background(), exec)
	require.NoError(t, err)

	result, ok := out.(ResetFactorsOutput)
	require.True(t, ok)
	assert.Len(t, result.Removed, 2)
	assert.Equal(t, []string{"fct1", "fct2"}, deleted)

	// Factor removal cannot be undone, so the records carry no reversal.
	records := recorder.Records()
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, ledger.KindFactor, rec.Kind)
		assert.Nil(t, rec.Reversal)
	}
}

func TestResetFactorsDryRunOnlyReads(t *testing.T) {
	var deletes int
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/users/00u1/factors", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"fct1","factorType":"sms"}]`)
	})
	mux.HandleFunc("DELETE /", func(w http.ResponseWriter, r *http.Request) {
		deletes++
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	params := modules.Params{"user-id": "00u1"}
	exec, recorder := newExec(t, srv, NewResetFactors(), params, true)
	out, err := NewResetFactors().Execute(context.Background(), exec)
	require.NoError(t, err)

	planned, ok := out.(modules.Planned)
	require.True(t, ok)
	assert.True(t, planned.WouldMutate)
	assert.Zero(t, deletes)
	assert.Empty(t, recorder.Records())
}

func TestResetPasswordReturnsOneTimeTokenURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/users/00u1/lifecycle/reset_password", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("sendEmail"))
		fmt.Fprint(w, `{"resetPasswordUrl":"https://example.okta.com/reset_password/XE6wE17zmphl3KqAPFxO"}`)
	}))
	defer srv.Close()

	params := modules.Params{"user-id": "00u1"}
	exec, recorder := newExec(t, srv, NewResetPassword(), params, false)
	out, err := NewResetPassword().Execute(context.Background(), exec)
	require.NoError(t, err)

	result, ok := out.(ResetPasswordOutput)
	require.True(t, ok)
	assert.Contains(t, result.ResetPasswordURL, "reset_password/")

	records := recorder.Records()
	require.Len(t, records, 1)
	assert.Equal(t, ledger.KindUser, records[0].Kind)
	assert.Nil(t, records[0].Reversal)
}

func TestCreateAPITokenRecordsTokenArtifact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth2/v1/clients", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		fmt.Fprint(w, `{"client_id":"0oaSvc","client_secret":"shhh","client_name":"backup-integration"}`)
	}))
	defer srv.Close()

	params := modules.Params{"client-name": "backup-integration"}
	exec, recorder := newExec(t, srv, NewCreateAPIToken(), params, false)
	out, err := NewCreateAPIToken().Execute(context.Background(), exec)
	require.NoError(t, err)

	client, ok := out.(okta.OAuthClient)
	require.True(t, ok)
	assert.Equal(t, "0oaSvc", client.ClientID)

	records := recorder.Records()
	require.Len(t, records, 1)
	assert.Equal(t, ledger.KindToken, records[0].Kind)
	assert.Equal(t, "0oaSvc", records[0].RemoteID)
	require.NotNil(t, records[0].Reversal)
	assert.Equal(t, "/oauth2/v1/clients/0oaSvc", records[0].Reversal.Steps[0].Path)
}
