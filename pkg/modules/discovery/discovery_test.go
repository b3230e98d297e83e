package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elastic/dorothy/pkg/ledger"
	"github.com/elastic/dorothy/pkg/modules"
	"github.com/elastic/dorothy/pkg/okta"
)

func newExec(t *testing.T, srv *httptest.Server, mod modules.Module, params modules.Params) *modules.Exec {
	t.Helper()

	client, err := okta.New(okta.Config{
		OrgURL:     srv.URL,
		Token:      "00test-token",
		MaxRetries: 1,
		MaxElapsed: 2 * time.Second,
	})
	require.NoError(t, err)

	d := mod.Descriptor()
	validated, err := modules.ValidateParams(d.Options, params)
	require.NoError(t, err)

	return &modules.Exec{
		Client:    client,
		Params:    validated,
		Artifacts: ledger.New("run-test").ForModule(d.ID.String()),
		Log:       slog.New(slog.DiscardHandler),
	}
}

func TestWhoamiReturnsUserAndRoles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"00uMe","status":"ACTIVE","profile":{"login":"admin@example.com","firstName":"Ada","lastName":"Admin"}}`)
	})
	mux.HandleFunc("/api/v1/users/00uMe/roles", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"ra1","type":"SUPER_ADMIN","status":"ACTIVE"}]`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	exec := newExec(t, srv, NewWhoami(), nil)
	out, err := NewWhoami().Execute(context.Background(), exec)
	require.NoError(t, err)

	result, ok := out.(WhoamiOutput)
	require.True(t, ok)
	assert.Equal(t, "admin@example.com", result.User.Profile.Login)
	require.Len(t, result.Roles, 1)
	assert.Equal(t, "SUPER_ADMIN", result.Roles[0].Type)
}

func TestGetUsersFollowsPaginationAndForwardsQuery(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/users", r.URL.Path)

		if r.URL.Query().Get("after") == "p2" {
			fmt.Fprint(w, `[{"id":"00u3","profile":{"login":"c@example.com"}}]`)
			return
		}

		assert.Equal(t, `status eq "ACTIVE"`, r.URL.Query().Get("filter"))
		w.Header().Set("Link", fmt.Sprintf(`<%s/api/v1/users?after=p2>; rel="next"`, srv.URL))
		fmt.Fprint(w, `[{"id":"00u1","profile":{"login":"a@example.com"}},{"id":"00u2","profile":{"login":"b@example.com"}}]`)
	}))
	defer srv.Close()

	params := modules.Params{"filter": `status eq "ACTIVE"`}
	exec := newExec(t, srv, NewGetUsers(), params)
	out, err := NewGetUsers().Execute(context.Background(), exec)
	require.NoError(t, err)

	result, ok := out.(GetUsersOutput)
	require.True(t, ok)
	assert.Equal(t, 3, result.Count)
	require.Len(t, result.Users, 3)
	assert.Equal(t, "00u3", result.Users[2].ID)
}

func TestGetUsersSavesHarvestFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"00u1","profile":{"login":"a@example.com"}}]`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	params := modules.Params{"save-dir": dir}
	exec := newExec(t, srv, NewGetUsers(), params)
	out, err := NewGetUsers().Execute(context.Background(), exec)
	require.NoError(t, err)

	result, ok := out.(GetUsersOutput)
	require.True(t, ok)
	require.NotEmpty(t, result.File)

	data, err := os.ReadFile(result.File)
	require.NoError(t, err)

	var saved []okta.User
	require.NoError(t, json.Unmarshal(data, &saved))
	require.Len(t, saved, 1)
	assert.Equal(t, "a@example.com", saved[0].Profile.Login)
}

func TestFindUsersWithoutMFA(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"00u1","profile":{"login":"a@example.com"}},{"id":"00u2","profile":{"login":"b@example.com"}}]`)
	})
	mux.HandleFunc("/api/v1/users/00u1/factors", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"fct1","factorType":"sms","status":"ACTIVE"}]`)
	})
	mux.HandleFunc("/api/v1/users/00u2/factors", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	exec := newExec(t, srv, NewFindUsersWithoutMFA(), nil)
	out, err := NewFindUsersWithoutMFA().Execute(context.Background(), exec)
	require.NoError(t, err)

	result, ok := out.(FindUsersWithoutMFAOutput)
	require.True(t, ok)
	assert.Equal(t, 2, result.UsersChecked)
	require.Len(t, result.WithoutMFA, 1)
	assert.Equal(t, "b@example.com", result.WithoutMFA[0].Profile.Login)
}
