package persistence

import (
	"context"
	"fmt"
	"net/url"

	"github.com/elastic/dorothy/pkg/ledger"
	"github.com/elastic/dorothy/pkg/modules"
	"github.com/elastic/dorothy/pkg/okta"
)

var createUserDescriptor = modules.Descriptor{
	ID:          modules.TechniqueID{Tactic: modules.Persistence, Name: "create-user"},
	Description: "Create and activate an Okta user with an assigned password",
	Scopes:      []string{"okta.users.manage"},
	Artifacts:   []ledger.Kind{ledger.KindUser},
	References:  []string{"https://attack.mitre.org/techniques/T1136/003/"},
	Options: []*modules.Option{
		{Name: "first-name", Description: "Given name of the user", Required: true, Type: modules.String},
		{Name: "last-name", Description: "Family name of the user", Required: true, Type: modules.String},
		{Name: "email", Description: "Primary email address of user", Required: true, Type: modules.String},
		{Name: "login", Description: "Unique identifier for the user (username)", Required: true, Type: modules.String},
		{Name: "password", Description: "Password for the new user", Required: true, Type: modules.String, Sensitive: true},
		{Name: "group-ids", Description: "The unique ID(s) of the group(s) to put the user in, separated by commas", Type: modules.String},
	},
}

type CreateUser struct {
	modules.BaseModule
}

func NewCreateUser() modules.Module {
	return &CreateUser{modules.NewBase(createUserDescriptor)}
}

// userReversal is the two-step teardown Okta requires: a user must be
// deactivated before it can be deleted.
func userReversal(userID, login string) *ledger.Reversal {
	return &ledger.Reversal{
		Description: fmt.Sprintf("deactivate and delete user %s", login),
		Steps: []ledger.Call{
			{Method: "POST", Path: "/users/" + userID + "/lifecycle/deactivate"},
			{Method: "DELETE", Path: "/users/" + userID},
		},
	}
}

func (m *CreateUser) Execute(ctx context.Context, exec *modules.Exec) (any, error) {
	login := exec.Params.String("login")

	if exec.DryRun {
		return modules.Planned{
			Description: fmt.Sprintf("Would create and activate Okta user %s", login),
			Calls:       []string{"POST /api/v1/users?activate=true"},
			WouldMutate: true,
		}, nil
	}

	payload := okta.NewUser{
		Profile: okta.UserProfile{
			FirstName: exec.Params.String("first-name"),
			LastName:  exec.Params.String("last-name"),
			Email:     exec.Params.String("email"),
			Login:     login,
		},
		GroupIDs:    exec.Params.StringSlice("group-ids"),
		Credentials: &okta.NewCredentials{Password: &okta.Password{Value: exec.Params.String("password")}},
	}

	var user okta.User
	// Activate the new user when it's created
	query := url.Values{"activate": []string{"true"}}
	if err := exec.Client.Post(ctx, "/users", query, payload, &user); err != nil {
		return nil, err
	}

	if _, err := exec.Artifacts.Created(ledger.KindUser, user.ID, userReversal(user.ID, login)); err != nil {
		return user, err
	}

	exec.Log.Info("created user", "id", user.ID, "login", login)
	return user, nil
}
