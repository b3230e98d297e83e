package discovery

import (
	"context"

	"github.com/elastic/dorothy/pkg/modules"
	"github.com/elastic/dorothy/pkg/okta"
)

var getUserDescriptor = modules.Descriptor{
	ID:          modules.TechniqueID{Tactic: modules.Discovery, Name: "get-user"},
	Description: "Get a user from the Okta environment using the user's ID",
	Scopes:      []string{"okta.users.read"},
	References:  []string{"https://attack.mitre.org/techniques/T1087/004/"},
	Options: []*modules.Option{
		{Name: "user-id", Description: "The unique ID of the user", Required: true, Type: modules.String},
	},
}

type GetUser struct {
	modules.BaseModule
}

func NewGetUser() modules.Module {
	return &GetUser{modules.NewBase(getUserDescriptor)}
}

func (m *GetUser) Execute(ctx context.Context, exec *modules.Exec) (any, error) {
	var user okta.User
	if err := exec.Client.Get(ctx, "/users/"+exec.Params.String("user-id"), nil, &user); err != nil {
		return nil, err
	}

	exec.Log.Info("retrieved user", "id", user.ID, "status", user.Status)
	return user, nil
}
