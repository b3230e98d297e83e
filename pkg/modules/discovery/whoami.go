package discovery

import (
	"context"

	"github.com/elastic/dorothy/pkg/modules"
	"github.com/elastic/dorothy/pkg/okta"
)

var whoamiDescriptor = modules.Descriptor{
	ID:          modules.TechniqueID{Tactic: modules.Discovery, Name: "whoami"},
	Description: "Get the user linked to the current API credentials and their assigned admin roles",
	Scopes:      []string{"okta.users.read", "okta.roles.read"},
	References:  []string{"https://attack.mitre.org/techniques/T1033/"},
}

type Whoami struct {
	modules.BaseModule
}

func NewWhoami() modules.Module {
	return &Whoami{modules.NewBase(whoamiDescriptor)}
}

type WhoamiOutput struct {
	User  okta.User   `json:"user"`
	Roles []okta.Role `json:"roles"`
}

func (m *Whoami) Execute(ctx context.Context, exec *modules.Exec) (any, error) {
	me, err := exec.Client.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	var roles []okta.Role
	if err := exec.Client.Get(ctx, "/users/"+me.ID+"/roles", nil, &roles); err != nil {
		return nil, err
	}

	exec.Log.Info("retrieved current user", "login", me.Profile.Login, "roles", len(roles))
	return WhoamiOutput{User: *me, Roles: roles}, nil
}
