package discovery

import (
	"context"

	"github.com/elastic/dorothy/pkg/modules"
	"github.com/elastic/dorothy/pkg/okta"
)

var findAdminsDescriptor = modules.Descriptor{
	ID:          modules.TechniqueID{Tactic: modules.Discovery, Name: "find-admins"},
	Description: "Identify Okta users with admin roles assigned",
	Scopes:      []string{"okta.users.read", "okta.roles.read"},
	References:  []string{"https://attack.mitre.org/techniques/T1069/003/"},
	Options: []*modules.Option{
		{Name: "save-dir", Description: "Directory to save identified admins to as JSON", Type: modules.String},
	},
}

type FindAdmins struct {
	modules.BaseModule
}

func NewFindAdmins() modules.Module {
	return &FindAdmins{modules.NewBase(findAdminsDescriptor)}
}

type AdminUser struct {
	User  okta.User   `json:"user"`
	Roles []okta.Role `json:"roles"`
}

type FindAdminsOutput struct {
	UsersChecked int         `json:"users_checked"`
	Admins       []AdminUser `json:"admins"`
	File         string      `json:"file,omitempty"`
}

// There is no Okta API to get all users holding a given role, so every
// user's role assignments are enumerated individually.
func (m *FindAdmins) Execute(ctx context.Context, exec *modules.Exec) (any, error) {
	pager, err := exec.Client.Pages("/users", nil)
	if err != nil {
		return nil, err
	}

	out := FindAdminsOutput{}
	for pager.Next(ctx) {
		users, err := okta.DecodeItems[okta.User](pager.Items())
		if err != nil {
			return out, err
		}

		for _, user := range users {
			out.UsersChecked++

			var roles []okta.Role
			if err := exec.Client.Get(ctx, "/users/"+user.ID+"/roles", nil, &roles); err != nil {
				return out, err
			}
			if len(roles) > 0 {
				exec.Log.Info("user has admin roles", "login", user.Profile.Login, "roles", len(roles))
				out.Admins = append(out.Admins, AdminUser{User: user, Roles: roles})
			}
		}
	}
	if err := pager.Err(); err != nil {
		return out, err
	}

	if dir := exec.Params.String("save-dir"); dir != "" && len(out.Admins) > 0 {
		path, err := modules.WriteHarvest(dir, "admin_users", out.Admins)
		if err != nil {
			return out, err
		}
		out.File = path
	}
	return out, nil
}
