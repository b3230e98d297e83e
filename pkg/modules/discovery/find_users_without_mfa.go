package discovery

import (
	"context"

	"github.com/elastic/dorothy/pkg/modules"
	"github.com/elastic/dorothy/pkg/okta"
)

var findUsersWithoutMFADescriptor = modules.Descriptor{
	ID:          modules.TechniqueID{Tactic: modules.Discovery, Name: "find-users-without-mfa"},
	Description: "Identify active Okta users with no enrolled MFA factors",
	Scopes:      []string{"okta.users.read", "okta.factors.read"},
	References:  []string{"https://attack.mitre.org/techniques/T1087/004/"},
	Options: []*modules.Option{
		{Name: "save-dir", Description: "Directory to save identified users to as JSON", Type: modules.String},
	},
}

type FindUsersWithoutMFA struct {
	modules.BaseModule
}

func NewFindUsersWithoutMFA() modules.Module {
	return &FindUsersWithoutMFA{modules.NewBase(findUsersWithoutMFADescriptor)}
}

type FindUsersWithoutMFAOutput struct {
	UsersChecked int         `json:"users_checked"`
	WithoutMFA   []okta.User `json:"without_mfa"`
	File         string      `json:"file,omitempty"`
}

func (m *FindUsersWithoutMFA) Execute(ctx context.Context, exec *modules.Exec) (any, error) {
	pager, err := exec.Client.Pages("/users", nil)
	if err != nil {
		return nil, err
	}

	out := FindUsersWithoutMFAOutput{}
	for pager.Next(ctx) {
		users, err := okta.DecodeItems[okta.User](pager.Items())
		if err != nil {
			return out, err
		}

		for _, user := range users {
			out.UsersChecked++

			var factors []okta.Factor
			if err := exec.Client.Get(ctx, "/users/"+user.ID+"/factors", nil, &factors); err != nil {
				return out, err
			}
			if len(factors) == 0 {
				exec.Log.Info("user has no MFA factors enrolled", "login", user.Profile.Login)
				out.WithoutMFA = append(out.WithoutMFA, user)
			}
		}
	}
	if err := pager.Err(); err != nil {
		return out, err
	}

	if dir := exec.Params.String("save-dir"); dir != "" && len(out.WithoutMFA) > 0 {
		path, err := modules.WriteHarvest(dir, "users_without_mfa", out.WithoutMFA)
		if err != nil {
			return out, err
		}
		out.File = path
	}
	return out, nil
}
