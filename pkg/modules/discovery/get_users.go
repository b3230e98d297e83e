package discovery

import (
	"context"
	"net/url"

	"github.com/elastic/dorothy/pkg/modules"
	"github.com/elastic/dorothy/pkg/okta"
)

var getUsersDescriptor = modules.Descriptor{
	ID:          modules.TechniqueID{Tactic: modules.Discovery, Name: "get-users"},
	Description: "Harvest all users from the Okta environment",
	Scopes:      []string{"okta.users.read"},
	References:  []string{"https://attack.mitre.org/techniques/T1087/004/"},
	Options: []*modules.Option{
		{Name: "query", Description: "Find users matching the query on login, first name or last name", Type: modules.String},
		{Name: "filter", Description: "Okta filter expression, e.g. status eq \"ACTIVE\"", Type: modules.String},
		{Name: "save-dir", Description: "Directory to save harvested users to as JSON", Type: modules.String},
	},
}

type GetUsers struct {
	modules.BaseModule
}

func NewGetUsers() modules.Module {
	return &GetUsers{modules.NewBase(getUsersDescriptor)}
}

type GetUsersOutput struct {
	Count int         `json:"count"`
	Users []okta.User `json:"users"`
	File  string      `json:"file,omitempty"`
}

func (m *GetUsers) Execute(ctx context.Context, exec *modules.Exec) (any, error) {
	query := url.Values{}
	if q := exec.Params.String("query"); q != "" {
		query.Set("q", q)
	}
	if f := exec.Params.String("filter"); f != "" {
		query.Set("filter", f)
	}

	pager, err := exec.Client.Pages("/users", query)
	if err != nil {
		return nil, err
	}

	users, err := okta.CollectAll[okta.User](ctx, pager)
	if err != nil {
		return nil, err
	}
	exec.Log.Info("harvested users", "count", len(users))

	out := GetUsersOutput{Count: len(users), Users: users}
	if dir := exec.Params.String("save-dir"); dir != "" {
		path, err := modules.WriteHarvest(dir, "harvested_users", users)
		if err != nil {
			return out, err
		}
		out.File = path
	}
	return out, nil
}
