package discovery

import (
	"context"

	"github.com/elastic/dorothy/pkg/modules"
	"github.com/elastic/dorothy/pkg/okta"
)

var findAdminGroupsDescriptor = modules.Descriptor{
	ID:          modules.TechniqueID{Tactic: modules.Discovery, Name: "find-admin-groups"},
	Description: "Identify Okta groups with admin roles assigned",
	Scopes:      []string{"okta.groups.read", "okta.roles.read"},
	References:  []string{"https://attack.mitre.org/techniques/T1069/003/"},
	Options: []*modules.Option{
		{Name: "save-dir", Description: "Directory to save identified admin groups to as JSON", Type: modules.String},
	},
}

type FindAdminGroups struct {
	modules.BaseModule
}

func NewFindAdminGroups() modules.Module {
	return &FindAdminGroups{modules.NewBase(findAdminGroupsDescriptor)}
}

type AdminGroup struct {
	Group okta.Group  `json:"group"`
	Roles []okta.Role `json:"roles"`
}

type FindAdminGroupsOutput struct {
	GroupsChecked int          `json:"groups_checked"`
	Admins        []AdminGroup `json:"admins"`
	File          string       `json:"file,omitempty"`
}

func (m *FindAdminGroups) Execute(ctx context.Context, exec *modules.Exec) (any, error) {
	pager, err := exec.Client.Pages("/groups", nil)
	if err != nil {
		return nil, err
	}

	out := FindAdminGroupsOutput{}
	for pager.Next(ctx) {
		groups, err := okta.DecodeItems[okta.Group](pager.Items())
		if err != nil {
			return out, err
		}

		for _, group := range groups {
			out.GroupsChecked++

			var roles []okta.Role
			if err := exec.Client.Get(ctx, "/groups/"+group.ID+"/roles", nil, &roles); err != nil {
				return out, err
			}
			if len(roles) > 0 {
				exec.Log.Info("group has admin roles", "group", group.Profile.Name, "roles", len(roles))
				out.Admins = append(out.Admins, AdminGroup{Group: group, Roles: roles})
			}
		}
	}
	if err := pager.Err(); err != nil {
		return out, err
	}

	if dir := exec.Params.String("save-dir"); dir != "" && len(out.Admins) > 0 {
		path, err := modules.WriteHarvest(dir, "admin_groups", out.Admins)
		if err != nil {
			return out, err
		}
		out.File = path
	}
	return out, nil
}
