package persistence

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/elastic/dorothy/pkg/ledger"
	"github.com/elastic/dorothy/pkg/modules"
	"github.com/elastic/dorothy/pkg/okta"
)

var roleTypeFormat = regexp.MustCompile(`^(SUPER_ADMIN|ORG_ADMIN|APP_ADMIN|USER_ADMIN|HELP_DESK_ADMIN|GROUP_MEMBERSHIP_ADMIN|READ_ONLY_ADMIN|API_ACCESS_MANAGEMENT_ADMIN|REPORT_ADMIN|MOBILE_ADMIN)$`)

var createAdminUserDescriptor = modules.Descriptor{
	ID:          modules.TechniqueID{Tactic: modules.Persistence, Name: "create-admin-user"},
	Description: "Create an Okta user and assign it an administrator role",
	Scopes:      []string{"okta.users.manage", "okta.roles.manage"},
	Artifacts:   []ledger.Kind{ledger.KindUser, ledger.KindRole},
	References:  []string{"https://attack.mitre.org/techniques/T1136/003/", "https://attack.mitre.org/techniques/T1098/003/"},
	Options: []*modules.Option{
		{Name: "first-name", Description: "Given name of the user", Required: true, Type: modules.String},
		{Name: "last-name", Description: "Family name of the user", Required: true, Type: modules.String},
		{Name: "email", Description: "Primary email address of user", Required: true, Type: modules.String},
		{Name: "login", Description: "Unique identifier for the user (username)", Required: true, Type: modules.String},
		{Name: "password", Description: "Password for the new user", Required: true, Type: modules.String, Sensitive: true},
		{Name: "role-type", Description: "Admin role to assign, e.g. SUPER_ADMIN", Default: "SUPER_ADMIN", Type: modules.String, ValueFormat: roleTypeFormat},
	},
}

type CreateAdminUser struct {
	modules.BaseModule
}

func NewCreateAdminUser() modules.Module {
	return &CreateAdminUser{modules.NewBase(createAdminUserDescriptor)}
}

type CreateAdminUserOutput struct {
	User okta.User `json:"user"`
	Role okta.Role `json:"role"`
}

func (m *CreateAdminUser) Execute(ctx context.Context, exec *modules.Exec) (any, error) {
	login := exec.Params.String("login")
	roleType := exec.Params.String("role-type")

	if exec.DryRun {
		return modules.Planned{
			Description: fmt.Sprintf("Would create Okta user %s and assign the %s role", login, roleType),
			Calls: []string{
				"POST /api/v1/users?activate=true",
				"POST /api/v1/users/{userId}/roles",
			},
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
		Credentials: &okta.NewCredentials{Password: &okta.Password{Value: exec.Params.String("password")}},
	}

	var user okta.User
	query := url.Values{"activate": []string{"true"}}
	if err := exec.Client.Post(ctx, "/users", query, payload, &user); err != nil {
		return nil, err
	}
	// Record the user before attempting the role assignment so a failure
	// there still leaves the user eligible for cleanup.
	if _, err := exec.Artifacts.Created(ledger.KindUser, user.ID, userReversal(user.ID, login)); err != nil {
		return user, err
	}
	exec.Log.Info("created user", "id", user.ID, "login", login)

	var role okta.Role
	if err := exec.Client.Post(ctx, "/users/"+user.ID+"/roles", nil, okta.RoleAssignment{Type: roleType}, &role); err != nil {
		return CreateAdminUserOutput{User: user}, err
	}

	rev := &ledger.Reversal{
		Description: fmt.Sprintf("remove %s role from user %s", roleType, login),
		Steps:       []ledger.Call{{Method: "DELETE", Path: "/users/" + user.ID + "/roles/" + role.ID}},
	}
	if _, err := exec.Artifacts.Created(ledger.KindRole, role.ID, rev); err != nil {
		return CreateAdminUserOutput{User: user, Role: role}, err
	}

	exec.Log.Info("assigned admin role", "user", user.ID, "role", roleType)
	return CreateAdminUserOutput{User: user, Role: role}, nil
}
