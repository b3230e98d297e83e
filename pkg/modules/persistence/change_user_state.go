package persistence

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/elastic/dorothy/pkg/ledger"
	"github.com/elastic/dorothy/pkg/modules"
)

var userOperationFormat = regexp.MustCompile(`(?i)^(activate|deactivate|suspend|unsuspend|unlock)$`)

// Opposite lifecycle operation used as the reversal. Unlock has none:
// locking a user back out is not something cleanup should do.
var userOperationReverse = map[string]string{
	"activate":   "deactivate",
	"deactivate": "activate",
	"suspend":    "unsuspend",
	"unsuspend":  "suspend",
}

var changeUserStateDescriptor = modules.Descriptor{
	ID:          modules.TechniqueID{Tactic: modules.Persistence, Name: "change-user-state"},
	Description: "Execute a lifecycle operation (activate, deactivate, suspend, unsuspend, unlock) on an Okta user",
	Scopes:      []string{"okta.users.manage"},
	Artifacts:   []ledger.Kind{ledger.KindUser},
	References:  []string{"https://attack.mitre.org/techniques/T1098/"},
	Options: []*modules.Option{
		{Name: "user-id", Description: "The unique ID of the user", Required: true, Type: modules.String},
		{Name: "operation", Description: "Lifecycle operation to execute", Required: true, Type: modules.String, ValueFormat: userOperationFormat},
	},
}

type ChangeUserState struct {
	modules.BaseModule
}

func NewChangeUserState() modules.Module {
	return &ChangeUserState{modules.NewBase(changeUserStateDescriptor)}
}

type ChangeUserStateOutput struct {
	UserID    string `json:"user_id"`
	Operation string `json:"operation"`
}

func (m *ChangeUserState) Execute(ctx context.Context, exec *modules.Exec) (any, error) {
	userID := exec.Params.String("user-id")
	operation := strings.ToLower(exec.Params.String("operation"))
	path := "/users/" + userID + "/lifecycle/" + operation

	if exec.DryRun {
		return modules.Planned{
			Description: fmt.Sprintf("Would %s user %s", operation, userID),
			Calls:       []string{"POST /api/v1" + path},
			WouldMutate: true,
		}, nil
	}

	if err := exec.Client.Post(ctx, path, nil, nil, nil); err != nil {
		return nil, err
	}

	var rev *ledger.Reversal
	if opposite, ok := userOperationReverse[operation]; ok {
		rev = &ledger.Reversal{
			Description: fmt.Sprintf("%s user %s", opposite, userID),
			Steps:       []ledger.Call{{Method: "POST", Path: "/users/" + userID + "/lifecycle/" + opposite}},
		}
	}
	if _, err := exec.Artifacts.Created(ledger.KindUser, userID, rev); err != nil {
		return nil, err
	}

	exec.Log.Info("changed user state", "user", userID, "operation", operation)
	return ChangeUserStateOutput{UserID: userID, Operation: operation}, nil
}
