// Package evasion holds the defense-evasion modules: lifecycle state
// changes that quietly switch off the tenant's protective objects
// (policies, policy rules, network zones, applications).
package evasion

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/elastic/dorothy/pkg/ledger"
	"github.com/elastic/dorothy/pkg/modules"
)

var stateOperationFormat = regexp.MustCompile(`(?i)^(activate|deactivate)$`)

func oppositeOperation(op string) string {
	if op == "activate" {
		return "deactivate"
	}
	return "activate"
}

type StateChangeOutput struct {
	Target    string `json:"target"`
	Operation string `json:"operation"`
}

// changeState executes POST <resource>/lifecycle/<operation> and records
// the mutated object with the opposite operation as its reversal.
func changeState(ctx context.Context, exec *modules.Exec, kind ledger.Kind, resource, remoteID string) (any, error) {
	operation := strings.ToLower(exec.Params.String("operation"))
	path := resource + "/lifecycle/" + operation

	if exec.DryRun {
		return modules.Planned{
			Description: fmt.Sprintf("Would %s %s %s", operation, kind, remoteID),
			Calls:       []string{"POST /api/v1" + path},
			WouldMutate: true,
		}, nil
	}

	if err := exec.Client.Post(ctx, path, nil, nil, nil); err != nil {
		return nil, err
	}

	opposite := oppositeOperation(operation)
	rev := &ledger.Reversal{
		Description: fmt.Sprintf("%s %s %s", opposite, kind, remoteID),
		Steps:       []ledger.Call{{Method: "POST", Path: resource + "/lifecycle/" + opposite}},
	}
	if _, err := exec.Artifacts.Created(kind, remoteID, rev); err != nil {
		return nil, err
	}

	exec.Log.Info("changed object state", "kind", string(kind), "id", remoteID, "operation", operation)
	return StateChangeOutput{Target: remoteID, Operation: operation}, nil
}
