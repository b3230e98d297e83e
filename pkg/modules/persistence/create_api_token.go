package persistence

import (
	"context"
	"fmt"

	"github.com/elastic/dorothy/pkg/ledger"
	"github.com/elastic/dorothy/pkg/modules"
	"github.com/elastic/dorothy/pkg/okta"
)

var createAPITokenDescriptor = modules.Descriptor{
	ID:          modules.TechniqueID{Tactic: modules.Persistence, Name: "create-api-token"},
	Description: "Plant a standing API credential by registering an OAuth2 service client on the org",
	Scopes:      []string{"okta.clients.manage"},
	Artifacts:   []ledger.Kind{ledger.KindToken},
	References:  []string{"https://attack.mitre.org/techniques/T1098/001/"},
	Options: []*modules.Option{
		{Name: "client-name", Description: "Display name for the service client", Required: true, Type: modules.String},
	},
}

type CreateAPIToken struct {
	modules.BaseModule
}

func NewCreateAPIToken() modules.Module {
	return &CreateAPIToken{modules.NewBase(createAPITokenDescriptor)}
}

func (m *CreateAPIToken) Execute(ctx context.Context, exec *modules.Exec) (any, error) {
	name := exec.Params.String("client-name")

	if exec.DryRun {
		return modules.Planned{
			Description: fmt.Sprintf("Would register OAuth2 service client %q as a standing API credential", name),
			Calls:       []string{"POST /oauth2/v1/clients"},
			WouldMutate: true,
		}, nil
	}

	payload := okta.OAuthClient{
		ClientName: name,
		GrantTypes: []string{"client_credentials"},
		TokenAuth:  "client_secret_basic",
	}

	var client okta.OAuthClient
	if err := exec.Client.Post(ctx, "/oauth2/v1/clients", nil, payload, &client); err != nil {
		return nil, err
	}

	rev := &ledger.Reversal{
		Description: fmt.Sprintf("delete OAuth2 service client %s", client.ClientID),
		Steps:       []ledger.Call{{Method: "DELETE", Path: "/oauth2/v1/clients/" + client.ClientID}},
	}
	if _, err := exec.Artifacts.Created(ledger.KindToken, client.ClientID, rev); err != nil {
		return client, err
	}

	// The secret is only returned at creation time; it is part of the
	// module output on purpose, the operator needs it for detection tests.
	exec.Log.Info("created OAuth2 service client", "client_id", client.ClientID, "name", name)
	return client, nil
}
