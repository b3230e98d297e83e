package discovery

import (
	"context"
	"net/url"

	"github.com/elastic/dorothy/pkg/modules"
	"github.com/elastic/dorothy/pkg/okta"
)

// Policies must be fetched one type at a time; the API has no "all types"
// listing.
var policyTypes = []string{
	"OKTA_SIGN_ON",
	"PASSWORD",
	"MFA_ENROLL",
	"IDP_DISCOVERY",
	"ACCESS_POLICY",
	"OAUTH_AUTHORIZATION_POLICY",
}

var getPoliciesDescriptor = modules.Descriptor{
	ID:          modules.TechniqueID{Tactic: modules.Discovery, Name: "get-policies"},
	Description: "Harvest the Okta environment's policies, optionally limited to one policy type",
	Scopes:      []string{"okta.policies.read"},
	References:  []string{"https://attack.mitre.org/techniques/T1201/"},
	Options: []*modules.Option{
		{Name: "type", Description: "Only fetch policies of this type, e.g. PASSWORD or MFA_ENROLL", Type: modules.String},
		{Name: "save-dir", Description: "Directory to save harvested policies to as JSON", Type: modules.String},
	},
}

type GetPolicies struct {
	modules.BaseModule
}

func NewGetPolicies() modules.Module {
	return &GetPolicies{modules.NewBase(getPoliciesDescriptor)}
}

type GetPoliciesOutput struct {
	Count    int                      `json:"count"`
	Policies map[string][]okta.Policy `json:"policies"`
	File     string                   `json:"file,omitempty"`
}

func (m *GetPolicies) Execute(ctx context.Context, exec *modules.Exec) (any, error) {
	types := policyTypes
	if t := exec.Params.String("type"); t != "" {
		types = []string{t}
	}

	out := GetPoliciesOutput{Policies: map[string][]okta.Policy{}}
	for _, policyType := range types {
		var policies []okta.Policy
		query := url.Values{"type": []string{policyType}}
		if err := exec.Client.Get(ctx, "/policies", query, &policies); err != nil {
			return out, err
		}
		if len(policies) > 0 {
			out.Policies[policyType] = policies
			out.Count += len(policies)
		}
		exec.Log.Info("retrieved policies", "type", policyType, "count", len(policies))
	}

	if dir := exec.Params.String("save-dir"); dir != "" && out.Count > 0 {
		path, err := modules.WriteHarvest(dir, "harvested_policies", out.Policies)
		if err != nil {
			return out, err
		}
		out.File = path
	}
	return out, nil
}
