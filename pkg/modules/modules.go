// Package modules defines the contract every attacker-action module
// implements and the typed option/parameter machinery shared by the
// catalog.
package modules

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/elastic/dorothy/pkg/ledger"
	"github.com/elastic/dorothy/pkg/okta"
)

// Tactic is the adversary-tactic bucket a technique belongs to, following
// the MITRE ATT&CK taxonomy names used by the catalog.
type Tactic string

const (
	Discovery      Tactic = "discovery"
	Persistence    Tactic = "persistence"
	DefenseEvasion Tactic = "defense-evasion"
	Impact         Tactic = "impact"
)

func TacticFromString(s string) Tactic {
	switch s {
	case "discovery":
		return Discovery
	case "persistence":
		return Persistence
	case "defense-evasion":
		return DefenseEvasion
	case "impact":
		return Impact
	default:
		return ""
	}
}

// TechniqueID identifies a module by tactic and name. It is the registry
// key and must be unique across the catalog.
type TechniqueID struct {
	Tactic Tactic
	Name   string
}

func (id TechniqueID) String() string {
	return string(id.Tactic) + "/" + id.Name
}

// ParseTechniqueID parses "tactic/name", e.g. "persistence/create-user".
func ParseTechniqueID(s string) (TechniqueID, error) {
	tactic, name, ok := strings.Cut(s, "/")
	if !ok || name == "" {
		return TechniqueID{}, fmt.Errorf("module identifier %q is not of the form tactic/name", s)
	}
	t := TacticFromString(tactic)
	if t == "" {
		return TechniqueID{}, fmt.Errorf("unknown tactic %q in module identifier %q", tactic, s)
	}
	return TechniqueID{Tactic: t, Name: name}, nil
}

// Descriptor is the immutable, pre-execution description of a module.
type Descriptor struct {
	ID          TechniqueID
	Description string

	// Scopes are the Okta API scopes (admin permissions) the module needs.
	Scopes []string

	// Artifacts are the artifact kinds the module may create or mutate.
	// A module must not record any kind it does not declare.
	Artifacts []ledger.Kind

	// References point at the technique write-ups, usually ATT&CK pages.
	References []string

	Options []*Option
}

// Exec is the environment one module execution runs against. Parameters
// and the recorder are isolated per execution; the client and the ledger
// behind the recorder are the only state shared across modules.
type Exec struct {
	Client    *okta.Client
	Params    Params
	Artifacts *ledger.Recorder
	DryRun    bool
	Log       *slog.Logger
}

// Module is a single attacker or detection action. Execute returns the
// structured output payload for the module result; the engine derives the
// result status from the error. Modules must report every artifact they
// create through exec.Artifacts before returning, including artifacts
// created before a later API call failed.
type Module interface {
	Descriptor() Descriptor
	Execute(ctx context.Context, exec *Exec) (any, error)
}

// Factory builds a fresh module instance for one execution.
type Factory func() Module

// BaseModule carries the descriptor for concrete modules to embed.
type BaseModule struct {
	descriptor Descriptor
}

func NewBase(d Descriptor) BaseModule {
	return BaseModule{descriptor: d}
}

func (m *BaseModule) Descriptor() Descriptor {
	return m.descriptor
}

// Planned is the dry-run output of a mutating module: the API calls it
// would have issued with the given parameters.
type Planned struct {
	Description string   `json:"description"`
	Calls       []string `json:"calls"`
	WouldMutate bool     `json:"would_mutate"`
}
