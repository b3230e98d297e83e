package engine

import (
	"encoding/json"
	"time"

	"github.com/elastic/dorothy/pkg/ledger"
	"github.com/elastic/dorothy/pkg/modules"
)

// Status of one module execution, or of the run as a whole.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusSkipped Status = "skipped"
	StatusTimeout Status = "timeout"
)

// ModuleRequest selects one module and its parameters for a run.
type ModuleRequest struct {
	// ID is the technique identifier, "tactic/name".
	ID string

	Params modules.Params

	// BestEffort excludes this module's failure from the run's aggregate
	// status.
	BestEffort bool
}

// Request describes one bounded run. It is consumed by Engine.Run and not
// retained afterwards.
type Request struct {
	Modules []ModuleRequest

	// Workers bounds concurrent module execution. Values below 2 mean
	// sequential execution in request order. The API client's in-flight
	// limit caps the rate-limit exposure either way.
	Workers int

	// DryRun makes modules report planned actions instead of mutating;
	// read-only calls are still issued.
	DryRun bool

	// AbortOnFailure skips the remaining modules after the first failure.
	AbortOnFailure bool

	// Timeout bounds each module's execution. Zero means no limit.
	Timeout time.Duration
}

// Result is the outcome of one module execution.
type Result struct {
	Module     string           `json:"module"`
	Status     Status           `json:"status"`
	Output     any              `json:"output,omitempty"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Artifacts  []*ledger.Record `json:"artifacts,omitempty"`
}

// Report is the sole externally consumed output of a run. Results appear
// in request order regardless of execution order.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     Status    `json:"status"`
	Results    []Result  `json:"results"`
	APICalls   int64     `json:"api_calls"`
}

func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// aggregate derives the run status: failure iff a module failed (or timed
// out) and was not marked best-effort.
func aggregate(results []Result, requests []ModuleRequest) Status {
	for i, res := range results {
		if res.Status != StatusFailure && res.Status != StatusTimeout {
			continue
		}
		if !requests[i].BestEffort {
			return StatusFailure
		}
	}
	return StatusSuccess
}
