// Package engine orchestrates module execution: it resolves requested
// techniques against the registry, runs them under the configured
// concurrency and timeout bounds, and assembles the run report.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/elastic/dorothy/internal/registry"
	"github.com/elastic/dorothy/pkg/ledger"
	"github.com/elastic/dorothy/pkg/modules"
	"github.com/elastic/dorothy/pkg/okta"
)

type Engine struct {
	registry *registry.Registry
	client   *okta.Client
	ledger   *ledger.Ledger
	log      *slog.Logger
}

func New(reg *registry.Registry, client *okta.Client, led *ledger.Ledger, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{registry: reg, client: client, ledger: led, log: log}
}

func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

type resolved struct {
	request ModuleRequest
	id      modules.TechniqueID
	module  modules.Module
	params  modules.Params
}

// Run executes the request and returns the run report. Validation errors
// (unknown modules, bad parameters) fail the whole run before any API call
// is issued; errors inside modules land in their results instead.
//
// Cancelling ctx stops new API calls immediately, lets in-flight calls
// settle, and yields a partial report covering everything that completed.
func (e *Engine) Run(ctx context.Context, req Request) (*Report, error) {
	if len(req.Modules) == 0 {
		return nil, fmt.Errorf("run request selects no modules")
	}

	// Fail fast on anything unresolvable before a single side effect.
	plan := make([]resolved, 0, len(req.Modules))
	for _, mreq := range req.Modules {
		id, err := modules.ParseTechniqueID(mreq.ID)
		if err != nil {
			return nil, err
		}
		mod, err := e.registry.Resolve(id)
		if err != nil {
			return nil, err
		}
		params, err := modules.ValidateParams(mod.Descriptor().Options, mreq.Params)
		if err != nil {
			return nil, fmt.Errorf("module %s: %w", id, err)
		}
		plan = append(plan, resolved{request: mreq, id: id, module: mod, params: params})
	}

	client := e.client
	if req.DryRun {
		client = client.ReadOnly()
	}

	report := &Report{
		RunID:     e.ledger.RunID(),
		StartedAt: time.Now().UTC(),
		Results:   make([]Result, len(plan)),
	}
	if report.RunID == "" {
		report.RunID = uuid.NewString()
	}

	e.log.Info("run started", "run_id", report.RunID, "modules", len(plan), "dry_run", req.DryRun)

	if req.Workers > 1 {
		e.runConcurrent(ctx, req, client, plan, report.Results)
	} else {
		e.runSequential(ctx, req, client, plan, report.Results)
	}

	report.FinishedAt = time.Now().UTC()
	report.Status = aggregate(report.Results, req.Modules)
	report.APICalls = e.client.Calls()

	e.log.Info("run finished", "run_id", report.RunID, "status", string(report.Status), "artifacts", e.ledger.Len())
	return report, nil
}

func (e *Engine) runSequential(ctx context.Context, req Request, client *okta.Client, plan []resolved, results []Result) {
	aborted := false
	for i, r := range plan {
		if aborted || ctx.Err() != nil {
			results[i] = skippedResult(r.id)
			continue
		}

		results[i] = e.execute(ctx, req, client, r)
		if req.AbortOnFailure && results[i].Status != StatusSuccess {
			aborted = true
		}
	}
}

func (e *Engine) runConcurrent(ctx context.Context, req Request, client *okta.Client, plan []resolved, results []Result) {
	var aborted atomic.Bool

	g := &errgroup.Group{}
	g.SetLimit(req.Workers)

	for i, r := range plan {
		g.Go(func() error {
			if aborted.Load() || ctx.Err() != nil {
				results[i] = skippedResult(r.id)
				return nil
			}

			results[i] = e.execute(ctx, req, client, r)
			if req.AbortOnFailure && results[i].Status != StatusSuccess {
				aborted.Store(true)
			}
			return nil
		})
	}
	g.Wait()
}

func (e *Engine) execute(ctx context.Context, req Request, client *okta.Client, r resolved) Result {
	mctx := ctx
	var cancel context.CancelFunc
	if req.Timeout > 0 {
		mctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	recorder := e.ledger.ForModule(r.id.String())
	exec := &modules.Exec{
		Client:    client,
		Params:    r.params,
		Artifacts: recorder,
		DryRun:    req.DryRun,
		Log:       e.log.With("module", r.id.String()),
	}

	result := Result{Module: r.id.String(), StartedAt: time.Now().UTC()}
	e.log.Info("module started", "module", r.id.String())

	output, err := r.module.Execute(mctx, exec)

	result.FinishedAt = time.Now().UTC()
	result.Output = output
	result.Artifacts = recorder.Records()

	switch {
	case err == nil:
		result.Status = StatusSuccess
		e.log.Info("module succeeded", "module", r.id.String(), "artifacts", len(result.Artifacts))
	case errors.Is(err, context.DeadlineExceeded) && mctx.Err() != nil && ctx.Err() == nil:
		result.Status = StatusTimeout
		result.Error = fmt.Sprintf("exceeded execution budget of %s", req.Timeout)
		e.log.Error("module timed out", "module", r.id.String(), "timeout", req.Timeout)
	default:
		result.Status = StatusFailure
		result.Error = err.Error()
		e.log.Error("module failed", "module", r.id.String(), "error", err)
	}
	return result
}

func skippedResult(id modules.TechniqueID) Result {
	now := time.Now().UTC()
	return Result{
		Module:     id.String(),
		Status:     StatusSkipped,
		StartedAt:  now,
		FinishedAt: now,
	}
}
