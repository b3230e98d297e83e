// Package cleanup rolls back the remote objects a run left behind, using
// the reversal steps captured in the artifact ledger.
package cleanup

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/elastic/dorothy/pkg/ledger"
	"github.com/elastic/dorothy/pkg/okta"
)

// Outcome classifies the result of reversing one ledger record.
type Outcome string

const (
	OutcomeReversed Outcome = "reversed"
	OutcomeFailed   Outcome = "failed"
	OutcomeSkipped  Outcome = "skipped"
)

// RecordResult is the cleanup outcome for one artifact.
type RecordResult struct {
	RecordID string      `json:"record_id"`
	Module   string      `json:"module"`
	Kind     ledger.Kind `json:"kind"`
	RemoteID string      `json:"remote_id"`
	Outcome  Outcome     `json:"outcome"`
	Error    string      `json:"error,omitempty"`
}

// Report summarizes one cleanup pass. Failed records stay unreversed in
// the ledger and are picked up again on the next pass.
type Report struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Reversed   int            `json:"reversed"`
	Failed     int            `json:"failed"`
	Skipped    int            `json:"skipped"`
	Results    []RecordResult `json:"results"`
}

// Coordinator reverses ledger records against the tenant. It never deletes
// ledger entries; success only flips the record's reversed flag.
type Coordinator struct {
	client *okta.Client
	ledger *ledger.Ledger
	log    *slog.Logger
}

func New(client *okta.Client, led *ledger.Ledger, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{client: client, ledger: led, log: log}
}

// ReverseAll rolls back every unreversed record in the ledger.
func (c *Coordinator) ReverseAll(ctx context.Context) (*Report, error) {
	return c.Reverse(ctx, ledger.Filter{})
}

// Reverse rolls back the unreversed records matching the filter. Records
// reverse dependents-first across kinds and newest-first within a kind, so
// a role grant disappears before the user it was attached to. One record
// failing does not stop the pass; the record is reported failed and left
// unreversed so a later pass can retry it.
func (c *Coordinator) Reverse(ctx context.Context, f ledger.Filter) (*Report, error) {
	report := &Report{
		RunID:     c.ledger.RunID(),
		StartedAt: time.Now().UTC(),
	}

	pending := orderForReversal(c.ledger.Unreversed(f))
	c.log.Info("cleanup started", "run_id", report.RunID, "pending", len(pending))

	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = time.Now().UTC()
			return report, err
		}

		res := c.reverseRecord(ctx, rec)
		report.Results = append(report.Results, res)
		switch res.Outcome {
		case OutcomeReversed:
			report.Reversed++
		case OutcomeFailed:
			report.Failed++
		case OutcomeSkipped:
			report.Skipped++
		}
	}

	report.FinishedAt = time.Now().UTC()
	c.log.Info("cleanup finished", "run_id", report.RunID,
		"reversed", report.Reversed, "failed", report.Failed, "skipped", report.Skipped)
	return report, nil
}

func (c *Coordinator) reverseRecord(ctx context.Context, rec *ledger.Record) RecordResult {
	res := RecordResult{
		RecordID: rec.ID,
		Module:   rec.Module,
		Kind:     rec.Kind,
		RemoteID: rec.RemoteID,
	}

	if rec.Reversal == nil || len(rec.Reversal.Steps) == 0 {
		res.Outcome = OutcomeSkipped
		c.log.Warn("artifact has no reversal, skipping",
			"kind", string(rec.Kind), "remote_id", rec.RemoteID, "module", rec.Module)
		return res
	}

	for _, step := range rec.Reversal.Steps {
		err := c.client.Do(ctx, step.Method, step.Path, nil, rawBody(step.Body), nil)
		if err != nil && !isGone(err) {
			res.Outcome = OutcomeFailed
			res.Error = err.Error()
			c.log.Error("reversal step failed",
				"kind", string(rec.Kind), "remote_id", rec.RemoteID,
				"method", step.Method, "path", step.Path, "error", err)
			return res
		}
	}

	if err := c.ledger.MarkReversed(rec.ID); err != nil {
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		return res
	}

	res.Outcome = OutcomeReversed
	c.log.Info("artifact reversed", "kind", string(rec.Kind), "remote_id", rec.RemoteID)
	return res
}

// isGone reports whether the tenant no longer has the object, which counts
// as a successful reversal (someone may have cleaned up by hand).
func isGone(err error) bool {
	var apiErr *okta.APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// rawBody passes a recorded step body through without re-encoding it, and
// keeps bodiless steps bodiless.
func rawBody(body json.RawMessage) any {
	if len(body) == 0 {
		return nil
	}
	return body
}
