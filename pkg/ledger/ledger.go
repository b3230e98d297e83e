// Package ledger tracks every remote object a module creates or mutates
// during a run so the side effects can be audited and rolled back.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind classifies an artifact by the Okta object type it refers to.
type Kind string

const (
	KindSession    Kind = "session"
	KindFactor     Kind = "factor"
	KindToken      Kind = "token"
	KindRole       Kind = "role"
	KindPolicyRule Kind = "policy-rule"
	KindPolicy     Kind = "policy"
	KindZone       Kind = "zone"
	KindApp        Kind = "app"
	KindGroup      Kind = "group"
	KindUser       Kind = "user"
)

var ErrUnknownRecord = errors.New("unknown ledger record")

// Call is a single API request that participates in undoing an artifact.
type Call struct {
	Method string          `json:"method"`
	Path   string          `json:"path"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// Reversal describes how to undo an artifact. Steps run in order; deleting
// an Okta user, for example, requires a deactivate call before the delete.
type Reversal struct {
	Description string `json:"description,omitempty"`
	Steps       []Call `json:"steps"`
}

// Record is one created or mutated remote object. Records are immutable
// once written except for the terminal reversed flag.
type Record struct {
	ID         string     `json:"id"`
	RunID      string     `json:"run_id"`
	Kind       Kind       `json:"kind"`
	RemoteID   string     `json:"remote_id"`
	Module     string     `json:"module"`
	CreatedAt  time.Time  `json:"created_at"`
	Reversal   *Reversal  `json:"reversal,omitempty"`
	Reversed   bool       `json:"reversed"`
	ReversedAt *time.Time `json:"reversed_at,omitempty"`
}

// Filter selects a subset of ledger records. Zero values match everything.
type Filter struct {
	Kind   Kind
	Module string
}

func (f Filter) matches(r *Record) bool {
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.Module != "" && r.Module != f.Module {
		return false
	}
	return true
}

// Ledger is an append-only, concurrency-safe artifact record list. Records
// are never removed; a successful cleanup only flips the reversed flag.
type Ledger struct {
	mu      sync.Mutex
	runID   string
	records []*Record
	store   Store
}

func New(runID string) *Ledger {
	return &Ledger{runID: runID}
}

// NewPersistent returns a ledger that mirrors every event to store, so
// cleanup remains possible after the process exits.
func NewPersistent(runID string, store Store) *Ledger {
	return &Ledger{runID: runID, store: store}
}

func (l *Ledger) RunID() string {
	return l.runID
}

// Record appends an artifact record and returns it. rev may be nil for
// mutations that cannot be undone; cleanup reports those as skipped.
func (l *Ledger) Record(kind Kind, remoteID, module string, rev *Reversal) (*Record, error) {
	if remoteID == "" {
		return nil, fmt.Errorf("artifact %s from %s has no remote ID", kind, module)
	}

	r := &Record{
		ID:        uuid.NewString(),
		RunID:     l.runID,
		Kind:      kind,
		RemoteID:  remoteID,
		Module:    module,
		CreatedAt: time.Now().UTC(),
		Reversal:  rev,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, r)
	if l.store != nil {
		if err := l.store.Append(Event{Type: EventCreated, Record: r}); err != nil {
			return r, fmt.Errorf("persisting ledger record: %w", err)
		}
	}
	return r, nil
}

// List returns the matching records in creation order.
func (l *Ledger) List(f Filter) []*Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*Record
	for _, r := range l.records {
		if f.matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Unreversed returns the matching records that have not been rolled back.
func (l *Ledger) Unreversed(f Filter) []*Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*Record
	for _, r := range l.records {
		if !r.Reversed && f.matches(r) {
			out = append(out, r)
		}
	}
	return out
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// MarkReversed flags a record as rolled back. The flag is terminal; it is
// never reset to false.
func (l *Ledger) MarkReversed(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, r := range l.records {
		if r.ID != id {
			continue
		}
		if r.Reversed {
			return nil
		}
		now := time.Now().UTC()
		r.Reversed = true
		r.ReversedAt = &now
		if l.store != nil {
			if err := l.store.Append(Event{Type: EventReversed, RecordID: r.ID, Time: now}); err != nil {
				return fmt.Errorf("persisting reversal: %w", err)
			}
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownRecord, id)
}

// ForModule returns a recorder that attributes every artifact it records to
// the given module execution.
func (l *Ledger) ForModule(module string) *Recorder {
	return &Recorder{ledger: l, module: module}
}

// Recorder is the module-scoped handle modules report artifacts through.
// It remembers its own records so the engine can attach exactly the
// artifacts of one execution to that execution's result, even when the same
// module runs twice in a run.
type Recorder struct {
	mu      sync.Mutex
	ledger  *Ledger
	module  string
	records []*Record
}

// Created reports an artifact the module just created or mutated. Modules
// must call this synchronously, before issuing the next API call, so a
// later failure cannot lose the artifact.
func (r *Recorder) Created(kind Kind, remoteID string, rev *Reversal) (*Record, error) {
	rec, err := r.ledger.Record(kind, remoteID, r.module, rev)
	if err != nil {
		return rec, err
	}

	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
	return rec, nil
}

// Records returns the artifacts recorded through this recorder, in the
// order the module created them.
func (r *Recorder) Records() []*Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Record, len(r.records))
	copy(out, r.records)
	return out
}
