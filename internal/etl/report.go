package etl

import (
	"time"

	"github.com/BartekS5/astramigrate/pkg/models"
	"github.com/hashicorp/go-multierror"
)

// RunState is where a run is in its lifecycle.
type RunState string

const (
	StateIdle          RunState = "idle"
	StateConnecting    RunState = "connecting"
	StateConnected     RunState = "connected"
	StateFailed        RunState = "failed"
	StateMigrating     RunState = "migrating"
	StateDisconnecting RunState = "disconnecting"
	StateDone          RunState = "done"
)

// EntryOutcome records what happened to one mapping entry.
type EntryOutcome struct {
	Source string
	Target string
	Fetch  Result
	Insert Result
	// InsertAttempted is false when the fetch failed, the batch was empty
	// or the run was a dry run.
	InsertAttempted bool
	Duration        time.Duration
}

func (e EntryOutcome) OK() bool {
	return e.Fetch.OK() && e.Insert.OK()
}

// Err returns the first failure of the entry, or nil.
func (e EntryOutcome) Err() error {
	if !e.Fetch.OK() {
		return e.Fetch.Err
	}
	if !e.Insert.OK() {
		return e.Insert.Err
	}
	return nil
}

// Report is the outcome of one run.
type Report struct {
	RunID      string
	Family     models.Family
	State      RunState
	Entries    []EntryOutcome
	StartedAt  time.Time
	FinishedAt time.Time
	// Err is a run level failure: invalid input, connect failure or an
	// unexpected fault while migrating.
	Err error
	// DisconnectErr is kept apart; it does not fail the run.
	DisconnectErr error
}

// OK reports run level success. Individual entries may still have failed.
func (r *Report) OK() bool {
	return r.State == StateDone && r.Err == nil
}

// Complete reports run success with every entry succeeding.
func (r *Report) Complete() bool {
	return r.OK() && len(r.Failed()) == 0
}

func (r *Report) Failed() []EntryOutcome {
	var out []EntryOutcome
	for _, e := range r.Entries {
		if !e.OK() {
			out = append(out, e)
		}
	}
	return out
}

func (r *Report) RowsInserted() int {
	total := 0
	for _, e := range r.Entries {
		total += e.Insert.Rows
	}
	return total
}

// EntryErrors joins the errors of every failed entry.
func (r *Report) EntryErrors() error {
	var errs *multierror.Error
	for _, e := range r.Entries {
		if err := e.Err(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
