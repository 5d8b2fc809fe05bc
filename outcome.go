package nexus

import (
	"time"

	"github.com/google/uuid"
)

// Status is the result class of a single run.
type Status string

// Run statuses.
const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
)

// Outcome is what a pipeline run produces. Runs never return a Go error to
// the caller: a failed run is reported as a degraded outcome whose Value is a
// best-effort fallback (the value the failing stage received) and whose Err
// is the *Error describing the failure.
type Outcome struct {
	Value    any
	Err      error
	Pipeline Name
	RunID    uuid.UUID
	Elapsed  time.Duration
	Stages   int // stages that completed
}

// OK reports whether every stage succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Degraded reports whether the run fell back after a stage failure.
func (o Outcome) Degraded() bool { return o.Err != nil }

// Status returns StatusOK or StatusDegraded.
func (o Outcome) Status() Status {
	if o.Err != nil {
		return StatusDegraded
	}
	return StatusOK
}

// Stats is a snapshot of a pipeline's run metrics.
//
// Successes only counts runs in which every stage succeeded. Elapsed is the
// wall-clock cost of all runs, failed ones included.
type Stats struct {
	Runs      int
	Successes int
	Failures  int
	Elapsed   time.Duration
}
