package domain

import (
	"time"

	cogerrors "cogflow/internal/domain/errors"
)

// TraceStep is a single recorded step of graph execution (spec §4.4
// "Execution trace", §9 "Trace step IDs").
type TraceStep struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	NodeID    string         `json:"node_id"`
	Action    TraceAction    `json:"action"`
	Value     any            `json:"value,omitempty"`
	Iteration int            `json:"iteration"`
	Details   map[string]any `json:"details,omitempty"`
}

// ExecutionState is the mutable working set the scheduler reads and writes
// while iterating a compiled graph (spec §4.4 "Execute").
type ExecutionState struct {
	Values     map[string]any       `json:"values"`
	States     map[string]NodeState `json:"states"`
	Iteration  int                  `json:"iteration"`
	Converged  bool                 `json:"converged"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at,omitempty"`
	Trace      []TraceStep          `json:"trace,omitempty"`
}

// NewExecutionState allocates an empty state ready for the scheduler to seed.
func NewExecutionState() *ExecutionState {
	return &ExecutionState{
		Values: make(map[string]any),
		States: make(map[string]NodeState),
	}
}

// Record appends a trace step unconditionally; the Trace slice stays nil
// only if the caller never calls Record.
func (s *ExecutionState) Record(step TraceStep) {
	s.Trace = append(s.Trace, step)
}

// ExecutionResult is the outcome returned to callers of Execute/Simulate
// (spec §4.4, §4.6 "Execute"). Success is false whenever the run hit a
// scheduler-fatal error (timeout, infinite loop) or any node failed
// evaluation; Errors aggregates every node-evaluation failure across the
// run, while Error carries the single scheduler-fatal failure, if any
// (spec lines 99, 117, 149, 188 "success=false plus an aggregated
// node-evaluation error list").
type ExecutionResult struct {
	DocumentID   string          `json:"document_id"`
	Mode         ExecutionMode   `json:"mode"`
	Success      bool            `json:"success"`
	Iterations   int             `json:"iterations"`
	Converged    bool            `json:"converged"`
	FinalValues  map[string]any  `json:"final_values"`
	FinalStates  map[string]NodeState `json:"final_states"`
	Trace        []TraceStep     `json:"trace,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
	DurationMs   int64           `json:"duration_ms"`
	Error        *cogerrors.Issue   `json:"error,omitempty"`
	Errors       []*cogerrors.Issue `json:"errors,omitempty"`
}
