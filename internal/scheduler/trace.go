package scheduler

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"cogflow/internal/domain"
	cogerrors "cogflow/internal/domain/errors"
)

// traceRecorder assigns strictly monotonic trace step ids (spec §4.4
// "Trace step numbers are assigned strictly monotonically") using ULIDs,
// which are lexically sortable by creation time, and appends steps under a
// lock so concurrent level evaluation can all record safely. It also
// aggregates per-node evaluation failures so they surface on the
// ExecutionResult instead of being discarded into trace step details only.
type traceRecorder struct {
	mu         sync.Mutex
	entropy    io.Reader
	steps      []domain.TraceStep
	nodeErrors []*cogerrors.Issue
}

func newTraceRecorder() *traceRecorder {
	return &traceRecorder{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (r *traceRecorder) record(nodeID string, action domain.TraceAction, value any, iteration int, details map[string]any) domain.TraceStep {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), r.entropy).String()
	step := domain.TraceStep{
		ID:        id,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		Action:    action,
		Value:     value,
		Iteration: iteration,
		Details:   details,
	}
	r.steps = append(r.steps, step)
	return step
}

func (r *traceRecorder) all() []domain.TraceStep {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.TraceStep, len(r.steps))
	copy(out, r.steps)
	return out
}

// recordNodeError records a node-evaluation failure both as a trace step
// (so the step-by-step history still shows it in Details) and as an
// aggregated Issue callers can read off the ExecutionResult.
func (r *traceRecorder) recordNodeError(nodeID string, iteration int, err *cogerrors.RuntimeError) domain.TraceStep {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), r.entropy).String()
	step := domain.TraceStep{
		ID:        id,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		Action:    domain.ActionEvaluate,
		Iteration: iteration,
		Details:   map[string]any{"error": err.Error()},
	}
	r.steps = append(r.steps, step)

	issue := cogerrors.NewError(err.Kind, err.Message).WithNode(nodeID)
	r.nodeErrors = append(r.nodeErrors, &issue)
	return step
}

// errors returns every aggregated per-node evaluation failure recorded so
// far, in the order they occurred.
func (r *traceRecorder) errors() []*cogerrors.Issue {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*cogerrors.Issue, len(r.nodeErrors))
	copy(out, r.nodeErrors)
	return out
}
