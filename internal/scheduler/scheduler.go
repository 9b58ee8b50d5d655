// Package scheduler drives node evaluations on a compiled graph to a fixed
// point under one of the three scheduling disciplines (C4, spec §4.4).
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"cogflow/internal/domain"
	cogerrors "cogflow/internal/domain/errors"
	"cogflow/internal/nodeeval"
	"cogflow/internal/notifier"
)

const hybridMaxRounds = 10

// modeHybrid is the adaptive dispatcher's third strategy (spec §4.4
// "Adaptive"); it is not one of the document-level execution modes, only an
// internal scheduling choice, so it is not in domain.ExecutionMode's closed
// set.
const modeHybrid domain.ExecutionMode = "hybrid"

// Scheduler drives a compiled graph's node evaluations to a fixed point.
type Scheduler struct {
	eval     *nodeeval.Evaluator
	breakers *breakerRegistry
	notify   notifier.Notifier
}

// New constructs a Scheduler backed by the given node evaluator, notifying
// no one unless WithNotifier is used.
func New(eval *nodeeval.Evaluator) *Scheduler {
	return &Scheduler{eval: eval, breakers: newBreakerRegistry(), notify: notifier.Noop{}}
}

// WithNotifier sets the scheduler's lifecycle-event sink (SPEC_FULL §4.8).
func (s *Scheduler) WithNotifier(n notifier.Notifier) *Scheduler {
	if n != nil {
		s.notify = n
	}
	return s
}

// Overrides optionally overrides the graph's execution config for one run
// (spec §4.4 "execute(graph, inputs, config-overrides?)").
type Overrides struct {
	Mode          domain.ExecutionMode
	MaxIterations int
	TimeoutMs     int
}

// Execute drives graph to a fixed point, seeding state from inputs (spec
// §4.4 "Initialization", "Mode dispatch", "Termination").
func (s *Scheduler) Execute(ctx context.Context, g *domain.Graph, inputs map[string]any, overrides Overrides) *domain.ExecutionResult {
	mode := g.Execution.Mode
	if overrides.Mode != "" {
		mode = overrides.Mode
	}
	maxIterations := g.Execution.MaxIterations
	if overrides.MaxIterations > 0 {
		maxIterations = overrides.MaxIterations
	}
	timeoutMs := g.Execution.TimeoutMs
	if overrides.TimeoutMs > 0 {
		timeoutMs = overrides.TimeoutMs
	}

	if mode == domain.ModeAdaptive {
		mode = chooseAdaptiveStrategy(g)
	}

	state := domain.NewExecutionState()
	state.StartedAt = time.Now().UTC()
	recorder := newTraceRecorder()
	s.seed(g, inputs, state, recorder)

	s.notify.Notify(notifier.Event{Kind: notifier.EventExecutionStarted, DocumentID: g.Metadata.ID})

	deadline := state.StartedAt.Add(time.Duration(timeoutMs) * time.Millisecond)

	var runErr *cogerrors.RuntimeError
	switch mode {
	case domain.ModeSequential:
		runErr = s.runSequential(ctx, g, state, recorder, maxIterations, deadline)
	case domain.ModeParallel:
		runErr = s.runParallel(ctx, g, state, recorder, maxIterations, deadline)
	default:
		runErr = s.runHybrid(ctx, g, state, recorder, maxIterations, deadline)
	}

	state.FinishedAt = time.Now().UTC()
	state.Trace = recorder.all()
	nodeErrors := recorder.errors()

	result := &domain.ExecutionResult{
		DocumentID:  g.Metadata.ID,
		Mode:        mode,
		Success:     runErr == nil && len(nodeErrors) == 0,
		Iterations:  state.Iteration,
		Converged:   state.Converged,
		FinalValues: state.Values,
		FinalStates: state.States,
		Trace:       state.Trace,
		StartedAt:   state.StartedAt,
		FinishedAt:  state.FinishedAt,
		DurationMs:  state.FinishedAt.Sub(state.StartedAt).Milliseconds(),
		Errors:      nodeErrors,
	}
	if runErr != nil {
		issue := cogerrors.NewError(runErr.Kind, runErr.Message).WithNode(runErr.NodeID)
		result.Error = &issue
		kind := notifier.EventExecutionFailed
		if runErr.Kind == cogerrors.KindExecutionTimeout {
			kind = notifier.EventExecutionTimedOut
		}
		s.notify.Notify(notifier.Event{Kind: kind, DocumentID: g.Metadata.ID, Detail: runErr.Message})
	} else if len(nodeErrors) > 0 {
		s.notify.Notify(notifier.Event{Kind: notifier.EventExecutionFailed, DocumentID: g.Metadata.ID, Detail: nodeErrors[0].Message})
	} else {
		s.notify.Notify(notifier.Event{Kind: notifier.EventExecutionCompleted, DocumentID: g.Metadata.ID, Iteration: state.Iteration})
	}
	return result
}

// Simulate executes against a deep copy of graph, leaving the caller's
// cached graph untouched (spec §4.6 "simulate").
func (s *Scheduler) Simulate(ctx context.Context, g *domain.Graph, inputs map[string]any, overrides Overrides) (*domain.ExecutionResult, error) {
	clone, err := cloneGraph(g)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, clone, inputs, overrides), nil
}

// seed implements spec §4.4 "Initialization".
func (s *Scheduler) seed(g *domain.Graph, inputs map[string]any, state *domain.ExecutionState, recorder *traceRecorder) {
	for id, v := range inputs {
		state.Values[id] = v
		recorder.record(id, domain.ActionEvaluate, v, 0, nil)
	}
	for _, n := range g.Nodes() {
		if _, ok := state.Values[n.ID]; ok {
			continue
		}
		if n.Data.Value != nil {
			state.Values[n.ID] = n.Data.Value
		} else {
			state.Values[n.ID] = n.Type.DefaultValue()
		}
		state.States[n.ID] = n.StateOrDefault()
	}
}

// chooseAdaptiveStrategy implements spec §4.4 "Adaptive".
func chooseAdaptiveStrategy(g *domain.Graph) domain.ExecutionMode {
	nodeCount := len(g.Nodes())
	avgBranching := g.Compilation.Complexity.AverageBranching
	cycleCount := g.Compilation.Complexity.CycleCount

	if nodeCount < 10 || avgBranching < 2 {
		return domain.ModeSequential
	}
	if cycleCount == 0 && nodeCount > 20 {
		return domain.ModeParallel
	}
	return modeHybrid
}

// runSequential implements spec §4.4 "Sequential".
func (s *Scheduler) runSequential(ctx context.Context, g *domain.Graph, state *domain.ExecutionState, recorder *traceRecorder, maxIterations int, deadline time.Time) *cogerrors.RuntimeError {
	order := sequentialOrder(g)

	for {
		if time.Now().After(deadline) {
			return cogerrors.NewRuntimeError(cogerrors.KindExecutionTimeout, "", "execution exceeded timeout_ms", nil)
		}
		if state.Iteration >= maxIterations {
			return cogerrors.NewRuntimeError(cogerrors.KindInfiniteLoop, "", "execution exceeded max_iterations", nil)
		}

		changed := false
		for _, id := range order {
			newVal, err := s.evaluateNode(ctx, g, state.Values, id)
			if err != nil {
				recorder.recordNodeError(id, state.Iteration, err)
				continue
			}
			if !valuesEqual(state.Values[id], newVal) {
				state.Values[id] = newVal
				state.States[id] = domain.StateCompleted
				recorder.record(id, domain.ActionExecute, newVal, state.Iteration, nil)
				changed = true
			}
		}

		state.Iteration++
		if !changed {
			state.Converged = true
			return nil
		}
	}
}

// runParallel implements spec §4.4 "Parallel" and the snapshot-before-level
// / apply-after-level write barrier (spec §5).
func (s *Scheduler) runParallel(ctx context.Context, g *domain.Graph, state *domain.ExecutionState, recorder *traceRecorder, maxIterations int, deadline time.Time) *cogerrors.RuntimeError {
	levels := computeLevels(g)
	if len(levels) == maxLevelIterations {
		placed := 0
		for _, level := range levels {
			placed += len(level)
		}
		if placed < len(g.Nodes()) {
			return cogerrors.NewRuntimeError(cogerrors.KindExecutionError, "", fmt.Sprintf("dependency levels exceed %d", maxLevelIterations), nil)
		}
	}

	for {
		if time.Now().After(deadline) {
			return cogerrors.NewRuntimeError(cogerrors.KindExecutionTimeout, "", "execution exceeded timeout_ms", nil)
		}
		if state.Iteration >= maxIterations {
			return cogerrors.NewRuntimeError(cogerrors.KindInfiniteLoop, "", "execution exceeded max_iterations", nil)
		}

		changed := false
		for _, level := range levels {
			if time.Now().After(deadline) {
				return cogerrors.NewRuntimeError(cogerrors.KindExecutionTimeout, "", "execution exceeded timeout_ms", nil)
			}

			snapshot := snapshotValues(state.Values)
			type result struct {
				id  string
				val any
				err *cogerrors.RuntimeError
			}
			results := make([]result, len(level))
			var wg sync.WaitGroup
			for i, id := range level {
				wg.Add(1)
				go func(i int, id string) {
					defer wg.Done()
					newVal, err := s.evaluateNode(ctx, g, snapshot, id)
					results[i] = result{id: id, val: newVal, err: err}
				}(i, id)
			}
			wg.Wait()

			for _, r := range results {
				if r.err != nil {
					recorder.recordNodeError(r.id, state.Iteration, r.err)
					continue
				}
				if !valuesEqual(state.Values[r.id], r.val) {
					state.Values[r.id] = r.val
					state.States[r.id] = domain.StateCompleted
					recorder.record(r.id, domain.ActionExecute, r.val, state.Iteration, nil)
					changed = true
				}
			}
		}

		state.Iteration++
		if !changed {
			state.Converged = true
			return nil
		}
	}
}

// runHybrid implements spec §4.4 "Hybrid": Tarjan SCC condensation, singleton
// components evaluated normally, larger components iterated sequentially up
// to hybridMaxRounds.
func (s *Scheduler) runHybrid(ctx context.Context, g *domain.Graph, state *domain.ExecutionState, recorder *traceRecorder, maxIterations int, deadline time.Time) *cogerrors.RuntimeError {
	components := tarjanSCC(g)

	for {
		if time.Now().After(deadline) {
			return cogerrors.NewRuntimeError(cogerrors.KindExecutionTimeout, "", "execution exceeded timeout_ms", nil)
		}
		if state.Iteration >= maxIterations {
			return cogerrors.NewRuntimeError(cogerrors.KindInfiniteLoop, "", "execution exceeded max_iterations", nil)
		}

		changed := false
		for _, component := range components {
			if len(component) == 1 {
				id := component[0]
				newVal, err := s.evaluateNode(ctx, g, state.Values, id)
				if err != nil {
					recorder.recordNodeError(id, state.Iteration, err)
					continue
				}
				if !valuesEqual(state.Values[id], newVal) {
					state.Values[id] = newVal
					state.States[id] = domain.StateCompleted
					recorder.record(id, domain.ActionExecute, newVal, state.Iteration, nil)
					changed = true
				}
				continue
			}

			for round := 0; round < hybridMaxRounds; round++ {
				roundChanged := false
				for _, id := range component {
					newVal, err := s.evaluateNode(ctx, g, state.Values, id)
					if err != nil {
						recorder.recordNodeError(id, state.Iteration, err)
						continue
					}
					if !valuesEqual(state.Values[id], newVal) {
						state.Values[id] = newVal
						state.States[id] = domain.StateCompleted
						recorder.record(id, domain.ActionExecute, newVal, state.Iteration, nil)
						roundChanged = true
						changed = true
					}
				}
				if !roundChanged {
					break
				}
			}
		}

		state.Iteration++
		if !changed {
			state.Converged = true
			return nil
		}
	}
}

// evaluateNode calls the node evaluator, routing formula and custom node
// types through a per-key circuit breaker (spec §4.9 resilience note).
func (s *Scheduler) evaluateNode(ctx context.Context, g *domain.Graph, values map[string]any, id string) (any, *cogerrors.RuntimeError) {
	node, ok := g.Node(id)
	if !ok {
		return nil, cogerrors.NewRuntimeError(cogerrors.KindNodeExecution, id, "node not found", nil)
	}

	breakerKey := ""
	switch node.Type {
	case domain.NodeFormula:
		breakerKey = "formula:" + id
	case domain.NodeCustom:
		breakerKey = "custom:" + node.CustomType
	}

	if breakerKey == "" {
		v, err := s.eval.Evaluate(ctx, g, values, id)
		return v, asRuntimeError(id, err)
	}

	var value any
	cb := s.breakers.get(breakerKey)
	execErr := cb.Execute(func() error {
		v, err := s.eval.Evaluate(ctx, g, values, id)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	return value, asRuntimeError(id, execErr)
}

func asRuntimeError(nodeID string, err error) *cogerrors.RuntimeError {
	if err == nil {
		return nil
	}
	if re, ok := err.(*cogerrors.RuntimeError); ok {
		return re
	}
	return cogerrors.NewRuntimeError(cogerrors.KindNodeExecution, nodeID, err.Error(), err)
}

func snapshotValues(values map[string]any) map[string]any {
	snap := make(map[string]any, len(values))
	for k, v := range values {
		snap[k] = v
	}
	return snap
}

// valuesEqual implements spec §4.5 "Value equality": primitive equality for
// primitives, canonical JSON-string comparison for composites.
func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case nil, bool, string, float64, int, int64:
		return a == b
	default:
		_ = av
	}
	aj, aerr := json.Marshal(a)
	bj, berr := json.Marshal(b)
	if aerr != nil || berr != nil {
		return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
	}
	return string(aj) == string(bj)
}

func cloneGraph(g *domain.Graph) (*domain.Graph, error) {
	nodes := append([]domain.Node{}, g.Nodes()...)
	relations := append([]domain.Relation{}, g.Relations()...)

	data, err := json.Marshal(struct {
		Nodes     []domain.Node     `json:"nodes"`
		Relations []domain.Relation `json:"relations"`
	}{nodes, relations})
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Nodes     []domain.Node     `json:"nodes"`
		Relations []domain.Relation `json:"relations"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, err
	}

	clone := domain.NewGraph()
	clone.Metadata = g.Metadata
	clone.Execution = g.Execution
	clone.EntryPoints = append([]string{}, g.EntryPoints...)
	clone.ExitPoints = append([]string{}, g.ExitPoints...)
	clone.Compilation = g.Compilation
	clone.SetNodes(decoded.Nodes)
	clone.SetRelations(decoded.Relations)
	for id, targets := range g.Forward {
		clone.Forward[id] = append([]string{}, targets...)
	}
	for id, sources := range g.Reverse {
		clone.Reverse[id] = append([]string{}, sources...)
	}
	return clone, nil
}
