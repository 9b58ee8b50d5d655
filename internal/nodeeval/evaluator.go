// Package nodeeval computes a node's next value from its current state, the
// compiled graph, and its predecessors (C5, spec §4.5). Each node type is a
// small, independently testable function; the scheduler calls Evaluate once
// per node per pass.
package nodeeval

import (
	"context"
	"regexp"
	"strings"

	"cogflow/internal/domain"
	cogerrors "cogflow/internal/domain/errors"
	"cogflow/internal/expreval"
)

// CustomEvaluator computes a custom node's value given the node, the graph,
// and the current state map (spec §4.5 "Custom").
type CustomEvaluator interface {
	Evaluate(node *domain.Node, graph *domain.Graph, state map[string]any) (any, error)
}

// Evaluator dispatches per node type (spec §4.5).
type Evaluator struct {
	Expr      *expreval.Evaluator
	Custom    map[string]CustomEvaluator
	FormulaTimeoutMs int
	FormulaMemoryBytes int
}

// New constructs an Evaluator backed by the given sandboxed expression
// evaluator and custom-type registry (spec §4.5 "Custom", §4.6 "registry is
// passed to the scheduler").
func New(expr *expreval.Evaluator, custom map[string]CustomEvaluator) *Evaluator {
	return &Evaluator{Expr: expr, Custom: custom}
}

// Evaluate computes node id's next value given graph and the current state
// snapshot (read-only; the caller applies the write).
func (e *Evaluator) Evaluate(ctx context.Context, g *domain.Graph, state map[string]any, nodeID string) (any, error) {
	node, ok := g.Node(nodeID)
	if !ok {
		return nil, cogerrors.NewRuntimeError(cogerrors.KindNodeExecution, nodeID, "node not found in graph", nil)
	}

	switch node.Type {
	case domain.NodeConcept:
		return e.evaluateConcept(g, state, node), nil
	case domain.NodeCondition:
		return e.evaluateCondition(g, state, node)
	case domain.NodeAction:
		return e.evaluateAction(g, state, node)
	case domain.NodeEvent:
		return e.evaluateEvent(state, node), nil
	case domain.NodeFormula:
		return e.evaluateFormula(ctx, g, state, node)
	case domain.NodeCustom:
		return e.evaluateCustom(g, state, node)
	default:
		return nil, cogerrors.NewRuntimeError(cogerrors.KindNodeExecution, nodeID, "unknown node type", nil)
	}
}

// evaluateConcept implements spec §4.5 "Concept": weighted average of
// numeric predecessor values, weighted by predecessor->node relation
// strength; falls back to the stored/current value with no predecessors or
// zero total weight.
func (e *Evaluator) evaluateConcept(g *domain.Graph, state map[string]any, node *domain.Node) any {
	predecessors := g.Reverse[node.ID]
	if len(predecessors) == 0 {
		if node.Data.Value != nil {
			return node.Data.Value
		}
		return currentOrDefault(state, node)
	}

	var weightedSum, totalWeight float64
	for _, pred := range predecessors {
		val, ok := state[pred]
		if !ok {
			continue
		}
		num, ok := toFloat(val)
		if !ok {
			continue
		}
		rel, ok := g.RelationBetween(pred, node.ID)
		strength := 1.0
		if ok {
			strength = rel.StrengthOrDefault()
		}
		weightedSum += num * strength
		totalWeight += strength
	}

	if totalWeight == 0 {
		return currentOrDefault(state, node)
	}
	return weightedSum / totalWeight
}

var logicCharset = regexp.MustCompile(`^[A-Za-z0-9_&|!() \t]+$`)

// evaluateCondition implements spec §4.5 "Condition".
func (e *Evaluator) evaluateCondition(g *domain.Graph, state map[string]any, node *domain.Node) (any, error) {
	if logic, ok := node.Param("logic"); ok {
		logicStr, ok := logic.(string)
		if !ok {
			return nil, cogerrors.NewRuntimeError(cogerrors.KindConditionError, node.ID, "parameters.logic must be a string", nil)
		}
		substituted := substituteBooleans(logicStr, state)
		if !logicCharset.MatchString(substituted) {
			return nil, cogerrors.NewRuntimeError(cogerrors.KindConditionError, node.ID, "logic expression contains disallowed characters after substitution", nil)
		}
		result, err := evalBoolExpr(substituted)
		if err != nil {
			return nil, cogerrors.NewRuntimeError(cogerrors.KindConditionError, node.ID, err.Error(), err)
		}
		return result, nil
	}

	predecessors := g.Reverse[node.ID]
	if len(predecessors) == 0 {
		return truthy(currentOrDefault(state, node)), nil
	}

	for _, pred := range predecessors {
		rel, ok := g.RelationBetween(pred, node.ID)
		if !ok {
			continue
		}
		predVal, ok := state[pred]
		if !ok {
			continue
		}
		if conditionsHold(rel.ActivationConditions, predVal) {
			return true, nil
		}
	}
	return false, nil
}

// evaluateAction implements spec §4.5 "Action".
func (e *Evaluator) evaluateAction(g *domain.Graph, state map[string]any, node *domain.Node) (any, error) {
	predecessors := g.Reverse[node.ID]
	for _, pred := range predecessors {
		predVal, ok := state[pred]
		if !ok || !truthy(predVal) {
			return currentOrDefault(state, node), nil
		}
	}

	op, ok := node.Param("operation")
	if !ok {
		return true, nil
	}
	opName, _ := op.(string)

	inputsRaw, _ := node.Param("inputs")
	inputIDs := toStringSlice(inputsRaw)
	values := make([]float64, 0, len(inputIDs))
	for _, id := range inputIDs {
		if v, ok := state[id]; ok {
			if f, ok := toFloat(v); ok {
				values = append(values, f)
			}
		}
	}

	switch opName {
	case "sum":
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum, nil
	case "multiply":
		product := 1.0
		for _, v := range values {
			product *= v
		}
		return product, nil
	case "transform":
		return values, nil
	default:
		return true, nil
	}
}

// evaluateEvent implements spec §4.5 "Event". A time trigger yields the
// boolean in parameters._time_fire and otherwise keeps the current value; no
// clock, interval or last-trigger time is consulted, and nothing in the
// scheduler sets _time_fire.
func (e *Evaluator) evaluateEvent(state map[string]any, node *domain.Node) any {
	triggerType, _ := node.Param("triggerType")
	switch triggerType {
	case "state":
		watch, _ := node.Param("watch")
		watchID, _ := watch.(string)
		triggerValue, _ := node.Param("triggerValue")
		if watchID == "" {
			return currentOrDefault(state, node)
		}
		current, ok := state[watchID]
		if !ok {
			return currentOrDefault(state, node)
		}
		return equalValues(current, triggerValue)
	case "time":
		fire, _ := node.Param("_time_fire")
		if b, ok := fire.(bool); ok {
			return b
		}
		return currentOrDefault(state, node)
	default:
		return currentOrDefault(state, node)
	}
}

// evaluateFormula implements spec §4.5 "Formula": variable context is the
// node's own value plus every predecessor's value, keyed by id.
func (e *Evaluator) evaluateFormula(ctx context.Context, g *domain.Graph, state map[string]any, node *domain.Node) (any, error) {
	exprVal, ok := node.Param("expression")
	if !ok {
		exprVal, ok = node.Param("formula")
	}
	if !ok {
		return nil, cogerrors.NewRuntimeError(cogerrors.KindFormulaError, node.ID, "formula node requires parameters.expression", nil)
	}
	source, ok := exprVal.(string)
	if !ok {
		return nil, cogerrors.NewRuntimeError(cogerrors.KindFormulaError, node.ID, "formula expression must be a string", nil)
	}

	vars := map[string]any{node.ID: currentOrDefault(state, node)}
	for _, pred := range g.Reverse[node.ID] {
		if v, ok := state[pred]; ok {
			vars[pred] = v
		}
	}

	outcome, err := e.Expr.EvaluateFormula(ctx, source, vars, e.FormulaTimeoutMs, e.FormulaMemoryBytes)
	if err != nil {
		return nil, err
	}
	return outcome.Value, nil
}

// evaluateCustom implements spec §4.5 "Custom".
func (e *Evaluator) evaluateCustom(g *domain.Graph, state map[string]any, node *domain.Node) (any, error) {
	evaluator, ok := e.Custom[node.CustomType]
	if !ok {
		return currentOrDefault(state, node), nil
	}
	val, err := evaluator.Evaluate(node, g, state)
	if err != nil {
		return nil, cogerrors.NewRuntimeError(cogerrors.KindExtensionError, node.ID, err.Error(), err)
	}
	return val, nil
}

func currentOrDefault(state map[string]any, node *domain.Node) any {
	if v, ok := state[node.ID]; ok {
		return v
	}
	if node.Data.Value != nil {
		return node.Data.Value
	}
	return node.Type.DefaultValue()
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	case int:
		return b != 0
	case string:
		return b != ""
	case nil:
		return false
	default:
		return true
	}
}

func toStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func equalValues(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

// conditionsHold checks every {field, op, value} triple on a relation
// against predVal, all must hold (spec §4.5 "Condition").
func conditionsHold(conditions []domain.ActivationCondition, predVal any) bool {
	if len(conditions) == 0 {
		return truthy(predVal)
	}
	for _, cond := range conditions {
		fieldVal := resolveField(predVal, cond.Field)
		if !compare(fieldVal, cond.Operator, cond.Value) {
			return false
		}
	}
	return true
}

// resolveField reads a dotted field off predVal, or returns predVal itself
// when field is empty or "value".
func resolveField(predVal any, field string) any {
	if field == "" || field == "value" {
		return predVal
	}
	m, ok := predVal.(map[string]any)
	if !ok {
		return nil
	}
	return m[field]
}

func compare(actual any, op domain.ConditionOperator, expected any) bool {
	switch op {
	case domain.OpEq:
		return equalValues(actual, expected)
	case domain.OpNeq:
		return !equalValues(actual, expected)
	case domain.OpGt, domain.OpLt, domain.OpGte, domain.OpLte:
		af, aok := toFloat(actual)
		ef, eok := toFloat(expected)
		if !aok || !eok {
			return false
		}
		switch op {
		case domain.OpGt:
			return af > ef
		case domain.OpLt:
			return af < ef
		case domain.OpGte:
			return af >= ef
		case domain.OpLte:
			return af <= ef
		}
	case domain.OpContains:
		s, ok := actual.(string)
		sub, ok2 := expected.(string)
		if ok && ok2 {
			return strings.Contains(s, sub)
		}
	}
	return false
}

// substituteBooleans replaces each node id referenced in expr with the
// literal "true"/"false" from its current state (spec §4.5 "Condition").
func substituteBooleans(expr string, state map[string]any) string {
	for id, val := range state {
		lit := "false"
		if truthy(val) {
			lit = "true"
		}
		expr = replaceIdent(expr, id, lit)
	}
	return expr
}

// replaceIdent replaces whole-word occurrences of ident in s with repl.
func replaceIdent(s, ident, repl string) string {
	var b strings.Builder
	i := 0
	for {
		idx := strings.Index(s[i:], ident)
		if idx < 0 {
			b.WriteString(s[i:])
			break
		}
		start := i + idx
		end := start + len(ident)
		beforeOK := start == 0 || !isIdentChar(s[start-1])
		afterOK := end == len(s) || !isIdentChar(s[end])
		b.WriteString(s[i:start])
		if beforeOK && afterOK {
			b.WriteString(repl)
		} else {
			b.WriteString(ident)
		}
		i = end
	}
	return b.String()
}

func isIdentChar(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
