package expreval

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	cogerrors "cogflow/internal/domain/errors"
)

// defaultTimeout and defaultMemoryBytes are the formula resource-limit
// defaults (spec §4.1 "Resource limits").
const (
	defaultTimeout     = 5000 * time.Millisecond
	defaultMemoryBytes = 10 * 1024 * 1024
)

// builtins is the fixed function table bound into every evaluation
// environment (spec §4.1 "the supplied built-in functions").
var builtins = map[string]any{
	"abs":   math.Abs,
	"min":   func(a, b float64) float64 { return math.Min(a, b) },
	"max":   func(a, b float64) float64 { return math.Max(a, b) },
	"sqrt":  math.Sqrt,
	"pow":   math.Pow,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"log":   math.Log,
	"exp":   math.Exp,
	"floor": math.Floor,
	"ceil":  math.Ceil,
	"round": math.Round,
}

// Evaluator compiles and runs sandboxed expr-lang expressions for formula
// nodes, enforcing the safety policy, timeout, and memory cap of spec §4.1.
// It also offers EvaluateCondition for standalone boolean expressions.
type Evaluator struct {
	cache *programCache
}

// New constructs an Evaluator with a bounded program cache.
func New() *Evaluator {
	return &Evaluator{cache: newProgramCache(256)}
}

// Outcome reports the resource usage of one evaluation, returned even on
// failure (spec §4.1 "Elapsed time and byte count are reported even on
// failure").
type Outcome struct {
	Value      any
	ElapsedMs  int64
	ResultBytes int
}

// EvaluateFormula runs a formula expression against vars under the given
// timeout/memory caps, applying the safety policy first (spec §4.1, §4.4
// "Formula").
func (e *Evaluator) EvaluateFormula(ctx context.Context, source string, vars map[string]any, timeoutMs, memoryBytes int) (Outcome, error) {
	if err := CheckSafety(source); err != nil {
		return Outcome{}, cogerrors.NewRuntimeError(cogerrors.KindFormulaError, "", err.Error(), err)
	}
	if timeoutMs <= 0 {
		timeoutMs = int(defaultTimeout / time.Millisecond)
	}
	if memoryBytes <= 0 {
		memoryBytes = defaultMemoryBytes
	}

	env := e.environment(vars)
	program, err := e.compile(source, env)
	if err != nil {
		return Outcome{}, cogerrors.NewRuntimeError(cogerrors.KindFormulaError, "", err.Error(), err)
	}

	start := time.Now()
	type runResult struct {
		value any
		err   error
	}
	done := make(chan runResult, 1)
	go func() {
		v, runErr := expr.Run(program, env)
		done <- runResult{value: v, err: runErr}
	}()

	select {
	case res := <-done:
		elapsed := time.Since(start).Milliseconds()
		if res.err != nil {
			return Outcome{ElapsedMs: elapsed}, cogerrors.NewRuntimeError(cogerrors.KindFormulaError, "", res.err.Error(), res.err)
		}
		size, err := serializedSize(res.value)
		if err != nil {
			return Outcome{Value: res.value, ElapsedMs: elapsed}, cogerrors.NewRuntimeError(cogerrors.KindFormulaError, "", err.Error(), err)
		}
		if size > memoryBytes {
			return Outcome{Value: res.value, ElapsedMs: elapsed, ResultBytes: size},
				cogerrors.NewRuntimeError(cogerrors.KindFormulaMemory, "", fmt.Sprintf("result size %d exceeds memory_bytes %d", size, memoryBytes), nil)
		}
		return Outcome{Value: res.value, ElapsedMs: elapsed, ResultBytes: size}, nil
	case <-time.After(time.Duration(timeoutMs) * time.Millisecond):
		elapsed := time.Since(start).Milliseconds()
		return Outcome{ElapsedMs: elapsed}, cogerrors.NewRuntimeError(cogerrors.KindFormulaTimeout, "", fmt.Sprintf("formula exceeded timeout_ms %d", timeoutMs), nil)
	case <-ctx.Done():
		elapsed := time.Since(start).Milliseconds()
		return Outcome{ElapsedMs: elapsed}, cogerrors.NewRuntimeError(cogerrors.KindFormulaTimeout, "", "evaluation cancelled", ctx.Err())
	}
}

// EvaluateCondition runs a boolean expression against vars under the same
// safety policy as formulas. Relation activation conditions and
// condition-node logic are evaluated by internal/nodeeval, not through this
// method.
func (e *Evaluator) EvaluateCondition(source string, vars map[string]any) (bool, error) {
	if source == "" {
		return true, nil
	}
	if err := CheckSafety(source); err != nil {
		return false, cogerrors.NewRuntimeError(cogerrors.KindConditionError, "", err.Error(), err)
	}
	env := e.environment(vars)
	program, err := e.compile(source, env)
	if err != nil {
		return false, cogerrors.NewRuntimeError(cogerrors.KindConditionError, "", err.Error(), err)
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return false, cogerrors.NewRuntimeError(cogerrors.KindConditionError, "", err.Error(), err)
	}
	b, ok := result.(bool)
	if !ok {
		return false, cogerrors.NewRuntimeError(cogerrors.KindConditionError, "", fmt.Sprintf("condition must evaluate to boolean, got %T", result), nil)
	}
	return b, nil
}

func (e *Evaluator) compile(source string, env map[string]any) (*vm.Program, error) {
	if program, ok := e.cache.get(source); ok {
		return program, nil
	}
	program, err := expr.Compile(source, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}
	e.cache.put(source, program)
	return program, nil
}

// environment merges the node's variable bindings with the fixed builtin
// function table; vars always wins on key collision, so a node id equal to a
// builtin name shadows that builtin for the evaluation.
func (e *Evaluator) environment(vars map[string]any) map[string]any {
	env := make(map[string]any, len(builtins)+len(vars))
	for k, v := range builtins {
		env[k] = v
	}
	for k, v := range vars {
		env[k] = v
	}
	return env
}

func serializedSize(v any) (int, error) {
	if v == nil {
		return 0, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("serialize result: %w", err)
	}
	return len(b), nil
}
