package expreval

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSafetyRejectsUnsafeTokens(t *testing.T) {
	cases := []struct {
		name   string
		source string
		wantOK bool
	}{
		{"plain arithmetic", "a + b * 2", true},
		{"builtin call", "sqrt(a) + pow(b, 2)", true},
		{"exec call", `exec("rm -rf /")`, false},
		{"unbalanced parens", "(a + b", false},
		{"disallowed character", "a; b", false},
		{"require token", "require(a)", false},
		{"token substring is fine", "executive + 1", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckSafety(tc.source)
			if tc.wantOK {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

// TestCheckSafetyNamesUnsafeTokenDespiteQuoteCharacters replicates spec
// §8 Scenario 4's literal input: quote characters sit outside
// charWhitelist, but the unsafe-token scan must still run and report the
// offending identifier rather than the generic out-of-whitelist message.
func TestCheckSafetyNamesUnsafeTokenDespiteQuoteCharacters(t *testing.T) {
	err := CheckSafety(`require('fs').readFileSync('/etc/passwd')`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsafe token "require"`)
}

func TestEvaluateFormula(t *testing.T) {
	e := New()
	out, err := e.EvaluateFormula(context.Background(), "a + b * 2", map[string]any{"a": 1.0, "b": 2.0}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 5.0, out.Value)
	assert.Positive(t, out.ResultBytes)
}

func TestEvaluateFormulaRejectsSandboxEscape(t *testing.T) {
	e := New()
	_, err := e.EvaluateFormula(context.Background(), `exec("rm -rf /")`, nil, 0, 0)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsafe"))
}

func TestEvaluateFormulaMemoryCap(t *testing.T) {
	e := New()
	_, err := e.EvaluateFormula(context.Background(), `[1, 2, 3, 4, 5]`, nil, 0, 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "formula_memory")
}

func TestEvaluateCondition(t *testing.T) {
	e := New()
	ok, err := e.EvaluateCondition("a and not b", map[string]any{"a": true, "b": false})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.EvaluateCondition("", nil)
	require.NoError(t, err)
	assert.True(t, ok, "empty condition defaults to true")
}

func TestEvaluateConditionRejectsNonBoolResult(t *testing.T) {
	e := New()
	_, err := e.EvaluateCondition("a + b", map[string]any{"a": 1.0, "b": 2.0})
	require.Error(t, err)
}

func TestProgramCacheReusesCompiledProgram(t *testing.T) {
	e := New()
	vars := map[string]any{"a": 1.0, "b": 1.0}
	_, err := e.EvaluateFormula(context.Background(), "a + b", vars, 0, 0)
	require.NoError(t, err)
	_, ok := e.cache.get("a + b")
	assert.True(t, ok, "evaluating a source should leave its compiled program in the cache")
}
