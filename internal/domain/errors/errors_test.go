package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIssueErrorFormatsKindSeverityMessage(t *testing.T) {
	issue := NewError(KindCycle, "cycle detected")
	assert.Equal(t, "[cycle/error] cycle detected", issue.Error())
}

func TestNewWarningIsNotAnError(t *testing.T) {
	issue := NewWarning(KindLogic, "odd but allowed")
	assert.Equal(t, SeverityWarning, issue.Severity)
}

func TestIssueWithHelpersAttachContextWithoutMutatingReceiver(t *testing.T) {
	base := NewError(KindReference, "dangling target")
	withNode := base.WithNode("n1")
	withRelation := withNode.WithRelation("r1")
	withPath := withRelation.WithPath("a->b->a")

	assert.Empty(t, base.NodeID, "WithNode must return a copy, not mutate base")
	assert.Equal(t, "n1", withNode.NodeID)
	assert.Equal(t, "r1", withRelation.RelationID)
	assert.Equal(t, "a->b->a", withPath.Path)
}

func TestRuntimeErrorFormatsWithAndWithoutNodeID(t *testing.T) {
	withNode := NewRuntimeError(KindFormulaError, "n1", "division by zero", nil)
	assert.Equal(t, "formula_error at node n1: division by zero", withNode.Error())

	withoutNode := NewRuntimeError(KindExecutionTimeout, "", "deadline exceeded", nil)
	assert.Equal(t, "execution_timeout: deadline exceeded", withoutNode.Error())
}

func TestRuntimeErrorUnwrapsToCause(t *testing.T) {
	cause := errors.New("underlying failure")
	wrapped := NewRuntimeError(KindNodeExecution, "n2", "evaluation failed", cause)

	assert.ErrorIs(t, wrapped, cause)

	var target *RuntimeError
	assert.ErrorAs(t, wrapped, &target)
	assert.Equal(t, "n2", target.NodeID)
}

func TestConfigurationErrorFormatsComponentAndMessage(t *testing.T) {
	err := NewConfigurationError("scheduler", "unknown optimization mode")
	assert.Equal(t, "configuration error in scheduler: unknown optimization mode", err.Error())
}
