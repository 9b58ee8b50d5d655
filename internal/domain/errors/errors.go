// Package errors defines the typed error taxonomy shared by the validator,
// compiler, and scheduler (spec §7).
package errors

import "fmt"

// Kind classifies an error the way the rest of the system reasons about it:
// validation errors stop the pipeline, runtime errors are attached to a
// partial execution result.
type Kind string

const (
	// Validation-phase kinds.
	KindSchema    Kind = "schema"
	KindReference Kind = "reference"
	KindCycle     Kind = "cycle"
	KindLogic     Kind = "logic"

	// Runtime kinds.
	KindExecutionTimeout Kind = "execution_timeout"
	KindInfiniteLoop     Kind = "infinite_loop"
	KindFormulaTimeout   Kind = "formula_timeout"
	KindFormulaMemory    Kind = "formula_memory"
	KindFormulaError     Kind = "formula_error"
	KindConditionError   Kind = "condition_error"
	KindExtensionError   Kind = "extension_error"
	KindNodeExecution    Kind = "node_execution"
	KindExecutionError   Kind = "execution_error"
)

// Severity distinguishes a fatal validation finding from an advisory one.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single validation finding (spec §4.2 "Error taxonomy").
type Issue struct {
	Kind       Kind     `json:"kind"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Path       string   `json:"path,omitempty"`
	NodeID     string   `json:"node_id,omitempty"`
	RelationID string   `json:"relation_id,omitempty"`
}

func (i Issue) Error() string {
	return fmt.Sprintf("[%s/%s] %s", i.Kind, i.Severity, i.Message)
}

// NewError builds a fatal Issue of the given kind.
func NewError(kind Kind, message string) Issue {
	return Issue{Kind: kind, Severity: SeverityError, Message: message}
}

// NewWarning builds an advisory Issue.
func NewWarning(kind Kind, message string) Issue {
	return Issue{Kind: kind, Severity: SeverityWarning, Message: message}
}

// WithNode attaches a node id to an Issue and returns the copy.
func (i Issue) WithNode(nodeID string) Issue {
	i.NodeID = nodeID
	return i
}

// WithRelation attaches a relation id to an Issue and returns the copy.
func (i Issue) WithRelation(relationID string) Issue {
	i.RelationID = relationID
	return i
}

// WithPath attaches a structural path (e.g. a cycle) to an Issue.
func (i Issue) WithPath(path string) Issue {
	i.Path = path
	return i
}

// RuntimeError is a scheduler/node-evaluation failure (spec §7 "Runtime
// errors"). Unlike Issue it always carries a timestamp-free Cause chain so
// callers can errors.As/errors.Is through it.
type RuntimeError struct {
	Kind    Kind
	Message string
	NodeID  string
	Cause   error
}

func (e *RuntimeError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s at node %s: %s", e.Kind, e.NodeID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RuntimeError) Unwrap() error { return e.Cause }

// NewRuntimeError builds a RuntimeError.
func NewRuntimeError(kind Kind, nodeID, message string, cause error) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: message, NodeID: nodeID, Cause: cause}
}

// ConfigurationError represents a misconfiguration of the engine itself
// (bad defaults, invalid optimization mode, ...). These are programmer
// errors, not document errors.
type ConfigurationError struct {
	Component string
	Message   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(component, message string) *ConfigurationError {
	return &ConfigurationError{Component: component, Message: message}
}
