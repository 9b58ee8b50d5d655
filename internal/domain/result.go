package domain

import (
	"time"

	cogerrors "cogflow/internal/domain/errors"
)

// ValidationSummary tallies issues by severity (spec §4.2 "Validate").
type ValidationSummary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// ValidationResult is the outcome of validating a document (spec §4.2
// "Validate", "ValidationResult").
type ValidationResult struct {
	Valid   bool               `json:"valid"`
	Issues  []cogerrors.Issue  `json:"issues,omitempty"`
	Summary ValidationSummary  `json:"summary"`
}

// NewValidationResult builds a result from a flat issue list, computing
// Valid and the summary tally.
func NewValidationResult(issues []cogerrors.Issue) ValidationResult {
	summary := ValidationSummary{}
	valid := true
	for _, iss := range issues {
		switch iss.Severity {
		case cogerrors.SeverityError:
			summary.Errors++
			valid = false
		case cogerrors.SeverityWarning:
			summary.Warnings++
		}
	}
	return ValidationResult{Valid: valid, Issues: issues, Summary: summary}
}

// NodeAnalysis is the per-node contribution to an AnalysisResult (spec §4.6
// "Analyze").
type NodeAnalysis struct {
	NodeID     string  `json:"node_id"`
	InDegree   int     `json:"in_degree"`
	OutDegree  int     `json:"out_degree"`
	IsEntry    bool    `json:"is_entry"`
	IsExit     bool    `json:"is_exit"`
	IsIsolated bool    `json:"is_isolated"`
	Centrality float64 `json:"centrality"`
}

// AnalysisResult summarizes the structural properties of a compiled graph
// without executing it (spec §4.6 "Analyze").
type AnalysisResult struct {
	DocumentID   string                  `json:"document_id"`
	GeneratedAt  time.Time               `json:"generated_at"`
	Complexity   Complexity              `json:"complexity"`
	Nodes        []NodeAnalysis          `json:"nodes"`
	Cycles       [][]string              `json:"cycles,omitempty"`
	Isolated     []string                `json:"isolated,omitempty"`
}

// HistoryEntry is one stored past execution, keyed for retrieval by the
// platform facade's history operation (spec §4.6 "History").
type HistoryEntry struct {
	Key    string          `json:"key"`
	Result ExecutionResult `json:"result"`
}
