// Package validator implements the document validator (C2): schema,
// reference, and structural-consistency checks over a raw Document, run in
// the fixed phase order of spec §4.2 (grounded on the pack's DFS-based
// cycle detector in internal/application/executor/graph.go and its
// checkForCycles in internal/domain/workflow.go).
package validator

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"cogflow/internal/domain"
	cogerrors "cogflow/internal/domain/errors"
	"cogflow/internal/expreval"
)

var identPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
var versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// causalTypes is the subgraph checked for cycles (spec §3 invariants).
var causalTypes = map[domain.RelationType]bool{
	domain.RelationCauses:    true,
	domain.RelationTriggers:  true,
	domain.RelationDependsOn: true,
}

// Validator runs the four-phase document validation pipeline.
type Validator struct{}

// New constructs a Validator.
func New() *Validator {
	return &Validator{}
}

// Validate runs phases 1-4 of spec §4.2 against document, short-circuiting
// after phase 1 on schema failure.
func (v *Validator) Validate(doc *domain.Document) domain.ValidationResult {
	issues := v.schemaPhase(doc)
	hasError := false
	for _, iss := range issues {
		if iss.Severity == cogerrors.SeverityError {
			hasError = true
			break
		}
	}
	if hasError {
		return domain.NewValidationResult(issues)
	}

	issues = append(issues, v.referencePhase(doc)...)
	issues = append(issues, v.structuralPhase(doc)...)
	issues = append(issues, v.warningsPhase(doc)...)

	return domain.NewValidationResult(issues)
}

// ValidateFile reads path, parses it as a JSON Document, and validates it,
// adding a `schema` error when parsing fails (spec §4.2 "validate_file").
func (v *Validator) ValidateFile(path string) domain.ValidationResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.NewValidationResult([]cogerrors.Issue{
			cogerrors.NewError(cogerrors.KindSchema, fmt.Sprintf("cannot read file: %s", err)).WithPath(path),
		})
	}

	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.NewValidationResult([]cogerrors.Issue{
			cogerrors.NewError(cogerrors.KindSchema, fmt.Sprintf("cannot parse document: %s", err)).WithPath(path),
		})
	}

	return v.Validate(&doc)
}

// Summary computes the §4.2 "validate" summary block.
func Summary(doc *domain.Document) map[string]any {
	entry, exit := 0, 0
	if doc.Execution != nil {
		entry = len(doc.Execution.EntryPoints)
		exit = len(doc.Execution.ExitPoints)
	}
	return map[string]any{
		"node_count":     len(doc.Nodes),
		"relation_count": len(doc.Relations),
		"entry_points":   entry,
		"exit_points":    exit,
	}
}

// schemaPhase is phase 1: required fields, enum values, numeric bounds,
// identifier patterns, timestamps, version shape (spec §4.2 phase 1).
func (v *Validator) schemaPhase(doc *domain.Document) []cogerrors.Issue {
	var issues []cogerrors.Issue

	if doc.Metadata.ID == "" || !identPattern.MatchString(doc.Metadata.ID) {
		issues = append(issues, cogerrors.NewError(cogerrors.KindSchema, "metadata.id must match [A-Za-z0-9_-]+").WithPath("metadata.id"))
	}
	if doc.Metadata.Name == "" {
		issues = append(issues, cogerrors.NewError(cogerrors.KindSchema, "metadata.name is required").WithPath("metadata.name"))
	}
	if doc.Metadata.Version != "" && !versionPattern.MatchString(doc.Metadata.Version) {
		issues = append(issues, cogerrors.NewError(cogerrors.KindSchema, "metadata.version must be MAJOR.MINOR.PATCH").WithPath("metadata.version"))
	}
	if doc.Metadata.CreatedAt != "" {
		if _, err := time.Parse(time.RFC3339, doc.Metadata.CreatedAt); err != nil {
			issues = append(issues, cogerrors.NewError(cogerrors.KindSchema, "metadata.created_at must be ISO-8601").WithPath("metadata.created_at"))
		}
	}
	if doc.Metadata.UpdatedAt != "" {
		if _, err := time.Parse(time.RFC3339, doc.Metadata.UpdatedAt); err != nil {
			issues = append(issues, cogerrors.NewError(cogerrors.KindSchema, "metadata.updated_at must be ISO-8601").WithPath("metadata.updated_at"))
		}
	}

	if len(doc.Nodes) == 0 {
		issues = append(issues, cogerrors.NewError(cogerrors.KindSchema, "document must declare at least one node").WithPath("nodes"))
	}

	for _, n := range doc.Nodes {
		path := fmt.Sprintf("nodes[%s]", n.ID)
		if !identPattern.MatchString(n.ID) {
			issues = append(issues, cogerrors.NewError(cogerrors.KindSchema, "node id must match [A-Za-z0-9_-]+").WithPath(path).WithNode(n.ID))
		}
		if !n.Type.IsValid() {
			issues = append(issues, cogerrors.NewError(cogerrors.KindSchema, fmt.Sprintf("node type %q is not recognized", n.Type)).WithPath(path).WithNode(n.ID))
		}
		if n.Type == domain.NodeCustom && n.CustomType == "" {
			issues = append(issues, cogerrors.NewError(cogerrors.KindSchema, "custom node requires custom_type").WithPath(path).WithNode(n.ID))
		}
		if n.Data.Confidence != nil && (*n.Data.Confidence < 0 || *n.Data.Confidence > 1) {
			issues = append(issues, cogerrors.NewError(cogerrors.KindSchema, "node confidence must be in [0,1]").WithPath(path).WithNode(n.ID))
		}
		if n.Data.State != "" && !n.Data.State.IsValid() {
			issues = append(issues, cogerrors.NewError(cogerrors.KindSchema, fmt.Sprintf("node state %q is not recognized", n.Data.State)).WithPath(path).WithNode(n.ID))
		}
	}

	for _, r := range doc.Relations {
		path := fmt.Sprintf("relations[%s]", r.ID)
		if !identPattern.MatchString(r.ID) {
			issues = append(issues, cogerrors.NewError(cogerrors.KindSchema, "relation id must match [A-Za-z0-9_-]+").WithPath(path).WithRelation(r.ID))
		}
		if !r.Type.IsValid() {
			issues = append(issues, cogerrors.NewError(cogerrors.KindSchema, fmt.Sprintf("relation type %q is not recognized", r.Type)).WithPath(path).WithRelation(r.ID))
		}
		if r.Type == domain.RelationCustom && r.CustomType == "" {
			issues = append(issues, cogerrors.NewError(cogerrors.KindSchema, "custom relation requires custom_type").WithPath(path).WithRelation(r.ID))
		}
		if r.Strength != nil && (*r.Strength < 0 || *r.Strength > 1) {
			issues = append(issues, cogerrors.NewError(cogerrors.KindSchema, "relation strength must be in [0,1]").WithPath(path).WithRelation(r.ID))
		}
	}

	if doc.Execution != nil {
		if doc.Execution.MaxIterations < 0 {
			issues = append(issues, cogerrors.NewError(cogerrors.KindSchema, "execution.max_iterations must be >= 1").WithPath("execution.max_iterations"))
		}
		if doc.Execution.Mode != "" && !doc.Execution.Mode.IsValid() {
			issues = append(issues, cogerrors.NewError(cogerrors.KindSchema, fmt.Sprintf("execution mode %q is not recognized", doc.Execution.Mode)).WithPath("execution.mode"))
		}
	}

	return issues
}

// referencePhase is phase 2: duplicate ids, dangling endpoints, dangling
// entry/exit points (spec §4.2 phase 2).
func (v *Validator) referencePhase(doc *domain.Document) []cogerrors.Issue {
	var issues []cogerrors.Issue

	nodeIDs := make(map[string]int, len(doc.Nodes))
	for _, n := range doc.Nodes {
		nodeIDs[n.ID]++
	}
	for id, count := range nodeIDs {
		if count > 1 {
			issues = append(issues, cogerrors.NewError(cogerrors.KindReference, "duplicate node id").WithNode(id))
		}
	}

	relIDs := make(map[string]int, len(doc.Relations))
	for _, r := range doc.Relations {
		relIDs[r.ID]++
	}
	for id, count := range relIDs {
		if count > 1 {
			issues = append(issues, cogerrors.NewError(cogerrors.KindReference, "duplicate relation id").WithRelation(id))
		}
	}

	for _, r := range doc.Relations {
		if _, ok := nodeIDs[r.Source]; !ok {
			issues = append(issues, cogerrors.NewError(cogerrors.KindReference, fmt.Sprintf("relation source %q does not exist", r.Source)).WithRelation(r.ID))
		}
		if _, ok := nodeIDs[r.Target]; !ok {
			issues = append(issues, cogerrors.NewError(cogerrors.KindReference, fmt.Sprintf("relation target %q does not exist", r.Target)).WithRelation(r.ID))
		}
	}

	if doc.Execution != nil {
		for _, id := range doc.Execution.EntryPoints {
			if _, ok := nodeIDs[id]; !ok {
				issues = append(issues, cogerrors.NewError(cogerrors.KindReference, fmt.Sprintf("entry point %q does not exist", id)).WithPath("execution.entry_points"))
			}
		}
		for _, id := range doc.Execution.ExitPoints {
			if _, ok := nodeIDs[id]; !ok {
				issues = append(issues, cogerrors.NewError(cogerrors.KindReference, fmt.Sprintf("exit point %q does not exist", id)).WithPath("execution.exit_points"))
			}
		}
	}

	return issues
}

// structuralPhase is phase 3: cycle detection over the causal subgraph,
// formula-expression safety, activation-condition operator validity
// (spec §4.2 phase 3).
func (v *Validator) structuralPhase(doc *domain.Document) []cogerrors.Issue {
	var issues []cogerrors.Issue

	for _, cycle := range findCycles(doc) {
		issues = append(issues, cogerrors.NewError(cogerrors.KindCycle, fmt.Sprintf("cycle detected: %v", cycle)))
	}

	for _, n := range doc.Nodes {
		if n.Type != domain.NodeFormula {
			continue
		}
		expr, ok := n.Param("expression")
		if !ok {
			expr, ok = n.Param("formula")
		}
		if !ok {
			issues = append(issues, cogerrors.NewError(cogerrors.KindLogic, "formula node requires parameters.expression").WithNode(n.ID))
			continue
		}
		src, ok := expr.(string)
		if !ok {
			issues = append(issues, cogerrors.NewError(cogerrors.KindLogic, "formula expression must be a string").WithNode(n.ID))
			continue
		}
		if err := expreval.CheckSafety(src); err != nil {
			issues = append(issues, cogerrors.NewError(cogerrors.KindLogic, err.Error()).WithNode(n.ID))
		}
	}

	for _, r := range doc.Relations {
		for _, cond := range r.ActivationConditions {
			if !cond.Operator.IsValid() {
				issues = append(issues, cogerrors.NewError(cogerrors.KindLogic, fmt.Sprintf("activation condition operator %q is not recognized", cond.Operator)).WithRelation(r.ID))
			}
		}
	}

	return issues
}

// warningsPhase is phase 4: non-fatal advisories (spec §4.2 phase 4).
func (v *Validator) warningsPhase(doc *domain.Document) []cogerrors.Issue {
	var issues []cogerrors.Issue

	for _, n := range doc.Nodes {
		if n.Data.Confidence != nil && *n.Data.Confidence < 0.3 {
			issues = append(issues, cogerrors.NewWarning(cogerrors.KindLogic, "node confidence below 0.3").WithNode(n.ID))
		}
	}

	incident := make(map[string]bool, len(doc.Nodes))
	adjacency := make(map[string][]string)
	for _, r := range doc.Relations {
		incident[r.Source] = true
		incident[r.Target] = true
		adjacency[r.Source] = append(adjacency[r.Source], r.Target)
	}
	for _, n := range doc.Nodes {
		if !incident[n.ID] {
			issues = append(issues, cogerrors.NewWarning(cogerrors.KindLogic, "node has no incident relations").WithNode(n.ID))
		}
	}

	if longestPath(adjacency) > 10 {
		issues = append(issues, cogerrors.NewWarning(cogerrors.KindLogic, "graph contains a simple path longer than 10 nodes"))
	}

	return issues
}

// findCycles runs DFS with a recursion stack over the {causes, triggers,
// depends_on} subgraph; each back edge yields the recursion-path slice from
// the target back to the current node as the reported cycle (spec §4.2
// "Cycle detection").
func findCycles(doc *domain.Document) [][]string {
	adjacency := make(map[string][]string)
	for _, r := range doc.Relations {
		if !causalTypes[r.Type] {
			continue
		}
		adjacency[r.Source] = append(adjacency[r.Source], r.Target)
	}

	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var stack []string
	var cycles [][]string

	var dfs func(id string)
	dfs = func(id string) {
		visited[id] = true
		onStack[id] = true
		stack = append(stack, id)

		for _, next := range adjacency[id] {
			if !visited[next] {
				dfs(next)
			} else if onStack[next] {
				for i, n := range stack {
					if n == next {
						cycle := append([]string{}, stack[i:]...)
						cycle = append(cycle, next)
						cycles = append(cycles, cycle)
						break
					}
				}
			}
		}

		stack = stack[:len(stack)-1]
		onStack[id] = false
	}

	for _, n := range doc.Nodes {
		if !visited[n.ID] {
			dfs(n.ID)
		}
	}

	return cycles
}

// longestPath returns the length (in nodes) of the longest simple directed
// path in adjacency, used for the §4.2 phase-4 path-length warning. Bounded
// DFS; acceptable for document-scale graphs.
func longestPath(adjacency map[string][]string) int {
	memo := make(map[string]int)
	visiting := make(map[string]bool)

	var depth func(id string) int
	depth = func(id string) int {
		if v, ok := memo[id]; ok {
			return v
		}
		if visiting[id] {
			return 1
		}
		visiting[id] = true
		best := 1
		for _, next := range adjacency[id] {
			if d := depth(next) + 1; d > best {
				best = d
			}
		}
		visiting[id] = false
		memo[id] = best
		return best
	}

	longest := 0
	for id := range adjacency {
		if d := depth(id); d > longest {
			longest = d
		}
	}
	return longest
}
