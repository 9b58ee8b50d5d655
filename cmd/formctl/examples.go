package main

import "cogflow/internal/domain"

// example pairs a sample document with the filename stem it is written to
// (spec §8 "Example scenarios").
type example struct {
	Name     string
	Document domain.Document
}

func ptrFloat(f float64) *float64 { return &f }

// builtinExamples returns the sample documents written by `formctl examples`.
func builtinExamples() []example {
	return []example{
		{Name: "weather-decision", Document: weatherDecisionExample()},
		{Name: "resource-allocation", Document: resourceAllocationExample()},
		{Name: "cycle-rejected", Document: cycleRejectedExample()},
		{Name: "formula-sandbox-escape", Document: formulaSandboxEscapeExample()},
	}
}

// weatherDecisionExample models "bring an umbrella if it's raining or the
// forecast says rain is likely" (spec §8, scenario 1).
func weatherDecisionExample() domain.Document {
	doc := domain.Document{
		Metadata: domain.Metadata{
			ID:          "weather-decision",
			Name:        "Weather Decision",
			Description: "Decide whether to bring an umbrella from rain state and forecast confidence.",
			Version:     "1.0.0",
			CreatedAt:   "2026-01-01T00:00:00Z",
			UpdatedAt:   "2026-01-01T00:00:00Z",
			Author:      "cogflow examples",
			Tags:        []string{"weather", "tutorial"},
		},
		Nodes: []domain.Node{
			{ID: "is-raining", Type: domain.NodeEvent, Label: "Is Raining",
				Data: domain.NodeData{Value: false}},
			{ID: "rain-forecast", Type: domain.NodeConcept, Label: "Rain Forecast Confidence",
				Data: domain.NodeData{Value: 0.2, Confidence: ptrFloat(0.9)}},
			{ID: "likely-rain", Type: domain.NodeCondition, Label: "Rain Likely",
				Data: domain.NodeData{Parameters: map[string]any{"logic": "is-raining | rain-forecast"}}},
			// inputs names rain-forecast, not likely-rain: evaluateAction's
			// "transform"/"sum"/"multiply" operations only accept numeric
			// inputs (toFloat has no bool case), so the gating condition's
			// own boolean output can't be summed.
			{ID: "bring-umbrella", Type: domain.NodeAction, Label: "Bring Umbrella",
				Data: domain.NodeData{Parameters: map[string]any{"operation": "transform", "inputs": []any{"rain-forecast"}}}},
		},
		Relations: []domain.Relation{
			{ID: "r1", Type: domain.RelationTriggers, Source: "is-raining", Target: "likely-rain"},
			{ID: "r2", Type: domain.RelationInfluences, Source: "rain-forecast", Target: "likely-rain"},
			{ID: "r3", Type: domain.RelationCauses, Source: "likely-rain", Target: "bring-umbrella"},
		},
	}
	return doc
}

// resourceAllocationExample models summing weighted demand signals into an
// allocation action gated by a budget condition (spec §8, scenario 3).
func resourceAllocationExample() domain.Document {
	doc := domain.Document{
		Metadata: domain.Metadata{
			ID:          "resource-allocation",
			Name:        "Resource Allocation",
			Description: "Allocate budget across demand signals once the funding condition is met.",
			Version:     "1.0.0",
			CreatedAt:   "2026-01-01T00:00:00Z",
			UpdatedAt:   "2026-01-01T00:00:00Z",
			Author:      "cogflow examples",
			Tags:        []string{"allocation", "tutorial"},
		},
		Nodes: []domain.Node{
			{ID: "demand-a", Type: domain.NodeConcept, Label: "Demand A",
				Data: domain.NodeData{Value: 10.0, Weight: ptrFloat(0.6)}},
			{ID: "demand-b", Type: domain.NodeConcept, Label: "Demand B",
				Data: domain.NodeData{Value: 20.0, Weight: ptrFloat(0.4)}},
			// No predecessors feed funding-available, so it carries its
			// truthiness directly in its stored value (spec §4.5 "Condition",
			// "with no predecessors, yield the truthiness of the node's
			// stored value") rather than a logic expression with nothing to
			// substitute.
			{ID: "funding-available", Type: domain.NodeCondition, Label: "Funding Available",
				Data: domain.NodeData{Value: true}},
			{ID: "allocate", Type: domain.NodeAction, Label: "Allocate Budget",
				Data: domain.NodeData{Parameters: map[string]any{"operation": "sum", "inputs": []any{"demand-a", "demand-b"}}}},
		},
		Relations: []domain.Relation{
			{ID: "r1", Type: domain.RelationInfluences, Source: "demand-a", Target: "allocate"},
			{ID: "r2", Type: domain.RelationInfluences, Source: "demand-b", Target: "allocate"},
			// funding-available -> allocate, not the reverse: evaluateAction
			// gates a node on its g.Reverse predecessors, so the condition
			// must point at the action it gates.
			{ID: "r3", Type: domain.RelationCauses, Source: "funding-available", Target: "allocate"},
		},
		Execution: &domain.ExecutionConfig{Mode: domain.ModeAdaptive},
	}
	return doc
}

// cycleRejectedExample is deliberately invalid: a `causes` cycle in the
// subgraph the validator rejects (spec §8, scenario 2; spec §4.2 structural
// phase cycle detection restricted to {causes, triggers, depends_on}).
func cycleRejectedExample() domain.Document {
	doc := domain.Document{
		Metadata: domain.Metadata{
			ID:          "cycle-rejected",
			Name:        "Cycle Rejected",
			Description: "A causal cycle that validation must reject.",
			Version:     "1.0.0",
			CreatedAt:   "2026-01-01T00:00:00Z",
			UpdatedAt:   "2026-01-01T00:00:00Z",
			Author:      "cogflow examples",
			Tags:        []string{"invalid", "tutorial"},
		},
		Nodes: []domain.Node{
			{ID: "a", Type: domain.NodeConcept, Label: "A", Data: domain.NodeData{Value: 0.0}},
			{ID: "b", Type: domain.NodeConcept, Label: "B", Data: domain.NodeData{Value: 0.0}},
			{ID: "c", Type: domain.NodeConcept, Label: "C", Data: domain.NodeData{Value: 0.0}},
		},
		Relations: []domain.Relation{
			{ID: "r1", Type: domain.RelationCauses, Source: "a", Target: "b"},
			{ID: "r2", Type: domain.RelationCauses, Source: "b", Target: "c"},
			{ID: "r3", Type: domain.RelationCauses, Source: "c", Target: "a"},
		},
	}
	return doc
}

// formulaSandboxEscapeExample carries a formula node whose expression tries
// to reach outside the expr-lang sandbox; validation must flag it before
// execution (spec §8, scenario 4; spec §4.1 formula safety checks).
func formulaSandboxEscapeExample() domain.Document {
	doc := domain.Document{
		Metadata: domain.Metadata{
			ID:          "formula-sandbox-escape",
			Name:        "Formula Sandbox Escape",
			Description: "A formula node attempting to call out of the sandbox; validation must reject it.",
			Version:     "1.0.0",
			CreatedAt:   "2026-01-01T00:00:00Z",
			UpdatedAt:   "2026-01-01T00:00:00Z",
			Author:      "cogflow examples",
			Tags:        []string{"invalid", "security", "tutorial"},
		},
		Nodes: []domain.Node{
			{ID: "input", Type: domain.NodeConcept, Label: "Input", Data: domain.NodeData{Value: 1.0}},
			{ID: "unsafe-formula", Type: domain.NodeFormula, Label: "Unsafe Formula",
				Data: domain.NodeData{Parameters: map[string]any{"expression": "exec(\"rm -rf /\")"}}},
		},
		Relations: []domain.Relation{
			{ID: "r1", Type: domain.RelationInfluences, Source: "input", Target: "unsafe-formula"},
		},
	}
	return doc
}
