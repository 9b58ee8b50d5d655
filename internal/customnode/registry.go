package customnode

import "cogflow/internal/nodeeval"

// Registry builds the `custom_type -> evaluator` table passed to the
// scheduler (spec §4.5 "Custom"; §9 "there is no global registry" — every
// caller constructs its own).
type Registry struct {
	evaluators map[string]nodeeval.CustomEvaluator
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{evaluators: make(map[string]nodeeval.CustomEvaluator)}
}

// Register associates customType with evaluator, returning the registry for
// chaining.
func (r *Registry) Register(customType string, evaluator nodeeval.CustomEvaluator) *Registry {
	r.evaluators[customType] = evaluator
	return r
}

// Evaluators returns the underlying map, ready to hand to nodeeval.New.
func (r *Registry) Evaluators() map[string]nodeeval.CustomEvaluator {
	return r.evaluators
}
