// Package customnode provides optional evaluators for the custom node type
// (spec §4.5 "Custom", SPEC_FULL §4.7), registered by the caller into a
// Registry whose map is passed to nodeeval.New — the engine itself never
// imports a concrete evaluator.
package customnode

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"cogflow/internal/domain"
)

// ChatCompleter is the narrow seam LLMJudge depends on, satisfied by
// *openai.Client in production and a fake in tests (SPEC_FULL §4.7).
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMJudge scores a predecessor's text output against parameters.criteria
// using a chat-completion model, returning a float in [0,1].
type LLMJudge struct {
	Client  ChatCompleter
	Model   string
	Context context.Context
}

// NewLLMJudge constructs a judge bound to client and model.
func NewLLMJudge(client ChatCompleter, model string) *LLMJudge {
	return &LLMJudge{Client: client, Model: model, Context: context.Background()}
}

// Evaluate implements nodeeval.CustomEvaluator.
func (j *LLMJudge) Evaluate(node *domain.Node, graph *domain.Graph, state map[string]any) (any, error) {
	criteria, _ := node.Param("criteria")
	criteriaStr, _ := criteria.(string)
	if criteriaStr == "" {
		return nil, fmt.Errorf("llm judge node %s requires parameters.criteria", node.ID)
	}

	subject := subjectText(graph, state, node.ID)

	prompt := fmt.Sprintf(
		"Score the following text against this criteria on a scale from 0 to 1. "+
			"Respond with only the number.\n\nCriteria: %s\n\nText: %s",
		criteriaStr, subject,
	)

	resp, err := j.Client.CreateChatCompletion(j.Context, openai.ChatCompletionRequest{
		Model: j.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llm judge request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm judge: empty response")
	}

	score, err := parseScore(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("llm judge: %w", err)
	}
	return score, nil
}

// subjectText joins every predecessor's current value into a single text
// blob for the judge to score, falling back to the node's own value.
func subjectText(graph *domain.Graph, state map[string]any, nodeID string) string {
	predecessors := graph.Reverse[nodeID]
	if len(predecessors) == 0 {
		return fmt.Sprintf("%v", state[nodeID])
	}
	parts := make([]string, 0, len(predecessors))
	for _, pred := range predecessors {
		parts = append(parts, fmt.Sprintf("%v", state[pred]))
	}
	return strings.Join(parts, "\n")
}

func parseScore(content string) (float64, error) {
	trimmed := strings.TrimSpace(content)
	score, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("response %q is not a number", trimmed)
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}
