package customnode

import (
	"context"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cogflow/internal/domain"
)

type fakeChatCompleter struct {
	content string
	err     error
}

func (f *fakeChatCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.content}}},
	}, nil
}

func judgeNode(criteria string) domain.Node {
	return domain.Node{
		ID:   "judge",
		Type: domain.NodeCustom,
		Data: domain.NodeData{Parameters: map[string]any{"criteria": criteria}},
	}
}

func TestLLMJudgeScoresPredecessorText(t *testing.T) {
	node := judgeNode("is this polite?")
	g := domain.NewGraph()
	g.SetNodes([]domain.Node{{ID: "reply"}, node})
	g.Forward = map[string][]string{"reply": {"judge"}, "judge": nil}
	g.Reverse = map[string][]string{"judge": {"reply"}, "reply": nil}

	judge := NewLLMJudge(&fakeChatCompleter{content: "0.8"}, "gpt-4o-mini")
	got, err := judge.Evaluate(&node, g, map[string]any{"reply": "thank you so much"})
	require.NoError(t, err)
	assert.Equal(t, 0.8, got)
}

func TestLLMJudgeClampsOutOfRangeScores(t *testing.T) {
	node := judgeNode("criteria")
	g := domain.NewGraph()
	g.SetNodes([]domain.Node{node})
	g.Reverse = map[string][]string{"judge": nil}

	judge := NewLLMJudge(&fakeChatCompleter{content: "1.5"}, "gpt-4o-mini")
	got, err := judge.Evaluate(&node, g, map[string]any{"judge": "x"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestLLMJudgeRequiresCriteria(t *testing.T) {
	node := domain.Node{ID: "judge", Type: domain.NodeCustom}
	g := domain.NewGraph()
	judge := NewLLMJudge(&fakeChatCompleter{content: "0.5"}, "gpt-4o-mini")
	_, err := judge.Evaluate(&node, g, map[string]any{})
	assert.Error(t, err)
}

func TestLLMJudgeRejectsNonNumericResponse(t *testing.T) {
	node := judgeNode("criteria")
	g := domain.NewGraph()
	judge := NewLLMJudge(&fakeChatCompleter{content: "not a number"}, "gpt-4o-mini")
	_, err := judge.Evaluate(&node, g, map[string]any{})
	assert.Error(t, err)
}

func TestLLMJudgePropagatesClientError(t *testing.T) {
	node := judgeNode("criteria")
	g := domain.NewGraph()
	judge := NewLLMJudge(&fakeChatCompleter{err: assertErr{}}, "gpt-4o-mini")
	_, err := judge.Evaluate(&node, g, map[string]any{})
	assert.Error(t, err)
}

type assertErr struct{}

func (assertErr) Error() string { return "rate limited" }

func TestRegistryEvaluatorsReturnsRegisteredTypes(t *testing.T) {
	judge := NewLLMJudge(&fakeChatCompleter{}, "gpt-4o-mini")
	reg := NewRegistry().Register("llm_judge", judge)
	evals := reg.Evaluators()
	assert.Same(t, judge, evals["llm_judge"])
}
