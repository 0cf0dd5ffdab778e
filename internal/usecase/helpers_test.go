package usecase

import (
	"context"
	"strings"
	"sync"

	"medrag/internal/domain"
)

// scriptedLLM replays responses in order; the last one repeats.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

func (s *scriptedLLM) Generate(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	i := len(s.prompts) - 1
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i], nil
}

func (s *scriptedLLM) ModelName() string { return "scripted" }

func (s *scriptedLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func (s *scriptedLLM) prompt(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompts[i]
}

// funcLLM adapts a function to port.LLM.
type funcLLM func(ctx context.Context, prompt string) (string, error)

func (f funcLLM) Generate(ctx context.Context, prompt string) (string, error) { return f(ctx, prompt) }
func (f funcLLM) ModelName() string                                          { return "func" }

type stubSearcher struct {
	results []domain.ScoredChunk
	err     error
	queries []string
	mu      sync.Mutex
}

func (s *stubSearcher) Query(_ context.Context, text string, k int) ([]domain.ScoredChunk, error) {
	s.mu.Lock()
	s.queries = append(s.queries, text)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if k > len(s.results) {
		k = len(s.results)
	}
	return s.results[:k], nil
}

type stubTool struct {
	name   string
	answer func(input string) (string, error)
	mu     sync.Mutex
	inputs []string
}

func (t *stubTool) Name() string        { return t.name }
func (t *stubTool) Description() string { return "stub tool " + t.name }

func (t *stubTool) Answer(_ context.Context, input string) (string, error) {
	t.mu.Lock()
	t.inputs = append(t.inputs, input)
	t.mu.Unlock()
	return t.answer(input)
}

func action(tool, input string) string {
	return "Thought: I should look this up.\nAction: " + tool + "\nAction Input: " + input
}

func final(answer string) string {
	return "Thought: I now know the final answer\nFinal Answer: " + answer
}

// lastObservation extracts the newest observation from the scratchpad of a
// ReAct prompt, ignoring the format description above it.
func lastObservation(prompt string) (string, bool) {
	if b := strings.LastIndex(prompt, "Begin!"); b >= 0 {
		prompt = prompt[b:]
	}
	i := strings.LastIndex(prompt, "Observation: ")
	if i < 0 {
		return "", false
	}
	obs := strings.TrimSpace(prompt[i+len("Observation: "):])
	obs = strings.TrimSuffix(obs, "Thought:")
	return strings.TrimSpace(obs), true
}
