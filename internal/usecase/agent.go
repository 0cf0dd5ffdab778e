package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"medrag/internal/domain"
	"medrag/internal/port"
)

const (
	DefaultMaxIterations   = 15
	DefaultMaxToolFailures = 3
)

const formatReminder = "Please follow the format: either 'Thought:', 'Action:' and 'Action Input:' lines, or 'Thought:' and 'Final Answer:'."

// Agent answers questions with a ReAct loop over a closed set of tools.
// It holds no per-question state and is safe for concurrent use.
type Agent struct {
	oracle          port.LLM
	registry        *ToolRegistry
	maxIterations   int
	maxToolFailures int
	logger          *zap.Logger
}

type AgentOption func(*Agent)

// WithMaxIterations caps the number of reasoning cycles per question.
func WithMaxIterations(n int) AgentOption {
	return func(a *Agent) { a.maxIterations = n }
}

// WithMaxToolFailures sets how many tool errors in a row end the run.
func WithMaxToolFailures(n int) AgentOption {
	return func(a *Agent) { a.maxToolFailures = n }
}

func WithLogger(l *zap.Logger) AgentOption {
	return func(a *Agent) { a.logger = l }
}

func NewAgent(oracle port.LLM, registry *ToolRegistry, opts ...AgentOption) (*Agent, error) {
	a := &Agent{
		oracle:          oracle,
		registry:        registry,
		maxIterations:   DefaultMaxIterations,
		maxToolFailures: DefaultMaxToolFailures,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if oracle == nil || registry == nil {
		return nil, domain.Configf("agent needs an oracle and a tool registry")
	}
	if a.maxIterations <= 0 {
		return nil, domain.Configf("max iterations must be positive, got %d", a.maxIterations)
	}
	if a.maxToolFailures <= 0 {
		return nil, domain.Configf("max tool failures must be positive, got %d", a.maxToolFailures)
	}
	return a, nil
}

type promptTool struct {
	Name        string
	Description string
}

type reactData struct {
	Question  string
	Tools     []promptTool
	ToolNames string
	Steps     []domain.Step
}

// Run answers question. A run that reaches a final answer returns a result in
// StateDone and a nil error. Any other outcome returns a result in
// StateFailed, carrying the reason and transcript, together with an error
// wrapping domain.ErrIterationLimit, domain.ErrOracleUnavailable,
// domain.ErrToolExecution or the context's error.
func (a *Agent) Run(ctx context.Context, question string) (*domain.AgentResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.Configf("question is empty")
	}

	result := &domain.AgentResult{
		RunID: uuid.NewString(),
		State: domain.StateThinking,
	}
	logger := a.logger.With(zap.String("run_id", result.RunID))
	logger.Info("agent run started", zap.String("question", question))

	data := reactData{
		Question:  question,
		ToolNames: strings.Join(a.registry.Names(), ", "),
	}
	for _, t := range a.registry.Tools() {
		data.Tools = append(data.Tools, promptTool{Name: t.Name(), Description: t.Description()})
	}

	fail := func(reason domain.FailureReason, err error) (*domain.AgentResult, error) {
		result.State = domain.StateFailed
		result.Reason = reason
		logger.Warn("agent run failed",
			zap.String("reason", string(reason)),
			zap.Int("iterations", result.Iterations),
			zap.Error(err))
		return result, err
	}

	toolFailures := 0
	for i := 0; i < a.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return fail(domain.FailureCanceled, err)
		}
		result.Iterations = i + 1
		result.State = domain.StateThinking

		data.Steps = result.Transcript
		prompt, err := render(reactPrompt, data)
		if err != nil {
			return fail(domain.FailureOracleUnavailable, fmt.Errorf("%w: render prompt: %v", domain.ErrOracleUnavailable, err))
		}

		text, err := a.oracle.Generate(ctx, prompt)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fail(domain.FailureCanceled, ctxErr)
			}
			return fail(domain.FailureOracleUnavailable, fmt.Errorf("%w: %w", domain.ErrOracleUnavailable, err))
		}

		var step domain.Step
		switch d := ParseReasoning(text).(type) {
		case DecisionFinal:
			result.State = domain.StateDone
			result.Output = d.Answer
			logger.Info("agent run finished", zap.Int("iterations", result.Iterations))
			return result, nil

		case DecisionInvalid:
			logger.Debug("unparseable reasoning step", zap.String("problem", d.Problem))
			step = domain.Step{
				Thought:     d.Thought,
				Observation: fmt.Sprintf("Invalid Format: %s. %s", d.Problem, formatReminder),
			}

		case DecisionAction:
			result.State = domain.StateActing
			step = domain.Step{Thought: d.Thought, Action: d.Tool, ActionInput: d.Input}

			tool, ok := a.registry.Lookup(d.Tool)
			if !ok {
				logger.Debug("unknown tool requested", zap.String("tool", d.Tool))
				step.Observation = fmt.Sprintf("%s is not a valid tool, try one of [%s].", d.Tool, data.ToolNames)
				break
			}

			logger.Debug("invoking tool", zap.String("tool", tool.Name()), zap.String("input", d.Input))
			out, err := tool.Answer(ctx, d.Input)
			result.State = domain.StateObserving
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return fail(domain.FailureCanceled, ctxErr)
				}
				toolFailures++
				step.Observation = "Error: " + err.Error()
				result.Transcript = append(result.Transcript, step)
				if toolFailures >= a.maxToolFailures {
					if !errors.Is(err, domain.ErrToolExecution) {
						err = &domain.ToolExecutionError{ToolName: tool.Name(), Err: err}
					}
					return fail(domain.FailureToolFailures, fmt.Errorf("%d consecutive tool failures: %w", toolFailures, err))
				}
				continue
			}
			toolFailures = 0
			step.Observation = out
		}

		result.Transcript = append(result.Transcript, step)
	}

	return fail(domain.FailureIterationLimit,
		fmt.Errorf("%w: no final answer after %d iterations", domain.ErrIterationLimit, a.maxIterations))
}
