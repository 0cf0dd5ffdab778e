package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration indicates invalid static parameters or missing credentials.
	ErrConfiguration = errors.New("configuration error")

	// ErrStorage indicates an I/O failure while persisting an index.
	ErrStorage = errors.New("storage error")

	// ErrNotFound indicates no persisted index exists at a location.
	ErrNotFound = errors.New("index not found")

	// ErrCorruptData indicates a persisted index could not be decoded.
	ErrCorruptData = errors.New("corrupt index data")

	// ErrVersionMismatch indicates a persisted index was built with an
	// incompatible embedder or schema.
	ErrVersionMismatch = errors.New("index version mismatch")

	// ErrToolExecution indicates a single tool invocation failed.
	ErrToolExecution = errors.New("tool execution failed")

	// ErrOracleTimeout indicates a language model call exceeded its deadline.
	ErrOracleTimeout = errors.New("oracle timeout")

	// ErrOracleUnavailable indicates the agent could not reach the language model.
	ErrOracleUnavailable = errors.New("oracle unavailable")

	// ErrIterationLimit indicates the agent hit its iteration cap without a final answer.
	ErrIterationLimit = errors.New("iteration limit reached")
)

// ToolExecutionError wraps the cause of a failed tool invocation.
type ToolExecutionError struct {
	ToolName string
	Err      error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.ToolName, e.Err)
}

func (e *ToolExecutionError) Unwrap() []error {
	return []error{ErrToolExecution, e.Err}
}

// Configf returns an error wrapping ErrConfiguration.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
