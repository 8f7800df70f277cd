package pipeline

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnknownPipeline is returned when no pipeline is registered under a name.
	ErrUnknownPipeline = errors.New("unknown pipeline")
	// ErrTimeout is returned when a run exceeds its wall-clock budget.
	ErrTimeout = errors.New("pipeline timed out")
	// ErrInvalidInput is returned when a run's input cannot be decoded into
	// the pipeline's state record.
	ErrInvalidInput = errors.New("invalid pipeline input")
)

// ConfigError reports a malformed pipeline definition. It is raised by New,
// never during a run.
type ConfigError struct {
	Pipeline string
	Message  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("pipeline %s: invalid definition: %s", e.Pipeline, e.Message)
}

// ExecutionFault reports an unexpected failure inside a stage: a panic, a
// returned Go error, or a broken routing contract. It is distinct from the
// business error carried in a state's error field.
type ExecutionFault struct {
	Pipeline string
	Stage    string
	Cause    error
	Stack    []byte
}

func (e *ExecutionFault) Error() string {
	return fmt.Sprintf("pipeline %s: stage %s: %v", e.Pipeline, e.Stage, e.Cause)
}

func (e *ExecutionFault) Unwrap() error {
	return e.Cause
}

// TimeoutError reports a run that did not finish within its budget.
type TimeoutError struct {
	Pipeline string
	Budget   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("pipeline %s timed out after %s", e.Pipeline, e.Budget)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}
