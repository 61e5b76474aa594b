package api

import (
	"errors"
	"fmt"
)

type (
	// ToolExecutionError wraps a failure raised by a tool implementation
	ToolExecutionError struct {
		Err    error
		NodeID NodeID
		Tool   ToolName
	}

	// LoopDetectedError names the edge whose traversal count exceeded the
	// per-run ceiling
	LoopDetectedError struct {
		From  NodeID
		To    NodeID
		Limit int
	}

	// ConditionError reports an expression that could not be compiled or
	// evaluated
	ConditionError struct {
		Err        error
		Expression string
		Language   string
	}
)

var (
	ErrInvalidGraph  = errors.New("invalid graph")
	ErrUnknownNode   = errors.New("unknown node")
	ErrToolNotFound  = errors.New("tool not found")
	ErrToolExecution = errors.New("tool execution failed")
	ErrLoopDetected  = errors.New("loop detected")
	ErrCondition     = errors.New("condition evaluation failed")
	ErrGraphNotFound = errors.New("graph not found")
	ErrGraphExists   = errors.New("graph exists")
	ErrRunNotFound   = errors.New("run not found")
	ErrRunExists     = errors.New("run exists")
	ErrRunInProgress = errors.New("run still in progress")
	ErrRunCancelled  = errors.New("run cancelled")
)

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrToolExecution, e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() []error {
	return []error{ErrToolExecution, e.Err}
}

func (e *LoopDetectedError) Error() string {
	return fmt.Sprintf("%s: edge %s -> %s traversed more than %d times",
		ErrLoopDetected, e.From, e.To, e.Limit)
}

func (e *LoopDetectedError) Unwrap() error {
	return ErrLoopDetected
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("%s: %s %q: %v",
		ErrCondition, e.Language, e.Expression, e.Err)
}

func (e *ConditionError) Unwrap() []error {
	return []error{ErrCondition, e.Err}
}
