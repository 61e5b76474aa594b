package api_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/waypoint/pkg/api"
)

func TestToolExecutionError(t *testing.T) {
	cause := errors.New("disk full")
	err := error(&api.ToolExecutionError{
		Tool: "store", NodeID: "persist", Err: cause,
	})

	assert.ErrorIs(t, err, api.ErrToolExecution)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "tool execution failed: store: disk full", err.Error())
}

func TestLoopDetectedError(t *testing.T) {
	err := error(&api.LoopDetectedError{From: "a", To: "b", Limit: 100})

	assert.ErrorIs(t, err, api.ErrLoopDetected)
	assert.Equal(t,
		"loop detected: edge a -> b traversed more than 100 times",
		err.Error(),
	)

	var loopErr *api.LoopDetectedError
	assert.True(t, errors.As(err, &loopErr))
	assert.Equal(t, api.NodeID("b"), loopErr.To)
}

func TestConditionError(t *testing.T) {
	cause := errors.New("unknown variable")
	err := error(&api.ConditionError{
		Expression: "x > 1", Language: "hcl", Err: cause,
	})

	assert.ErrorIs(t, err, api.ErrCondition)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `hcl "x > 1"`)
}
