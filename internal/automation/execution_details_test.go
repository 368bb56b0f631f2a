package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestExecutionDetails_InitialExecutionDetails(t *testing.T) {
	trigger := &ExecutionDetails{Timestamp: 1, Description: "trigger fired"}
	condition := &ExecutionDetails{Timestamp: 2, Source: trigger}
	action := &ExecutionDetails{Timestamp: 3, Source: condition}

	assert.Same(t, trigger, action.InitialExecutionDetails())
	assert.Same(t, trigger, condition.InitialExecutionDetails())
	assert.Same(t, trigger, trigger.InitialExecutionDetails())
}

func TestExecutionDetails_CloneIsolatesHistory(t *testing.T) {
	trigger := &ExecutionDetails{Timestamp: 1, Description: "trigger fired"}
	details := &ExecutionDetails{Timestamp: 2, Description: "condition held", Source: trigger}

	clone := details.Clone()
	trigger.Description = "mutated"
	details.Timestamp = 99

	assert.Equal(t, "condition held", clone.Description)
	assert.Equal(t, float64(2), clone.Timestamp)
	assert.Equal(t, "trigger fired", clone.Source.Description)
}

func TestExecutionDetails_CloneNil(t *testing.T) {
	var details *ExecutionDetails
	assert.Nil(t, details.Clone())
}

func TestBaseStep_UpdateExecutionDetailsCopiesSource(t *testing.T) {
	step := newBaseStep("test_step", zap.NewNop())
	step.clock = fixedClock(1_700_000_000)
	source := &ExecutionDetails{Timestamp: 1, Description: "origin"}

	step.UpdateExecutionDetails("ran", source)
	source.Description = "mutated"

	details := step.LastExecutionDetails()
	assert.Equal(t, "ran", details.Description)
	assert.Equal(t, float64(1_700_000_000), details.Timestamp)
	assert.Equal(t, "origin", details.Source.Description)
}
