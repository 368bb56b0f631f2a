package automation

import "fmt"

// ExecutionDetails records one step execution: when it ran, why, and the
// execution that caused it. Source chains link an action's execution back
// through conditions to the originating trigger.
type ExecutionDetails struct {
	Timestamp   float64
	Description string
	Source      *ExecutionDetails
}

// InitialExecutionDetails walks the source chain back to the originating
// execution, usually the trigger's.
func (d *ExecutionDetails) InitialExecutionDetails() *ExecutionDetails {
	initial := d
	for initial.Source != nil {
		initial = initial.Source
	}
	return initial
}

// Clone deep-copies the details and its whole source chain so that later
// executions cannot mutate recorded history.
func (d *ExecutionDetails) Clone() *ExecutionDetails {
	if d == nil {
		return nil
	}
	clone := *d
	clone.Source = d.Source.Clone()
	return &clone
}

func (d *ExecutionDetails) String() string {
	if d == nil {
		return "<none>"
	}
	if d.Description != "" {
		return d.Description
	}
	return fmt.Sprintf("execution at %v", d.Timestamp)
}
