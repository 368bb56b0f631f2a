package automation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"trade-automation-bot-go/internal/models"
)

// queueTrigger yields a fixed list of events, then stops.
type queueTrigger struct {
	baseTriggerEvent
}

func newQueueTrigger(events ...string) *queueTrigger {
	trigger := &queueTrigger{}
	trigger.baseStep = newBaseStep("queue_trigger", zap.NewNop())
	next := 0
	trigger.getNextEvent = func(context.Context) (string, error) {
		if next >= len(events) {
			return "", ErrAutomationStopped
		}
		event := events[next]
		next++
		return event, nil
	}
	return trigger
}

func (t *queueTrigger) Description() string          { return "yields queued events" }
func (t *queueTrigger) ApplyConfig(StepConfig) error { return nil }

type stubCondition struct {
	baseStep
	met   bool
	err   error
	calls int
}

func newStubCondition(met bool, err error) *stubCondition {
	return &stubCondition{baseStep: newBaseStep("stub_condition", zap.NewNop()), met: met, err: err}
}

func (c *stubCondition) Description() string          { return "stub condition" }
func (c *stubCondition) ApplyConfig(StepConfig) error { return nil }
func (c *stubCondition) Process(*ExecutionDetails) (bool, error) {
	c.calls++
	return c.met, c.err
}

type stubAction struct {
	baseStep
	err     error
	details []*ExecutionDetails
}

func newStubAction(err error) *stubAction {
	return &stubAction{baseStep: newBaseStep("stub_action", zap.NewNop()), err: err}
}

func (a *stubAction) Description() string          { return "stub action" }
func (a *stubAction) ApplyConfig(StepConfig) error { return nil }
func (a *stubAction) Process(_ context.Context, details *ExecutionDetails) error {
	a.details = append(a.details, details)
	return a.err
}

func setupAutomationDB(t *testing.T) *gorm.DB {
	// Use a new, non-shared in-memory database for each test to ensure isolation.
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.ExecutionLog{}))
	return db
}

func runEntrySync(a *Automation, entry *Entry) {
	a.wg.Add(1)
	a.runEntry(context.Background(), entry)
}

func TestAutomation_RunsActionsOnTrigger(t *testing.T) {
	// Arrange
	db := setupAutomationDB(t)
	action := newStubAction(nil)
	entry := &Entry{
		Name:    "stop on volatility",
		Trigger: newQueueTrigger("threshold crossed"),
		Actions: []Action{action},
	}
	a := NewAutomation([]*Entry{entry}, db, zap.NewNop())

	// Act
	runEntrySync(a, entry)

	// Assert: the action ran with the trigger's details and a log was written
	assert.Len(t, action.details, 1)
	assert.Equal(t, "threshold crossed", action.details[0].Description)
	assert.NotZero(t, action.LastExecutionDetails().Timestamp)

	var logs []models.ExecutionLog
	assert.NoError(t, db.Find(&logs).Error)
	assert.Len(t, logs, 1)
	assert.Equal(t, "stop on volatility", logs[0].AutomationName)
	assert.Equal(t, "threshold crossed", logs[0].Description)
}

func TestAutomation_ConditionGatesActions(t *testing.T) {
	// Arrange: a condition that never holds
	condition := newStubCondition(false, nil)
	action := newStubAction(nil)
	entry := &Entry{
		Name:       "gated",
		Trigger:    newQueueTrigger("first", "second"),
		Conditions: []Condition{condition},
		Actions:    []Action{action},
	}
	a := NewAutomation([]*Entry{entry}, nil, zap.NewNop())

	// Act
	runEntrySync(a, entry)

	// Assert: both events were evaluated, no action ever ran
	assert.Equal(t, 2, condition.calls)
	assert.Empty(t, action.details)
	assert.Zero(t, action.LastExecutionDetails().Timestamp)
}

func TestAutomation_ConditionErrorSkipsActions(t *testing.T) {
	condition := newStubCondition(true, errors.New("evaluation failed"))
	action := newStubAction(nil)
	entry := &Entry{
		Name:       "failing condition",
		Trigger:    newQueueTrigger("event"),
		Conditions: []Condition{condition},
		Actions:    []Action{action},
	}
	a := NewAutomation([]*Entry{entry}, nil, zap.NewNop())

	runEntrySync(a, entry)

	assert.Equal(t, 1, condition.calls)
	assert.Empty(t, action.details)
}

func TestAutomation_MetConditionRecordsExecution(t *testing.T) {
	condition := newStubCondition(true, nil)
	action := newStubAction(nil)
	entry := &Entry{
		Name:       "passing condition",
		Trigger:    newQueueTrigger("event"),
		Conditions: []Condition{condition},
		Actions:    []Action{action},
	}
	a := NewAutomation([]*Entry{entry}, nil, zap.NewNop())

	runEntrySync(a, entry)

	assert.Len(t, action.details, 1)
	assert.NotZero(t, condition.LastExecutionDetails().Timestamp)
	assert.Equal(t, "event", condition.LastExecutionDetails().Source.Description)
}

func TestAutomation_ActionFailureDoesNotStopOtherActions(t *testing.T) {
	// Arrange: the first action fails, the second must still run
	failing := newStubAction(errors.New("action failed"))
	succeeding := newStubAction(nil)
	entry := &Entry{
		Name:    "resilient",
		Trigger: newQueueTrigger("event"),
		Actions: []Action{failing, succeeding},
	}
	a := NewAutomation([]*Entry{entry}, nil, zap.NewNop())

	// Act
	runEntrySync(a, entry)

	// Assert
	assert.Len(t, failing.details, 1)
	assert.Len(t, succeeding.details, 1)
	assert.Zero(t, failing.LastExecutionDetails().Timestamp)
	assert.NotZero(t, succeeding.LastExecutionDetails().Timestamp)
}

func TestAutomation_StartAndStop(t *testing.T) {
	entry := &Entry{
		Name:    "lifecycle",
		Trigger: newQueueTrigger(),
	}
	a := NewAutomation([]*Entry{entry}, nil, zap.NewNop())

	a.Start(context.Background())
	a.Stop()
}
