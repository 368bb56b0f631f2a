package automation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TriggerEvent produces the executions driving an automation entry.
type TriggerEvent interface {
	Step
	// NextExecution blocks until the trigger fires and returns the resulting
	// execution details. It returns ErrAutomationStopped when the trigger has
	// been stopped or will never fire again.
	NextExecution(ctx context.Context) (*ExecutionDetails, error)
	// Stop cancels any pending wait and releases the trigger's resources.
	Stop()
	// ClearFuture cancels the pending wait without stopping the trigger.
	ClearFuture()
}

// triggerWaiter is a one-shot rendezvous between the event callback that
// fires the trigger and the execution loop waiting on it. Resolution and
// cancellation are mutually exclusive and happen at most once.
type triggerWaiter struct {
	mu   sync.Mutex
	ch   chan string
	done bool
}

func newTriggerWaiter() *triggerWaiter {
	return &triggerWaiter{ch: make(chan string, 1)}
}

// resolve delivers the event description. It reports false when the waiter
// was already resolved or cancelled.
func (w *triggerWaiter) resolve(description string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return false
	}
	w.done = true
	w.ch <- description
	return true
}

// cancel closes the waiter without delivering an event.
func (w *triggerWaiter) cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return
	}
	w.done = true
	close(w.ch)
}

// baseTriggerEvent implements the waiter lifecycle and the NextExecution
// filtering (single-shot triggers, max trigger frequency) shared by every
// trigger. Concrete triggers supply getNextEvent.
type baseTriggerEvent struct {
	baseStep

	mu         sync.Mutex
	waiter     *triggerWaiter
	shouldStop bool

	triggerOnlyOnce     bool
	maxTriggerFrequency time.Duration

	// getNextEvent blocks until the next raw event and returns its description.
	getNextEvent func(ctx context.Context) (string, error)
}

// armWaiter installs a fresh waiter for the next event.
func (t *baseTriggerEvent) armWaiter() *triggerWaiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.waiter = newTriggerWaiter()
	return t.waiter
}

func (t *baseTriggerEvent) currentWaiter() *triggerWaiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.waiter
}

// Trigger fires the pending waiter with the given event description. Firing
// an already fulfilled waiter is a no-op: the first event of a cycle wins.
func (t *baseTriggerEvent) Trigger(description string) {
	waiter := t.currentWaiter()
	if waiter == nil {
		return
	}
	if !waiter.resolve(description) {
		t.logger.Debug("Trigger already fulfilled, skipping", zap.String("description", description))
	}
}

// ClearFuture cancels the pending waiter, if any.
func (t *baseTriggerEvent) ClearFuture() {
	if waiter := t.currentWaiter(); waiter != nil {
		waiter.cancel()
	}
}

// Stop marks the trigger as stopped and cancels the pending waiter.
func (t *baseTriggerEvent) Stop() {
	t.mu.Lock()
	t.shouldStop = true
	waiter := t.waiter
	t.mu.Unlock()
	if waiter != nil {
		waiter.cancel()
	}
}

// ShouldStop reports whether the trigger has been stopped.
func (t *baseTriggerEvent) ShouldStop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.shouldStop
}

func (t *baseTriggerEvent) resetStop() {
	t.mu.Lock()
	t.shouldStop = false
	t.mu.Unlock()
}

// NextExecution waits for the next event that survives the trigger's
// filters. Events arriving faster than maxTriggerFrequency since the last
// yielded execution are dropped and waited through.
func (t *baseTriggerEvent) NextExecution(ctx context.Context) (*ExecutionDetails, error) {
	for {
		if t.ShouldStop() {
			return nil, ErrAutomationStopped
		}
		if t.triggerOnlyOnce && t.lastExecutionDetails.Timestamp != 0 {
			return nil, ErrAutomationStopped
		}
		description, err := t.getNextEvent(ctx)
		if err != nil {
			return nil, err
		}
		triggerTime := float64(t.clock().UnixNano()) / float64(time.Second)
		sinceLast := triggerTime - t.lastExecutionDetails.Timestamp
		if t.maxTriggerFrequency > 0 && sinceLast <= t.maxTriggerFrequency.Seconds() {
			t.logger.Debug("Dropping trigger event under max frequency",
				zap.String("description", description),
				zap.Float64("since_last_seconds", sinceLast),
			)
			continue
		}
		t.UpdateExecutionDetails(description, nil)
		return t.lastExecutionDetails.Clone(), nil
	}
}

// applyCommonTriggerConfig resets the trigger cycle and reads the filters
// every trigger supports.
func (t *baseTriggerEvent) applyCommonTriggerConfig(config StepConfig) {
	t.ClearFuture()
	t.triggerOnlyOnce = config.BoolValue(KeyTriggerOnlyOnce)
	t.maxTriggerFrequency = time.Duration(config.FloatValue(KeyMaxTriggerFrequency) * float64(time.Second))
	t.lastExecutionDetails.Timestamp = 0
	t.lastExecutionDetails.Description = ""
	t.lastExecutionDetails.Source = nil
	t.resetStop()
}
