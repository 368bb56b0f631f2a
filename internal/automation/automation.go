package automation

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"trade-automation-bot-go/internal/models"
)

// Entry is one configured automation: a trigger gated by conditions driving
// a list of actions.
type Entry struct {
	Name       string
	Trigger    TriggerEvent
	Conditions []Condition
	Actions    []Action
}

// Automation runs every configured entry until its trigger stops or the
// context ends.
type Automation struct {
	logger  *zap.Logger
	db      *gorm.DB
	entries []*Entry

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewAutomation creates the automation engine. db may be nil to disable
// execution logging.
func NewAutomation(entries []*Entry, db *gorm.DB, logger *zap.Logger) *Automation {
	return &Automation{
		logger:  logger.Named("automation"),
		db:      db,
		entries: entries,
	}
}

// Start launches one execution loop per entry.
func (a *Automation) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	for _, entry := range a.entries {
		a.wg.Add(1)
		go a.runEntry(ctx, entry)
	}
	a.logger.Info("Automation started", zap.Int("entries", len(a.entries)))
}

// Stop stops every trigger and waits for the execution loops to end.
func (a *Automation) Stop() {
	for _, entry := range a.entries {
		entry.Trigger.Stop()
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	a.logger.Info("Automation stopped")
}

func (a *Automation) runEntry(ctx context.Context, entry *Entry) {
	defer a.wg.Done()
	logger := a.logger.With(zap.String("automation", entry.Name))
	for {
		details, err := entry.Trigger.NextExecution(ctx)
		if err != nil {
			if errors.Is(err, ErrAutomationStopped) {
				logger.Debug("Automation entry stopped")
			} else {
				logger.Error("Automation trigger failed", zap.Error(err))
			}
			return
		}
		logger.Info("Automation triggered", zap.String("description", details.Description))
		if !a.conditionsMet(entry, details, logger) {
			continue
		}
		a.runActions(ctx, entry, details, logger)
		a.recordExecution(entry, details, logger)
	}
}

// conditionsMet evaluates the entry's conditions in order, short-circuiting
// on the first one that does not hold or fails.
func (a *Automation) conditionsMet(entry *Entry, details *ExecutionDetails, logger *zap.Logger) bool {
	for _, condition := range entry.Conditions {
		met, err := condition.Process(details)
		if err != nil {
			logger.Error("Condition evaluation failed",
				zap.String("condition", condition.Name()), zap.Error(err))
			return false
		}
		if !met {
			logger.Debug("Condition not met, skipping actions",
				zap.String("condition", condition.Name()))
			return false
		}
		condition.UpdateExecutionDetails("", details)
	}
	return true
}

// runActions runs every action of the entry. A failing action is logged and
// does not prevent the remaining actions from running.
func (a *Automation) runActions(ctx context.Context, entry *Entry, details *ExecutionDetails, logger *zap.Logger) {
	for _, action := range entry.Actions {
		if err := action.Process(ctx, details); err != nil {
			logger.Error("Action failed",
				zap.String("action", action.Name()), zap.Error(err))
			continue
		}
		action.UpdateExecutionDetails("", details)
	}
}

func (a *Automation) recordExecution(entry *Entry, details *ExecutionDetails, logger *zap.Logger) {
	if a.db == nil {
		return
	}
	record := &models.ExecutionLog{
		AutomationName: entry.Name,
		TriggerName:    entry.Trigger.Name(),
		Description:    details.Description,
		Timestamp:      details.Timestamp,
	}
	if err := a.db.Create(record).Error; err != nil {
		logger.Error("Failed to record automation execution", zap.Error(err))
	}
}
