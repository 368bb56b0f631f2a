package trading

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"trade-automation-bot-go/internal/exchange"
)

// StopWatcher watches a set of stop conditions against one exchange manager
// and fires the stop callback at most once, on the first condition met.
//
// Holding conditions are checked synchronously at startup and then on every
// balance update. Volatility conditions are fed through OnNewPrice by the
// caller owning the price feed.
type StopWatcher struct {
	logger  *zap.Logger
	manager *exchange.Manager
	onStop  func(StopCondition)

	holdingStopConditions    []*HoldingStopCondition
	volatilityStopConditions []*VolatilityStopCondition

	mu              sync.Mutex
	triggered       bool
	stopped         bool
	balanceConsumer exchange.ConsumerHandle
}

// NewStopWatcher creates a stop watcher. onStop may be nil.
func NewStopWatcher(
	holdingStopConditions []*HoldingStopCondition,
	volatilityStopConditions []*VolatilityStopCondition,
	manager *exchange.Manager,
	onStop func(StopCondition),
	logger *zap.Logger,
) *StopWatcher {
	return &StopWatcher{
		logger:                   logger.Named("stop-watcher"),
		manager:                  manager,
		onStop:                   onStop,
		holdingStopConditions:    holdingStopConditions,
		volatilityStopConditions: volatilityStopConditions,
	}
}

// Start checks holding conditions against the current account state and
// subscribes to balance updates when none is already met. A condition met at
// initialization fires the stop callback and returns an ErrStopTriggered
// error without subscribing to anything.
func (w *StopWatcher) Start() error {
	w.mu.Lock()
	w.triggered = false
	w.stopped = false
	w.mu.Unlock()

	if len(w.holdingStopConditions) > 0 {
		for _, condition := range w.holdingStopConditions {
			if condition.IsMet(w.manager) {
				w.fire(condition)
				return fmt.Errorf("%s is met at initialization: %w", condition, ErrStopTriggered)
			}
		}
		w.mu.Lock()
		w.balanceConsumer = w.manager.BalanceChannel().NewConsumer(w.onBalanceUpdate)
		w.mu.Unlock()
	}
	w.logger.Info("Stop watcher started",
		zap.Int("holding_conditions", len(w.holdingStopConditions)),
		zap.Int("volatility_conditions", len(w.volatilityStopConditions)),
	)
	return nil
}

// ShouldSubscribeToPriceUpdates reports whether any volatility condition
// watches the given symbol.
func (w *StopWatcher) ShouldSubscribeToPriceUpdates(symbol string) bool {
	for _, condition := range w.volatilityStopConditions {
		if condition.Symbol == symbol {
			return true
		}
	}
	return false
}

// OnNewPrice feeds a price tick to the volatility conditions watching the
// symbol. When one becomes met the stop callback fires and an error wrapping
// ErrStopTriggered is returned so the feeding loop can unwind.
func (w *StopWatcher) OnNewPrice(symbol string, price decimal.Decimal) error {
	if w.inactive() {
		return nil
	}
	for _, condition := range w.volatilityStopConditions {
		if condition.Symbol != symbol {
			continue
		}
		condition.OnNewPrice(price)
		if condition.IsMet(w.manager) {
			w.fire(condition)
			return fmt.Errorf("%s is met: %w", condition, ErrStopTriggered)
		}
	}
	return nil
}

func (w *StopWatcher) onBalanceUpdate(exchange.BalanceUpdate) {
	if w.inactive() {
		return
	}
	for _, condition := range w.holdingStopConditions {
		if condition.IsMet(w.manager) {
			w.fire(condition)
			return
		}
	}
}

// Stop deactivates the watcher and unregisters its balance consumer.
func (w *StopWatcher) Stop() {
	w.mu.Lock()
	w.stopped = true
	consumer := w.balanceConsumer
	w.balanceConsumer = nil
	w.mu.Unlock()
	if consumer != nil {
		consumer.Stop()
	}
}

// Triggered reports whether a stop condition has been met since Start.
func (w *StopWatcher) Triggered() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.triggered
}

func (w *StopWatcher) inactive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.triggered || w.stopped
}

// fire latches the triggered state and runs the stop callback, at most once.
func (w *StopWatcher) fire(condition StopCondition) {
	w.mu.Lock()
	if w.triggered {
		w.mu.Unlock()
		return
	}
	w.triggered = true
	w.mu.Unlock()

	w.logger.Info("Stop condition met",
		zap.String("condition", condition.String()),
		zap.String("reason", condition.MatchReason()),
	)
	if w.onStop != nil {
		w.onStop(condition)
	}
}
