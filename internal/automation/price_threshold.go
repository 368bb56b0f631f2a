package automation

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"trade-automation-bot-go/internal/exchange"
)

// PriceThreshold triggers when the watched symbol's price crosses a target
// value between two consecutive observations, in either direction. The very
// first observation never triggers.
type PriceThreshold struct {
	channelTriggerEvent

	targetPrice decimal.Decimal

	pmu       sync.Mutex
	lastPrice *decimal.Decimal
}

var _ TriggerEvent = (*PriceThreshold)(nil)

// NewPriceThreshold creates an unconfigured price threshold trigger.
func NewPriceThreshold(registry *exchange.Registry, logger *zap.Logger) *PriceThreshold {
	trigger := &PriceThreshold{}
	trigger.init("price_threshold", registry, logger, trigger)
	return trigger
}

func (t *PriceThreshold) Description() string {
	return "Triggers when the price of the watched symbol crosses the target price."
}

// ApplyConfig configures the watched symbol and the target price, and resets
// the crossing memory.
func (t *PriceThreshold) ApplyConfig(config StepConfig) error {
	t.applyChannelTriggerConfig(config)
	t.targetPrice = config.DecimalValue(KeyTargetPrice)
	if t.symbol == "" || t.targetPrice.IsZero() {
		return NewInvalidConfigError(t.Name(), "symbol and target price must be set")
	}
	t.pmu.Lock()
	t.lastPrice = nil
	t.pmu.Unlock()
	return nil
}

func (t *PriceThreshold) registerConsumers(manager *exchange.Manager) ([]exchange.ConsumerHandle, error) {
	return []exchange.ConsumerHandle{
		manager.PriceChannel().NewConsumer(t.onMarkPrice),
	}, nil
}

func (t *PriceThreshold) checkInitialEvent(context.Context) {
	// crossing needs two observations, nothing to check at registration
}

func (t *PriceThreshold) onMarkPrice(update exchange.PriceUpdate) {
	if t.ShouldStop() || update.Symbol != t.symbol {
		return
	}
	t.pmu.Lock()
	previous := t.lastPrice
	price := update.Price
	t.lastPrice = &price
	t.pmu.Unlock()
	if previous == nil {
		return
	}
	crossedUpward := price.GreaterThanOrEqual(t.targetPrice) && previous.LessThan(t.targetPrice)
	crossedDownward := price.LessThanOrEqual(t.targetPrice) && previous.GreaterThan(t.targetPrice)
	if crossedUpward || crossedDownward {
		reason := fmt.Sprintf("Price crossed %s threshold", t.targetPrice)
		t.logger.Info("Price threshold met",
			zap.String("exchange", update.Exchange), zap.String("reason", reason))
		t.Trigger(reason)
	}
}
