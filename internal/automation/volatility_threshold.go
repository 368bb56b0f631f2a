package automation

import (
	"context"

	"go.uber.org/zap"

	"trade-automation-bot-go/internal/exchange"
	"trade-automation-bot-go/internal/trading"
)

// VolatilityThreshold triggers when the price of the watched symbol moves
// away from its trailing average by more than the configured percentage.
type VolatilityThreshold struct {
	channelTriggerEvent

	checker *trading.VolatilityThresholdChecker
}

var _ TriggerEvent = (*VolatilityThreshold)(nil)

// NewVolatilityThreshold creates an unconfigured volatility threshold trigger.
func NewVolatilityThreshold(registry *exchange.Registry, logger *zap.Logger) *VolatilityThreshold {
	trigger := &VolatilityThreshold{}
	trigger.init("volatility_threshold", registry, logger, trigger)
	return trigger
}

func (t *VolatilityThreshold) Description() string {
	return "Triggers when the price of the watched symbol gets above or under the average price " +
		"of the given period by more than the allowed percentage change."
}

// ApplyConfig configures the watched symbol, the averaging period and the
// allowed percentage changes. A zero percentage disables that side.
func (t *VolatilityThreshold) ApplyConfig(config StepConfig) error {
	t.applyChannelTriggerConfig(config)
	t.checker = trading.NewVolatilityThresholdChecker(
		t.symbol,
		config.FloatValue(KeyPeriodInMinutes),
		config.DecimalValue(KeyMaxAllowedPositivePercentageChange),
		config.DecimalValue(KeyMaxAllowedNegativePercentageChange),
	)
	if err := t.checker.ValidateConfig(); err != nil {
		return NewInvalidConfigError(t.Name(), err.Error())
	}
	return nil
}

// Checker exposes the underlying threshold checker.
func (t *VolatilityThreshold) Checker() *trading.VolatilityThresholdChecker {
	return t.checker
}

func (t *VolatilityThreshold) registerConsumers(manager *exchange.Manager) ([]exchange.ConsumerHandle, error) {
	return []exchange.ConsumerHandle{
		manager.PriceChannel().NewConsumer(t.onMarkPrice),
	}, nil
}

func (t *VolatilityThreshold) checkInitialEvent(context.Context) {
	// volatility needs accumulated history, nothing to check at registration
}

func (t *VolatilityThreshold) onMarkPrice(update exchange.PriceUpdate) {
	if t.ShouldStop() || update.Symbol != t.symbol {
		return
	}
	met, reason := t.checker.OnNewPrice(update.Price)
	if met {
		t.logger.Info("Volatility threshold met",
			zap.String("exchange", update.Exchange), zap.String("reason", reason))
		t.Trigger(reason)
	}
}
