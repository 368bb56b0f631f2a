package automation

import (
	"fmt"

	"go.uber.org/zap"

	"trade-automation-bot-go/internal/exchange"
)

// NewTriggerEvent creates a trigger by its configuration name.
func NewTriggerEvent(name string, registry *exchange.Registry, logger *zap.Logger) (TriggerEvent, error) {
	switch name {
	case "volatility_threshold":
		return NewVolatilityThreshold(registry, logger), nil
	case "holding_threshold":
		return NewHoldingThreshold(registry, logger), nil
	case "price_threshold":
		return NewPriceThreshold(registry, logger), nil
	case "profitability_threshold":
		return NewProfitabilityThreshold(registry, logger), nil
	default:
		return nil, fmt.Errorf("unknown trigger event: %s", name)
	}
}

// NewAction creates an action by its configuration name.
func NewAction(name string, controller BotController, logger *zap.Logger) (Action, error) {
	switch name {
	case "stop_strategies_and_pause_trader":
		return NewStopStrategiesAndPauseTrader(controller, logger), nil
	default:
		return nil, fmt.Errorf("unknown action: %s", name)
	}
}
