package automation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"trade-automation-bot-go/internal/exchange"
	"trade-automation-bot-go/internal/trading"
)

// balanceInitTimeout bounds the initial balance wait: exchanges normally push
// their first portfolio snapshot within seconds of connecting.
const balanceInitTimeout = 3 * time.Minute

// HoldingThreshold triggers when the total holdings of an asset cross the
// configured amount, checked at registration and on every balance update.
type HoldingThreshold struct {
	channelTriggerEvent

	condition *trading.HoldingStopCondition
}

var _ TriggerEvent = (*HoldingThreshold)(nil)

// NewHoldingThreshold creates an unconfigured holding threshold trigger.
func NewHoldingThreshold(registry *exchange.Registry, logger *zap.Logger) *HoldingThreshold {
	trigger := &HoldingThreshold{}
	trigger.init("holding_threshold", registry, logger, trigger)
	return trigger
}

func (t *HoldingThreshold) Description() string {
	return "Triggers when the holdings of the watched asset get under or above the given amount."
}

// ApplyConfig configures the watched asset, the threshold amount and the
// crossing direction. All three targeting values are required.
func (t *HoldingThreshold) ApplyConfig(config StepConfig) error {
	t.applyChannelTriggerConfig(config)
	assetName := config.StringValue(KeyAssetName)
	amount := config.DecimalValue(KeyAmount)
	if t.exchangeName == "" || assetName == "" || amount.IsZero() {
		return NewInvalidConfigError(t.Name(), "exchange, asset name and amount must be set")
	}
	t.condition = trading.NewHoldingStopCondition(assetName, amount, config.BoolValue(KeyStopOnInferior))
	return nil
}

func (t *HoldingThreshold) registerConsumers(manager *exchange.Manager) ([]exchange.ConsumerHandle, error) {
	return []exchange.ConsumerHandle{
		manager.BalanceChannel().NewConsumer(func(exchange.BalanceUpdate) {
			if t.ShouldStop() {
				return
			}
			t.performCheck(manager)
		}),
	}, nil
}

// checkInitialEvent evaluates the threshold against the current holdings so
// an already crossed threshold fires without waiting for a balance update.
func (t *HoldingThreshold) checkInitialEvent(ctx context.Context) {
	for _, manager := range t.resolveTargetManagers() {
		if err := manager.WaitForBalanceInit(ctx, balanceInitTimeout); err != nil {
			t.logger.Error("Initialization of balance took too long, skipping initial check",
				zap.String("exchange", manager.Name()), zap.Error(err))
			continue
		}
		t.performCheck(manager)
	}
}

func (t *HoldingThreshold) performCheck(manager *exchange.Manager) {
	if t.condition.IsMet(manager) {
		reason := t.condition.MatchReason()
		t.logger.Info("Holding threshold met",
			zap.String("exchange", manager.Name()), zap.String("reason", reason))
		t.Trigger(reason)
	}
}
