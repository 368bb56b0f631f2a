package automation

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"trade-automation-bot-go/internal/exchange"
)

// channelConsumerProvider is implemented by concrete channel triggers to hook
// the consumer registration and the initial state check.
type channelConsumerProvider interface {
	// registerConsumers subscribes the trigger to the channels it needs on
	// one exchange manager and returns the consumer handles.
	registerConsumers(manager *exchange.Manager) ([]exchange.ConsumerHandle, error)
	// checkInitialEvent evaluates the trigger against the current state right
	// after the first registration, for triggers that can already be met.
	checkInitialEvent(ctx context.Context)
}

// channelTriggerEvent fires from exchange channel updates. It lazily
// registers its consumers on the first wait and resolves the target exchange
// manager(s) from the configured exchange name and id.
type channelTriggerEvent struct {
	baseTriggerEvent

	registry *exchange.Registry
	provider channelConsumerProvider

	exchangeName string
	exchangeID   string
	symbol       string

	cmu                sync.Mutex
	consumers          []exchange.ConsumerHandle
	registeredConsumer bool
}

// init wires the trigger state and the provider hooks. It must be called by
// the concrete trigger's constructor once the embedding struct is allocated,
// so the bound methods point into it.
func (t *channelTriggerEvent) init(name string, registry *exchange.Registry, logger *zap.Logger, provider channelConsumerProvider) {
	t.baseStep = newBaseStep(name, logger)
	t.registry = registry
	t.provider = provider
	t.getNextEvent = t.awaitNextEvent
}

func (t *channelTriggerEvent) awaitNextEvent(ctx context.Context) (string, error) {
	if t.ShouldStop() {
		return "", ErrAutomationStopped
	}
	waiter := t.armWaiter()

	t.cmu.Lock()
	needsRegistration := !t.registeredConsumer
	t.registeredConsumer = true
	t.cmu.Unlock()
	if needsRegistration {
		if err := t.registerExchangeChannelConsumer(t.exchangeName, t.exchangeID); err != nil {
			return "", err
		}
		t.provider.checkInitialEvent(ctx)
	}

	select {
	case description, ok := <-waiter.ch:
		if !ok {
			// waiter was cancelled: release the consumers unless a Stop
			// call already did
			if !t.ShouldStop() {
				t.Stop()
			}
			return "", ErrAutomationStopped
		}
		return description, nil
	case <-ctx.Done():
		t.Stop()
		return "", ErrAutomationStopped
	}
}

// registerExchangeChannelConsumer resolves the target manager(s) and
// registers the provider's consumers on each.
func (t *channelTriggerEvent) registerExchangeChannelConsumer(exchangeName, exchangeID string) error {
	var manager *exchange.Manager
	var err error
	switch {
	case exchangeID != "" && exchangeName != "":
		manager, err = t.registry.ManagerFromNameAndID(exchangeName, exchangeID)
	case exchangeID != "":
		manager, err = t.registry.ManagerFromID(exchangeID)
	case exchangeName != "":
		managers := t.registry.ManagersFromName(exchangeName)
		if len(managers) != 1 {
			return fmt.Errorf("expected 1 exchange manager for exchange %s, got %d", exchangeName, len(managers))
		}
		manager = managers[0]
	default:
		// no exchange configured: register on every known manager
		for _, id := range t.registry.IDs() {
			if err := t.registerExchangeChannelConsumer("", id); err != nil {
				return err
			}
		}
		return nil
	}
	if err != nil {
		return err
	}

	if t.symbol != "" {
		pairs := manager.TradingPairs()
		if !slices.Contains(pairs, t.symbol) {
			return fmt.Errorf("symbol %s not found on %s, available symbols: %v", t.symbol, manager.Name(), pairs)
		}
	}

	consumers, err := t.provider.registerConsumers(manager)
	if err != nil {
		return err
	}
	t.cmu.Lock()
	t.consumers = append(t.consumers, consumers...)
	t.cmu.Unlock()
	t.logger.Debug("Registered exchange channel consumers",
		zap.String("exchange", manager.Name()), zap.Int("consumers", len(consumers)))
	return nil
}

// Stop cancels the pending wait and unregisters every channel consumer.
func (t *channelTriggerEvent) Stop() {
	t.baseTriggerEvent.Stop()
	t.cmu.Lock()
	consumers := t.consumers
	t.consumers = nil
	t.registeredConsumer = false
	t.cmu.Unlock()
	for _, consumer := range consumers {
		consumer.Stop()
	}
}

// applyChannelTriggerConfig resets the registration state so a config change
// takes effect on the next wait, then reads the exchange targeting keys and
// the common trigger filters.
func (t *channelTriggerEvent) applyChannelTriggerConfig(config StepConfig) {
	t.cmu.Lock()
	consumers := t.consumers
	t.consumers = nil
	t.registeredConsumer = false
	t.cmu.Unlock()
	for _, consumer := range consumers {
		consumer.Stop()
	}
	t.exchangeName = config.StringValue(KeyExchange)
	t.exchangeID = config.StringValue(KeyExchangeID)
	t.symbol = config.StringValue(KeySymbol)
	t.applyCommonTriggerConfig(config)
}

// resolveTargetManagers returns the managers this trigger targets, used by
// initial state checks.
func (t *channelTriggerEvent) resolveTargetManagers() []*exchange.Manager {
	if t.exchangeID != "" {
		if manager, err := t.registry.ManagerFromID(t.exchangeID); err == nil {
			return []*exchange.Manager{manager}
		}
		return nil
	}
	if t.exchangeName != "" {
		return t.registry.ManagersFromName(t.exchangeName)
	}
	return t.registry.Managers()
}
