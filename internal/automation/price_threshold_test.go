package automation

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"trade-automation-bot-go/internal/exchange"
)

func setupPriceThreshold(t *testing.T) (*PriceThreshold, *exchange.Manager) {
	registry := exchange.NewRegistry()
	manager := exchange.NewManager("binance", "binance-1", []string{"BTCUSDT"}, zap.NewNop())
	registry.Register(manager)

	trigger := NewPriceThreshold(registry, zap.NewNop())
	err := trigger.ApplyConfig(StepConfig{
		KeyExchange:    "binance",
		KeySymbol:      "BTCUSDT",
		KeyTargetPrice: 100,
	})
	assert.NoError(t, err)
	return trigger, manager
}

func waitForConsumer(t *testing.T, count func() int) {
	assert.Eventually(t, func() bool {
		return count() > 0
	}, time.Second, time.Millisecond)
}

func TestPriceThreshold_ApplyConfigValidation(t *testing.T) {
	trigger := NewPriceThreshold(exchange.NewRegistry(), zap.NewNop())

	err := trigger.ApplyConfig(StepConfig{KeyTargetPrice: 100})
	var configErr *InvalidConfigError
	assert.ErrorAs(t, err, &configErr)

	err = trigger.ApplyConfig(StepConfig{KeySymbol: "BTCUSDT"})
	assert.ErrorAs(t, err, &configErr)
}

func TestPriceThreshold_UpwardCrossing(t *testing.T) {
	// Arrange
	trigger, manager := setupPriceThreshold(t)
	results := make(chan executionResult, 1)
	go func() {
		details, err := trigger.NextExecution(context.Background())
		results <- executionResult{details: details, err: err}
	}()
	waitForConsumer(t, manager.PriceChannel().ConsumerCount)

	// Act: price moves from under to over the target
	manager.PublishPrice("BTCUSDT", decimal.NewFromInt(99))
	manager.PublishPrice("BTCUSDT", decimal.NewFromInt(101))

	// Assert
	result := <-results
	assert.NoError(t, result.err)
	assert.Equal(t, "Price crossed 100 threshold", result.details.Description)
}

func TestPriceThreshold_FirstObservationNeverTriggers(t *testing.T) {
	// Arrange
	trigger, manager := setupPriceThreshold(t)
	results := make(chan executionResult, 1)
	go func() {
		details, err := trigger.NextExecution(context.Background())
		results <- executionResult{details: details, err: err}
	}()
	waitForConsumer(t, manager.PriceChannel().ConsumerCount)

	// Act: the first observed price is already above the target, then drops
	manager.PublishPrice("BTCUSDT", decimal.NewFromInt(150))
	select {
	case result := <-results:
		t.Fatalf("unexpected execution: %v", result.details)
	case <-time.After(50 * time.Millisecond):
	}
	manager.PublishPrice("BTCUSDT", decimal.NewFromInt(99))

	// Assert: the downward crossing fires
	result := <-results
	assert.NoError(t, result.err)
	assert.Equal(t, "Price crossed 100 threshold", result.details.Description)
}

func TestPriceThreshold_UnknownSymbolFailsRegistration(t *testing.T) {
	registry := exchange.NewRegistry()
	manager := exchange.NewManager("binance", "binance-1", []string{"BTCUSDT"}, zap.NewNop())
	registry.Register(manager)

	trigger := NewPriceThreshold(registry, zap.NewNop())
	err := trigger.ApplyConfig(StepConfig{
		KeyExchange:    "binance",
		KeySymbol:      "ETHUSDT",
		KeyTargetPrice: 100,
	})
	assert.NoError(t, err)

	_, err = trigger.NextExecution(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "symbol ETHUSDT not found")
}

func TestPriceThreshold_AmbiguousExchangeNameFailsRegistration(t *testing.T) {
	registry := exchange.NewRegistry()
	registry.Register(exchange.NewManager("binance", "binance-1", []string{"BTCUSDT"}, zap.NewNop()))
	registry.Register(exchange.NewManager("binance", "binance-2", []string{"BTCUSDT"}, zap.NewNop()))

	trigger := NewPriceThreshold(registry, zap.NewNop())
	err := trigger.ApplyConfig(StepConfig{
		KeyExchange:    "binance",
		KeySymbol:      "BTCUSDT",
		KeyTargetPrice: 100,
	})
	assert.NoError(t, err)

	_, err = trigger.NextExecution(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expected 1 exchange manager for exchange binance, got 2")
}

func TestPriceThreshold_StopUnregistersConsumers(t *testing.T) {
	// Arrange
	trigger, manager := setupPriceThreshold(t)
	results := make(chan executionResult, 1)
	go func() {
		details, err := trigger.NextExecution(context.Background())
		results <- executionResult{details: details, err: err}
	}()
	waitForConsumer(t, manager.PriceChannel().ConsumerCount)

	// Act: cancelling the pending wait releases the channel subscriptions
	trigger.ClearFuture()

	// Assert
	result := <-results
	assert.ErrorIs(t, result.err, ErrAutomationStopped)
	assert.Equal(t, 0, manager.PriceChannel().ConsumerCount())
}
