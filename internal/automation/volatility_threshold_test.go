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

func setupVolatilityThreshold(t *testing.T) (*VolatilityThreshold, *exchange.Manager) {
	registry := exchange.NewRegistry()
	manager := exchange.NewManager("binance", "binance-1", []string{"BTCUSDT"}, zap.NewNop())
	registry.Register(manager)

	trigger := NewVolatilityThreshold(registry, zap.NewNop())
	err := trigger.ApplyConfig(StepConfig{
		KeyExchange:                           "binance",
		KeySymbol:                             "BTCUSDT",
		KeyPeriodInMinutes:                    2,
		KeyMaxAllowedPositivePercentageChange: 5,
		KeyMaxAllowedNegativePercentageChange: 5,
	})
	assert.NoError(t, err)
	return trigger, manager
}

func TestVolatilityThreshold_ApplyConfigValidation(t *testing.T) {
	trigger := NewVolatilityThreshold(exchange.NewRegistry(), zap.NewNop())
	var configErr *InvalidConfigError

	// missing symbol
	err := trigger.ApplyConfig(StepConfig{KeyPeriodInMinutes: 2})
	assert.ErrorAs(t, err, &configErr)

	// missing period
	err = trigger.ApplyConfig(StepConfig{KeySymbol: "BTCUSDT"})
	assert.ErrorAs(t, err, &configErr)
}

func TestVolatilityThreshold_SpikeAboveAverageTriggers(t *testing.T) {
	// Arrange: a pinned clock drives the minute buckets
	trigger, manager := setupVolatilityThreshold(t)
	now := time.Unix(0, 0)
	trigger.Checker().SetClock(func() time.Time { return now })

	results := make(chan executionResult, 1)
	go func() {
		details, err := trigger.NextExecution(context.Background())
		results <- executionResult{details: details, err: err}
	}()
	waitForConsumer(t, manager.PriceChannel().ConsumerCount)

	// Act: two quiet minutes around 100, then a spike above the +5% bound
	manager.PublishPrice("BTCUSDT", decimal.NewFromInt(100))
	now = now.Add(time.Minute)
	manager.PublishPrice("BTCUSDT", decimal.NewFromInt(100))
	now = now.Add(time.Minute)
	manager.PublishPrice("BTCUSDT", decimal.NewFromInt(106))

	// Assert
	result := <-results
	assert.NoError(t, result.err)
	assert.Equal(t,
		"BTCUSDT reference price of 106.0 is above the 2 minutes average high value of 100.0 +5.0%.",
		result.details.Description)
}

func TestVolatilityThreshold_DropUnderAverageTriggers(t *testing.T) {
	// Arrange
	trigger, manager := setupVolatilityThreshold(t)
	now := time.Unix(0, 0)
	trigger.Checker().SetClock(func() time.Time { return now })

	results := make(chan executionResult, 1)
	go func() {
		details, err := trigger.NextExecution(context.Background())
		results <- executionResult{details: details, err: err}
	}()
	waitForConsumer(t, manager.PriceChannel().ConsumerCount)

	// Act: two quiet minutes around 100, then a drop under the -5% bound
	manager.PublishPrice("BTCUSDT", decimal.NewFromInt(100))
	now = now.Add(time.Minute)
	manager.PublishPrice("BTCUSDT", decimal.NewFromInt(100))
	now = now.Add(time.Minute)
	manager.PublishPrice("BTCUSDT", decimal.NewFromInt(94))

	// Assert
	result := <-results
	assert.NoError(t, result.err)
	assert.Equal(t,
		"BTCUSDT reference price of 94.0 is bellow the 2 minutes average low value of 100.0 -5.0%.",
		result.details.Description)
}

func TestVolatilityThreshold_BoundaryPriceDoesNotTrigger(t *testing.T) {
	// Arrange
	trigger, manager := setupVolatilityThreshold(t)
	now := time.Unix(0, 0)
	trigger.Checker().SetClock(func() time.Time { return now })

	results := make(chan executionResult, 1)
	go func() {
		details, err := trigger.NextExecution(context.Background())
		results <- executionResult{details: details, err: err}
	}()
	waitForConsumer(t, manager.PriceChannel().ConsumerCount)

	// Act: the price lands exactly on the +5% boundary, which is not a breach
	manager.PublishPrice("BTCUSDT", decimal.NewFromInt(100))
	now = now.Add(time.Minute)
	manager.PublishPrice("BTCUSDT", decimal.NewFromInt(105))

	// Assert: no execution surfaced
	select {
	case result := <-results:
		t.Fatalf("unexpected execution: %v", result.details)
	case <-time.After(50 * time.Millisecond):
	}
	trigger.Stop()
}
