package exchange

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestChannel_PublishInOrder(t *testing.T) {
	channel := NewChannel[PriceUpdate]()
	var first, second []string
	channel.NewConsumer(func(update PriceUpdate) { first = append(first, update.Symbol) })
	channel.NewConsumer(func(update PriceUpdate) { second = append(second, update.Symbol) })

	channel.Publish(PriceUpdate{Symbol: "BTCUSDT"})
	channel.Publish(PriceUpdate{Symbol: "ETHUSDT"})

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, first)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, second)
}

func TestChannel_StoppedConsumerStopsReceiving(t *testing.T) {
	channel := NewChannel[PriceUpdate]()
	var received int
	consumer := channel.NewConsumer(func(PriceUpdate) { received++ })
	assert.Equal(t, 1, channel.ConsumerCount())

	channel.Publish(PriceUpdate{Symbol: "BTCUSDT"})
	consumer.Stop()
	channel.Publish(PriceUpdate{Symbol: "BTCUSDT"})

	assert.Equal(t, 1, received)
	assert.Equal(t, 0, channel.ConsumerCount())
}

func TestManager_UpdatePortfolioPublishesBalance(t *testing.T) {
	manager := NewManager("binance", "binance-1", nil, zap.NewNop())
	var updates []BalanceUpdate
	manager.BalanceChannel().NewConsumer(func(update BalanceUpdate) { updates = append(updates, update) })

	manager.UpdatePortfolio("BTC", CurrencyPortfolio{Total: decimal.NewFromInt(2)})

	assert.Len(t, updates, 1)
	assert.Equal(t, "binance", updates[0].Exchange)
	assert.True(t, manager.GetCurrencyPortfolio("BTC").Total.Equal(decimal.NewFromInt(2)))
}

func TestManager_WaitForBalanceInit(t *testing.T) {
	t.Run("TimesOutWithoutSnapshot", func(t *testing.T) {
		manager := NewManager("binance", "binance-1", nil, zap.NewNop())
		err := manager.WaitForBalanceInit(context.Background(), 10*time.Millisecond)
		assert.Error(t, err)
	})

	t.Run("ReturnsOnceInitialized", func(t *testing.T) {
		manager := NewManager("binance", "binance-1", nil, zap.NewNop())
		manager.UpdatePortfolio("BTC", CurrencyPortfolio{})
		err := manager.WaitForBalanceInit(context.Background(), time.Second)
		assert.NoError(t, err)
	})
}

func TestRegistry_Resolution(t *testing.T) {
	registry := NewRegistry()
	first := NewManager("binance", "binance-1", nil, zap.NewNop())
	second := NewManager("binance", "binance-2", nil, zap.NewNop())
	registry.Register(first)
	registry.Register(second)

	manager, err := registry.ManagerFromID("binance-1")
	assert.NoError(t, err)
	assert.Same(t, first, manager)

	_, err = registry.ManagerFromID("unknown")
	assert.Error(t, err)

	manager, err = registry.ManagerFromNameAndID("binance", "binance-2")
	assert.NoError(t, err)
	assert.Same(t, second, manager)

	_, err = registry.ManagerFromNameAndID("kraken", "binance-2")
	assert.Error(t, err)

	assert.Len(t, registry.ManagersFromName("binance"), 2)
	assert.Empty(t, registry.ManagersFromName("kraken"))
	assert.Equal(t, []string{"binance-1", "binance-2"}, registry.IDs())
}
