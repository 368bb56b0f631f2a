package exchange

import (
	"sync"

	"github.com/shopspring/decimal"
)

// PriceUpdate is published on a manager's price channel for every mark price tick.
type PriceUpdate struct {
	Exchange   string
	ExchangeID string
	Symbol     string
	Price      decimal.Decimal
}

// BalanceUpdate is published on a manager's balance channel when holdings change.
type BalanceUpdate struct {
	Exchange   string
	ExchangeID string
}

// ProfitabilityUpdate is published on a manager's profitability channel.
type ProfitabilityUpdate struct {
	Exchange             string
	ExchangeID           string
	ProfitabilityPercent decimal.Decimal
}

// ConsumerHandle is the unsubscribable handle returned by channel subscriptions.
type ConsumerHandle interface {
	Stop()
}

// Channel dispatches events to registered consumers in delivery order.
// Callbacks run on the publisher's goroutine, one at a time.
type Channel[T any] struct {
	mu        sync.RWMutex
	consumers []*Consumer[T]
}

// Consumer is a single subscription on a Channel.
type Consumer[T any] struct {
	channel  *Channel[T]
	callback func(T)
	stopped  bool
	mu       sync.Mutex
}

// NewChannel creates an empty channel.
func NewChannel[T any]() *Channel[T] {
	return &Channel[T]{}
}

// NewConsumer subscribes a callback and returns its handle.
func (c *Channel[T]) NewConsumer(callback func(T)) *Consumer[T] {
	consumer := &Consumer[T]{channel: c, callback: callback}
	c.mu.Lock()
	c.consumers = append(c.consumers, consumer)
	c.mu.Unlock()
	return consumer
}

// Publish invokes every registered consumer callback with the event.
func (c *Channel[T]) Publish(event T) {
	c.mu.RLock()
	consumers := make([]*Consumer[T], len(c.consumers))
	copy(consumers, c.consumers)
	c.mu.RUnlock()

	for _, consumer := range consumers {
		consumer.mu.Lock()
		stopped := consumer.stopped
		consumer.mu.Unlock()
		if !stopped {
			consumer.callback(event)
		}
	}
}

// ConsumerCount returns the number of live consumers.
func (c *Channel[T]) ConsumerCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	count := 0
	for _, consumer := range c.consumers {
		consumer.mu.Lock()
		if !consumer.stopped {
			count++
		}
		consumer.mu.Unlock()
	}
	return count
}

// Stop unsubscribes the consumer. Safe to call more than once.
func (c *Consumer[T]) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()

	c.channel.mu.Lock()
	defer c.channel.mu.Unlock()
	for i, registered := range c.channel.consumers {
		if registered == c {
			c.channel.consumers = append(c.channel.consumers[:i], c.channel.consumers[i+1:]...)
			break
		}
	}
}
