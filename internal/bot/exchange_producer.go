package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"trade-automation-bot-go/internal/automation"
	"trade-automation-bot-go/internal/exchange"
)

// OrderCanceler cancels every open order on a symbol.
type OrderCanceler interface {
	CancelOpenOrders(ctx context.Context, symbol string) error
}

// ExchangeProducer drives the trading side of the bot: it owns the stop and
// pause sequence across every registered exchange manager.
type ExchangeProducer struct {
	logger   *zap.Logger
	registry *exchange.Registry
	orders   OrderCanceler
}

// NewExchangeProducer creates an exchange producer over the given registry.
// orders may be nil to skip open-order cleanup on stop.
func NewExchangeProducer(registry *exchange.Registry, orders OrderCanceler, logger *zap.Logger) *ExchangeProducer {
	return &ExchangeProducer{
		logger:   logger.Named("exchange-producer"),
		registry: registry,
		orders:   orders,
	}
}

// AreAllTradingModesStoppedAndTradersPaused reports whether every trading
// mode on every exchange is stopped and every trader paused.
func (p *ExchangeProducer) AreAllTradingModesStoppedAndTradersPaused() bool {
	for _, manager := range p.registry.Managers() {
		if !manager.AreAllTradingModesStoppedAndTraderPaused() {
			return false
		}
	}
	return true
}

// StopAllTradingModesAndPauseTraders stops every trading mode and pauses the
// trader on every exchange. Failures are gathered: one trading mode failing
// to stop never prevents the others from stopping nor the trader from
// pausing.
func (p *ExchangeProducer) StopAllTradingModesAndPauseTraders(ctx context.Context, details *automation.ExecutionDetails) error {
	var reason string
	if details != nil {
		reason = details.Description
	}
	var errs []error
	for _, manager := range p.registry.Managers() {
		errs = append(errs, p.stopTradingModesAndPauseTrader(ctx, manager, reason)...)
	}
	return errors.Join(errs...)
}

func (p *ExchangeProducer) stopTradingModesAndPauseTrader(ctx context.Context, manager *exchange.Manager, reason string) []error {
	modes := manager.TradingModes()
	p.logger.Info("Stopping trading modes and pausing trader",
		zap.String("exchange", manager.Name()), zap.Int("trading_modes", len(modes)))

	var wg sync.WaitGroup
	errCh := make(chan error, len(modes))
	for _, mode := range modes {
		wg.Add(1)
		go func(mode exchange.TradingMode) {
			defer wg.Done()
			if err := mode.StopStrategyExecution(reason); err != nil {
				errCh <- fmt.Errorf("failed to stop trading mode %s on %s: %w",
					mode.Name(), manager.Name(), err)
			}
		}(mode)
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}

	p.cancelOpenOrders(ctx, manager)
	manager.SetTradingEnabled(false)
	return errs
}

// cancelOpenOrders is best effort: a leftover order must not block the pause.
func (p *ExchangeProducer) cancelOpenOrders(ctx context.Context, manager *exchange.Manager) {
	if p.orders == nil {
		return
	}
	for _, symbol := range manager.TradingPairs() {
		if err := p.orders.CancelOpenOrders(ctx, symbol); err != nil {
			p.logger.Warn("Failed to cancel open orders",
				zap.String("exchange", manager.Name()), zap.String("symbol", symbol), zap.Error(err))
		}
	}
}
