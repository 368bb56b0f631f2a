package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CurrencyPortfolio holds the current amounts of one asset.
type CurrencyPortfolio struct {
	Available decimal.Decimal
	Total     decimal.Decimal
}

// TradingMode is the control surface of one running trading strategy.
type TradingMode interface {
	Name() string
	StopStrategyExecution(reason string) error
	IsStopped() bool
}

// StrategyMode is the default TradingMode implementation.
type StrategyMode struct {
	name    string
	mu      sync.Mutex
	stopped bool
	reason  string
}

// NewStrategyMode creates a running trading mode.
func NewStrategyMode(name string) *StrategyMode {
	return &StrategyMode{name: name}
}

func (m *StrategyMode) Name() string { return m.name }

func (m *StrategyMode) StopStrategyExecution(reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	m.reason = reason
	return nil
}

func (m *StrategyMode) IsStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// Manager owns one exchange connection's account state and event channels.
type Manager struct {
	id   string
	name string

	logger *zap.Logger

	mu             sync.RWMutex
	tradingPairs   []string
	portfolio      map[string]CurrencyPortfolio
	tradingModes   []TradingMode
	tradingEnabled bool

	priceChannel         *Channel[PriceUpdate]
	balanceChannel       *Channel[BalanceUpdate]
	profitabilityChannel *Channel[ProfitabilityUpdate]

	balanceInitialized chan struct{}
	balanceInitOnce    sync.Once
}

// NewManager creates an exchange manager for the given exchange name and id.
func NewManager(name, id string, tradingPairs []string, logger *zap.Logger) *Manager {
	return &Manager{
		id:                   id,
		name:                 name,
		logger:               logger.Named("exchange-manager").With(zap.String("exchange", name)),
		tradingPairs:         tradingPairs,
		portfolio:            make(map[string]CurrencyPortfolio),
		tradingEnabled:       true,
		priceChannel:         NewChannel[PriceUpdate](),
		balanceChannel:       NewChannel[BalanceUpdate](),
		profitabilityChannel: NewChannel[ProfitabilityUpdate](),
		balanceInitialized:   make(chan struct{}),
	}
}

func (m *Manager) ID() string   { return m.id }
func (m *Manager) Name() string { return m.name }

// TradingPairs returns the currently tradable symbols on this exchange.
func (m *Manager) TradingPairs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pairs := make([]string, len(m.tradingPairs))
	copy(pairs, m.tradingPairs)
	return pairs
}

// GetCurrencyPortfolio returns the holdings of one asset, zero-valued if unknown.
func (m *Manager) GetCurrencyPortfolio(asset string) CurrencyPortfolio {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.portfolio[asset]
}

// UpdatePortfolio replaces the holdings of one asset and publishes a balance update.
func (m *Manager) UpdatePortfolio(asset string, holdings CurrencyPortfolio) {
	m.mu.Lock()
	m.portfolio[asset] = holdings
	m.mu.Unlock()
	m.MarkBalanceInitialized()
	m.balanceChannel.Publish(BalanceUpdate{Exchange: m.name, ExchangeID: m.id})
}

// PublishPrice publishes a mark price tick for a symbol.
func (m *Manager) PublishPrice(symbol string, price decimal.Decimal) {
	m.priceChannel.Publish(PriceUpdate{Exchange: m.name, ExchangeID: m.id, Symbol: symbol, Price: price})
}

// PublishProfitability publishes the current account profitability percentage.
func (m *Manager) PublishProfitability(percent decimal.Decimal) {
	m.profitabilityChannel.Publish(ProfitabilityUpdate{Exchange: m.name, ExchangeID: m.id, ProfitabilityPercent: percent})
}

func (m *Manager) PriceChannel() *Channel[PriceUpdate]                 { return m.priceChannel }
func (m *Manager) BalanceChannel() *Channel[BalanceUpdate]             { return m.balanceChannel }
func (m *Manager) ProfitabilityChannel() *Channel[ProfitabilityUpdate] { return m.profitabilityChannel }

// MarkBalanceInitialized signals that the first balance snapshot arrived.
func (m *Manager) MarkBalanceInitialized() {
	m.balanceInitOnce.Do(func() { close(m.balanceInitialized) })
}

// WaitForBalanceInit blocks until the first balance snapshot arrives,
// the timeout elapses or the context is cancelled.
func (m *Manager) WaitForBalanceInit(ctx context.Context, timeout time.Duration) error {
	select {
	case <-m.balanceInitialized:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("balance initialization for %s took more than %s", m.name, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddTradingMode registers a trading mode on this exchange.
func (m *Manager) AddTradingMode(mode TradingMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tradingModes = append(m.tradingModes, mode)
}

// TradingModes returns the registered trading modes.
func (m *Manager) TradingModes() []TradingMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	modes := make([]TradingMode, len(m.tradingModes))
	copy(modes, m.tradingModes)
	return modes
}

// SetTradingEnabled enables or disables the trader.
func (m *Manager) SetTradingEnabled(enabled bool) {
	m.mu.Lock()
	m.tradingEnabled = enabled
	m.mu.Unlock()
	m.logger.Info("Trading enabled state changed", zap.Bool("enabled", enabled))
}

// IsTradingEnabled reports whether the trader is enabled.
func (m *Manager) IsTradingEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tradingEnabled
}

// AreAllTradingModesStoppedAndTraderPaused reports whether every trading mode
// has stopped its strategy execution and the trader is disabled.
func (m *Manager) AreAllTradingModesStoppedAndTraderPaused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tradingEnabled {
		return false
	}
	for _, mode := range m.tradingModes {
		if !mode.IsStopped() {
			return false
		}
	}
	return true
}

// Registry keeps track of every known exchange manager.
type Registry struct {
	mu       sync.RWMutex
	managers map[string]*Manager
	order    []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{managers: make(map[string]*Manager)}
}

// Register adds a manager to the registry.
func (r *Registry) Register(manager *Manager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.managers[manager.ID()]; !ok {
		r.order = append(r.order, manager.ID())
	}
	r.managers[manager.ID()] = manager
}

// IDs returns every registered exchange manager id, in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// ManagerFromID returns the manager with the given id.
func (r *Registry) ManagerFromID(id string) (*Manager, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	manager, ok := r.managers[id]
	if !ok {
		return nil, fmt.Errorf("no exchange manager with id %s", id)
	}
	return manager, nil
}

// ManagerFromNameAndID returns the manager with the given exchange name and id.
func (r *Registry) ManagerFromNameAndID(name, id string) (*Manager, error) {
	manager, err := r.ManagerFromID(id)
	if err != nil {
		return nil, err
	}
	if manager.Name() != name {
		return nil, fmt.Errorf("exchange manager %s is not on exchange %s", id, name)
	}
	return manager, nil
}

// ManagersFromName returns every manager running on the given exchange name.
func (r *Registry) ManagersFromName(name string) []*Manager {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var managers []*Manager
	for _, id := range r.order {
		if manager := r.managers[id]; manager.Name() == name {
			managers = append(managers, manager)
		}
	}
	return managers
}

// Managers returns every registered manager in registration order.
func (r *Registry) Managers() []*Manager {
	r.mu.RLock()
	defer r.mu.RUnlock()
	managers := make([]*Manager, 0, len(r.order))
	for _, id := range r.order {
		managers = append(managers, r.managers[id])
	}
	return managers
}
