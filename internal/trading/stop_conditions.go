package trading

import (
	"fmt"

	"github.com/shopspring/decimal"

	"trade-automation-bot-go/internal/exchange"
)

// AccountState exposes the holdings a stop condition needs to evaluate.
// *exchange.Manager satisfies it.
type AccountState interface {
	GetCurrencyPortfolio(asset string) exchange.CurrencyPortfolio
}

// StopCondition is a predicate that, once met, must halt strategy execution.
type StopCondition interface {
	fmt.Stringer
	// IsMet evaluates the condition against the current account state.
	IsMet(account AccountState) bool
	// MatchReason describes the latest match. Only valid after IsMet returned true.
	MatchReason() string
}

// HoldingStopCondition is met when the total holdings of an asset cross the
// configured amount. StopOnInferior selects the crossing direction; the
// threshold itself is inclusive.
type HoldingStopCondition struct {
	AssetName      string
	Amount         decimal.Decimal
	StopOnInferior bool

	lastMatchReason string
}

var _ StopCondition = (*HoldingStopCondition)(nil)

// NewHoldingStopCondition creates a holding threshold stop condition.
func NewHoldingStopCondition(assetName string, amount decimal.Decimal, stopOnInferior bool) *HoldingStopCondition {
	return &HoldingStopCondition{
		AssetName:      assetName,
		Amount:         amount,
		StopOnInferior: stopOnInferior,
	}
}

func (c *HoldingStopCondition) IsMet(account AccountState) bool {
	holdings := account.GetCurrencyPortfolio(c.AssetName).Total
	if c.StopOnInferior {
		if holdings.LessThanOrEqual(c.Amount) {
			c.lastMatchReason = c.matchReason(holdings, "lower")
			return true
		}
		return false
	}
	if holdings.GreaterThanOrEqual(c.Amount) {
		c.lastMatchReason = c.matchReason(holdings, "higher")
		return true
	}
	return false
}

func (c *HoldingStopCondition) matchReason(holdings decimal.Decimal, comparison string) string {
	return fmt.Sprintf(
		"Current %s holdings of %s are %s than the %s threshold.",
		c.AssetName, FormatDecimal(holdings), comparison, FormatDecimal(c.Amount),
	)
}

func (c *HoldingStopCondition) MatchReason() string {
	return c.lastMatchReason
}

func (c *HoldingStopCondition) String() string {
	comparison := "above"
	if c.StopOnInferior {
		comparison = "under"
	}
	return fmt.Sprintf("holding stop condition: %s %s %s", c.AssetName, comparison, c.Amount)
}

// VolatilityStopCondition is met when the watched symbol's volatility exceeds
// the configured threshold. It is fed by price updates and evaluated against
// the checker's accumulated history, account state is irrelevant to it.
type VolatilityStopCondition struct {
	Symbol  string
	Checker *VolatilityThresholdChecker

	lastMatchReason string
}

var _ StopCondition = (*VolatilityStopCondition)(nil)

// NewVolatilityStopCondition creates a volatility stop condition watching one symbol.
func NewVolatilityStopCondition(
	symbol string,
	periodInMinutes float64,
	maxAllowedPositivePercentageChange decimal.Decimal,
	maxAllowedNegativePercentageChange decimal.Decimal,
) *VolatilityStopCondition {
	return &VolatilityStopCondition{
		Symbol: symbol,
		Checker: NewVolatilityThresholdChecker(
			symbol, periodInMinutes,
			maxAllowedPositivePercentageChange, maxAllowedNegativePercentageChange,
		),
	}
}

// OnNewPrice records a price observation without evaluating the condition.
func (c *VolatilityStopCondition) OnNewPrice(price decimal.Decimal) {
	c.Checker.Observe(price)
}

func (c *VolatilityStopCondition) IsMet(_ AccountState) bool {
	met, reason := c.Checker.Check()
	if met {
		c.lastMatchReason = reason
	}
	return met
}

func (c *VolatilityStopCondition) MatchReason() string {
	return c.lastMatchReason
}

func (c *VolatilityStopCondition) String() string {
	return fmt.Sprintf("volatility stop condition: %s over %v minutes", c.Symbol, c.Checker.PeriodInMinutes)
}
