package trading

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// HistoricalMinAndMaxPrice is the running min/max of prices observed during
// one calendar minute.
type HistoricalMinAndMaxPrice struct {
	MinuteTS int64
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal
}

// Update folds a new price into the bucket.
func (h *HistoricalMinAndMaxPrice) Update(price decimal.Decimal) {
	if price.LessThan(h.MinPrice) {
		h.MinPrice = price
	}
	if price.GreaterThan(h.MaxPrice) {
		h.MaxPrice = price
	}
}

// VolatilityThresholdChecker maintains per-minute min/max price buckets over a
// trailing window and checks the current minute against the window average.
// A percentage change of zero disables that side's check entirely.
type VolatilityThresholdChecker struct {
	Symbol                             string
	PeriodInMinutes                    float64
	MaxAllowedPositivePercentageChange decimal.Decimal
	MaxAllowedNegativePercentageChange decimal.Decimal

	history          []HistoricalMinAndMaxPrice
	maxPositiveRatio decimal.Decimal
	maxNegativeRatio decimal.Decimal
	now              func() time.Time
}

// NewVolatilityThresholdChecker creates a checker with precomputed ratios.
func NewVolatilityThresholdChecker(
	symbol string,
	periodInMinutes float64,
	maxAllowedPositivePercentageChange decimal.Decimal,
	maxAllowedNegativePercentageChange decimal.Decimal,
) *VolatilityThresholdChecker {
	checker := &VolatilityThresholdChecker{
		Symbol:                             symbol,
		PeriodInMinutes:                    periodInMinutes,
		MaxAllowedPositivePercentageChange: maxAllowedPositivePercentageChange,
		MaxAllowedNegativePercentageChange: maxAllowedNegativePercentageChange,
		now:                                time.Now,
	}
	checker.updateRatios()
	return checker
}

// SetClock overrides the wall clock, used to control minute bucketing in tests.
func (c *VolatilityThresholdChecker) SetClock(now func() time.Time) {
	c.now = now
}

func (c *VolatilityThresholdChecker) updateRatios() {
	if !c.MaxAllowedPositivePercentageChange.IsZero() {
		c.maxPositiveRatio = one.Add(c.MaxAllowedPositivePercentageChange.Div(hundred))
	}
	if !c.MaxAllowedNegativePercentageChange.IsZero() {
		c.maxNegativeRatio = one.Sub(c.MaxAllowedNegativePercentageChange.Div(hundred))
	}
}

// ValidateConfig checks the configured domain: symbol and period are required,
// percentages may be zero (side disabled) but never negative.
func (c *VolatilityThresholdChecker) ValidateConfig() error {
	if c.Symbol == "" || c.PeriodInMinutes == 0 {
		return errors.New("symbol and period in minutes must be set")
	}
	if c.MaxAllowedPositivePercentageChange.IsNegative() {
		return errors.New("max allowed positive percentage change must be >= 0")
	}
	if c.MaxAllowedNegativePercentageChange.IsNegative() {
		return errors.New("max allowed negative percentage change must be >= 0")
	}
	c.updateRatios()
	return nil
}

// OnNewPrice folds the price into the current minute bucket and evaluates the
// threshold, returning whether it is met and the matching reason.
func (c *VolatilityThresholdChecker) OnNewPrice(price decimal.Decimal) (bool, string) {
	c.Observe(price)
	return c.Check()
}

// Observe folds the price into the current minute bucket and evicts stale ones.
func (c *VolatilityThresholdChecker) Observe(price decimal.Decimal) {
	minuteTS := c.now().Unix() / 60
	c.updateLastBucket(minuteTS, price)
	// ensure history doesn't grow forever
	// +1 because the current minute's bucket is kept in the history as well
	if float64(len(c.history)) > c.PeriodInMinutes+1 {
		c.history = c.history[1:]
	}
}

func (c *VolatilityThresholdChecker) updateLastBucket(minuteTS int64, price decimal.Decimal) {
	if len(c.history) == 0 || c.history[len(c.history)-1].MinuteTS != minuteTS {
		c.history = append(c.history, HistoricalMinAndMaxPrice{MinuteTS: minuteTS, MinPrice: price, MaxPrice: price})
	} else {
		c.history[len(c.history)-1].Update(price)
	}
}

// Check evaluates the threshold predicate against the current history.
func (c *VolatilityThresholdChecker) Check() (bool, string) {
	if len(c.history) < 2 {
		// need at least the current minute's price and the previous minute's price
		return false, ""
	}
	currentMinutePrice := c.history[len(c.history)-1]
	if c.MaxAllowedPositivePercentageChange.IsPositive() {
		historicalAverageMaxPrice := meanOf(c.history[:len(c.history)-1], func(h HistoricalMinAndMaxPrice) decimal.Decimal {
			return h.MaxPrice
		})
		if currentMinutePrice.MaxPrice.GreaterThan(historicalAverageMaxPrice.Mul(c.maxPositiveRatio)) {
			return true, c.reason(historicalAverageMaxPrice, true)
		}
	}
	if c.MaxAllowedNegativePercentageChange.IsPositive() {
		historicalAverageMinPrice := meanOf(c.history[:len(c.history)-1], func(h HistoricalMinAndMaxPrice) decimal.Decimal {
			return h.MinPrice
		})
		if currentMinutePrice.MinPrice.LessThan(historicalAverageMinPrice.Mul(c.maxNegativeRatio)) {
			return true, c.reason(historicalAverageMinPrice, false)
		}
	}
	return false, ""
}

// History returns the retained min/max buckets, oldest first.
func (c *VolatilityThresholdChecker) History() []HistoricalMinAndMaxPrice {
	history := make([]HistoricalMinAndMaxPrice, len(c.history))
	copy(history, c.history)
	return history
}

func (c *VolatilityThresholdChecker) reason(historicalAveragePrice decimal.Decimal, isSuperior bool) string {
	currentMinutePrice := c.history[len(c.history)-1]
	currentValue := currentMinutePrice.MaxPrice
	direction, side, sign := "above", "high", "+"
	percentage := c.MaxAllowedPositivePercentageChange
	if !isSuperior {
		currentValue = currentMinutePrice.MinPrice
		direction, side, sign = "bellow", "low", "-"
		percentage = c.MaxAllowedNegativePercentageChange
	}
	return fmt.Sprintf(
		"%s reference price of %s is %s the %s minutes average %s value of %s %s%s%%.",
		c.Symbol, FormatDecimal(currentValue), direction,
		strconv.FormatFloat(c.PeriodInMinutes, 'f', -1, 64), side,
		FormatDecimal(historicalAveragePrice), sign, FormatDecimal(percentage),
	)
}

func meanOf(buckets []HistoricalMinAndMaxPrice, value func(HistoricalMinAndMaxPrice) decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, bucket := range buckets {
		sum = sum.Add(value(bucket))
	}
	return sum.Div(decimal.NewFromInt(int64(len(buckets))))
}

// FormatDecimal renders a decimal as a float with at least one decimal place,
// e.g. 106 -> "106.0" and 5.25 -> "5.25". Reason strings are the only place
// where decimals are converted to floating point.
func FormatDecimal(d decimal.Decimal) string {
	f, _ := d.Float64()
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
