package automation

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"trade-automation-bot-go/internal/exchange"
)

type profitabilitySample struct {
	unixTime int64
	percent  decimal.Decimal
}

// ProfitabilityThreshold triggers when account profitability moves by more
// than the configured percentage within a trailing time window. A positive
// percent change watches gains, a negative one watches losses.
type ProfitabilityThreshold struct {
	channelTriggerEvent

	percentChange decimal.Decimal
	timePeriod    float64 // seconds

	smu     sync.Mutex
	samples []profitabilitySample
}

var _ TriggerEvent = (*ProfitabilityThreshold)(nil)

// NewProfitabilityThreshold creates an unconfigured profitability threshold trigger.
func NewProfitabilityThreshold(registry *exchange.Registry, logger *zap.Logger) *ProfitabilityThreshold {
	trigger := &ProfitabilityThreshold{}
	trigger.init("profitability_threshold", registry, logger, trigger)
	return trigger
}

func (t *ProfitabilityThreshold) Description() string {
	return "Triggers when the profitability of the account changes by more than the given " +
		"percentage within the given time period."
}

// ApplyConfig configures the watched percent change and the time window in
// minutes, and drops accumulated samples.
func (t *ProfitabilityThreshold) ApplyConfig(config StepConfig) error {
	t.applyChannelTriggerConfig(config)
	t.percentChange = config.DecimalValue(KeyPercentChange)
	t.timePeriod = config.FloatValue(KeyTimePeriod) * 60
	if t.percentChange.IsZero() || t.timePeriod == 0 {
		return NewInvalidConfigError(t.Name(), "percent change and time period must be set")
	}
	t.smu.Lock()
	t.samples = nil
	t.smu.Unlock()
	return nil
}

func (t *ProfitabilityThreshold) registerConsumers(manager *exchange.Manager) ([]exchange.ConsumerHandle, error) {
	return []exchange.ConsumerHandle{
		manager.ProfitabilityChannel().NewConsumer(t.onProfitability),
	}, nil
}

func (t *ProfitabilityThreshold) checkInitialEvent(context.Context) {
	// needs a window of samples, nothing to check at registration
}

func (t *ProfitabilityThreshold) onProfitability(update exchange.ProfitabilityUpdate) {
	if t.ShouldStop() {
		return
	}
	current := update.ProfitabilityPercent
	oldest, ok := t.updateSamples(current)
	if !ok {
		return
	}
	delta := current.Sub(oldest)
	triggered := (t.percentChange.IsPositive() && delta.GreaterThanOrEqual(t.percentChange)) ||
		(t.percentChange.IsNegative() && delta.LessThanOrEqual(t.percentChange))
	if triggered {
		reason := fmt.Sprintf("Profitability reached %s%%", t.percentChange)
		t.logger.Info("Profitability threshold met",
			zap.String("exchange", update.Exchange),
			zap.String("delta", delta.String()), zap.String("reason", reason))
		t.Trigger(reason)
	}
}

// updateSamples records the current profitability, prunes samples older than
// the time window and returns the oldest retained value.
func (t *ProfitabilityThreshold) updateSamples(percent decimal.Decimal) (decimal.Decimal, bool) {
	t.smu.Lock()
	defer t.smu.Unlock()
	now := t.clock().Unix()
	if len(t.samples) > 0 && t.samples[len(t.samples)-1].unixTime == now {
		t.samples[len(t.samples)-1].percent = percent
	} else {
		t.samples = append(t.samples, profitabilitySample{unixTime: now, percent: percent})
	}
	for len(t.samples) > 0 && float64(now-t.samples[0].unixTime) > t.timePeriod {
		t.samples = t.samples[1:]
	}
	if len(t.samples) == 0 {
		return decimal.Zero, false
	}
	return t.samples[0].percent, true
}
