package automation

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config keys shared by the automation steps.
const (
	KeyExchange                           = "exchange"
	KeyExchangeID                         = "exchange_id"
	KeySymbol                             = "symbol"
	KeyPeriodInMinutes                    = "period_in_minutes"
	KeyMaxAllowedPositivePercentageChange = "max_allowed_positive_percentage_change"
	KeyMaxAllowedNegativePercentageChange = "max_allowed_negative_percentage_change"
	KeyAssetName                          = "asset_name"
	KeyAmount                             = "amount"
	KeyStopOnInferior                     = "stop_on_inferior"
	KeyTargetPrice                        = "target_price"
	KeyPercentChange                      = "percent_change"
	KeyTimePeriod                         = "time_period"
	KeyTriggerOnlyOnce                    = "trigger_only_once"
	KeyMaxTriggerFrequency                = "max_trigger_frequency"
	KeyStopReason                         = "stop_reason"
)

// StepConfig is the raw, user-provided configuration of one automation step.
type StepConfig map[string]any

// StringValue returns the key as a string, empty when absent or mistyped.
func (c StepConfig) StringValue(key string) string {
	value, _ := c[key].(string)
	return value
}

// BoolValue returns the key as a bool, false when absent or mistyped.
func (c StepConfig) BoolValue(key string) bool {
	value, _ := c[key].(bool)
	return value
}

// FloatValue returns the key as a float64, zero when absent or unparsable.
func (c StepConfig) FloatValue(key string) float64 {
	switch value := c[key].(type) {
	case float64:
		return value
	case float32:
		return float64(value)
	case int:
		return float64(value)
	case int64:
		return float64(value)
	case string:
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

// DecimalValue returns the key as a decimal, zero when absent or unparsable.
func (c StepConfig) DecimalValue(key string) decimal.Decimal {
	switch value := c[key].(type) {
	case decimal.Decimal:
		return value
	case string:
		parsed, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero
		}
		return parsed
	case float64:
		return decimal.NewFromFloat(value)
	case float32:
		return decimal.NewFromFloat32(value)
	case int:
		return decimal.NewFromInt(int64(value))
	case int64:
		return decimal.NewFromInt(value)
	default:
		return decimal.Zero
	}
}

// Step is the common surface of triggers, conditions and actions.
type Step interface {
	Name() string
	Description() string
	ApplyConfig(config StepConfig) error
	UpdateExecutionDetails(description string, source *ExecutionDetails)
	LastExecutionDetails() *ExecutionDetails
}

// Condition gates the actions of an automation entry.
type Condition interface {
	Step
	Process(details *ExecutionDetails) (bool, error)
}

// Action is a side effect run when a trigger fires and every condition holds.
type Action interface {
	Step
	Process(ctx context.Context, details *ExecutionDetails) error
}

// baseStep carries the state shared by every step implementation.
type baseStep struct {
	name   string
	logger *zap.Logger
	clock  func() time.Time

	lastExecutionDetails *ExecutionDetails
}

func newBaseStep(name string, logger *zap.Logger) baseStep {
	return baseStep{
		name:                 name,
		logger:               logger.Named(name),
		clock:                time.Now,
		lastExecutionDetails: &ExecutionDetails{},
	}
}

func (s *baseStep) Name() string { return s.name }

// UpdateExecutionDetails records an execution happening now. The source chain
// is deep-copied so the recorded history stays immutable.
func (s *baseStep) UpdateExecutionDetails(description string, source *ExecutionDetails) {
	s.lastExecutionDetails.Timestamp = float64(s.clock().UnixNano()) / float64(time.Second)
	s.lastExecutionDetails.Description = description
	s.lastExecutionDetails.Source = source.Clone()
}

// LastExecutionDetails returns the details of the latest execution. A zero
// timestamp means the step never ran.
func (s *baseStep) LastExecutionDetails() *ExecutionDetails {
	return s.lastExecutionDetails
}
