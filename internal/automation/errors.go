package automation

import (
	"errors"
	"fmt"
)

// ErrAutomationStopped ends an automation execution loop. It is returned by
// NextExecution when the trigger has been stopped or will never fire again.
var ErrAutomationStopped = errors.New("automation stopped")

// InvalidConfigError reports a rejected step configuration.
type InvalidConfigError struct {
	Step    string
	Message string
}

// NewInvalidConfigError creates an InvalidConfigError for the given step.
func NewInvalidConfigError(step, message string) *InvalidConfigError {
	return &InvalidConfigError{Step: step, Message: message}
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Step, e.Message)
}

// StopReason identifies why strategy execution was halted. Values line up
// with the hosted deployment error statuses they map to.
type StopReason string

const (
	StopReasonStopConditionTriggered     StopReason = "stop_condition_triggered"
	StopReasonMissingAPIKeyTradingRights StopReason = "missing_api_key_trading_rights"
	StopReasonInvalidExchangeCredentials StopReason = "invalid_exchange_credentials"
	StopReasonMissingMinimalFunds        StopReason = "missing_minimal_funds"
	StopReasonInternalError              StopReason = "internal_server_error"
)
