package community

import "trade-automation-bot-go/internal/automation"

// DeploymentErrorStatus is the error state shown on a hosted bot deployment.
type DeploymentErrorStatus string

const (
	DeploymentErrorNone                       DeploymentErrorStatus = "no_error"
	DeploymentErrorMissingAPIKeyTradingRights DeploymentErrorStatus = "missing_api_key_trading_rights"
	DeploymentErrorInvalidExchangeCredentials DeploymentErrorStatus = "invalid_exchange_credentials"
	DeploymentErrorMissingMinimalFunds        DeploymentErrorStatus = "missing_minimal_funds"
	DeploymentErrorInternalServerError        DeploymentErrorStatus = "internal_server_error"
	DeploymentErrorStopConditionTriggered     DeploymentErrorStatus = "stop_condition_triggered"
)

// ClearableDeploymentErrorStatuses are the statuses cleared on a successful
// startup. A stop condition trigger is deliberate and stays until resolved
// by the user.
var ClearableDeploymentErrorStatuses = []DeploymentErrorStatus{
	DeploymentErrorMissingAPIKeyTradingRights,
	DeploymentErrorInvalidExchangeCredentials,
	DeploymentErrorMissingMinimalFunds,
	DeploymentErrorInternalServerError,
}

// DeploymentErrorStatusFromStopReason maps a strategy stop reason to the
// deployment error status to report.
func DeploymentErrorStatusFromStopReason(reason automation.StopReason) DeploymentErrorStatus {
	switch reason {
	case automation.StopReasonMissingAPIKeyTradingRights:
		return DeploymentErrorMissingAPIKeyTradingRights
	case automation.StopReasonInvalidExchangeCredentials:
		return DeploymentErrorInvalidExchangeCredentials
	case automation.StopReasonMissingMinimalFunds:
		return DeploymentErrorMissingMinimalFunds
	case automation.StopReasonInternalError:
		return DeploymentErrorInternalServerError
	default:
		return DeploymentErrorStopConditionTriggered
	}
}

// ProductSubscriptionDesiredStatus is the user-facing desired state of a bot
// products subscription.
type ProductSubscriptionDesiredStatus string

const (
	ProductSubscriptionActive   ProductSubscriptionDesiredStatus = "active"
	ProductSubscriptionCanceled ProductSubscriptionDesiredStatus = "canceled"
)

// BotLogType classifies the bot logs pushed to the hosted account.
type BotLogType string

const (
	BotLogBotStarted               BotLogType = "bot_started"
	BotLogBotRestarted             BotLogType = "bot_restarted"
	BotLogStoppedStrategyExecution BotLogType = "stopped_strategy_execution"
)
