package automation

import (
	"context"

	"go.uber.org/zap"
)

// BotController is the bot-level control surface actions operate on.
type BotController interface {
	// StopAllTradingModesAndPauseTraders halts strategy execution on every
	// exchange and reports the stop to the hosted account. scheduleBotStop
	// additionally requests a full bot shutdown.
	StopAllTradingModesAndPauseTraders(ctx context.Context, stopReason StopReason, details *ExecutionDetails, scheduleBotStop bool) error
}

// StopStrategiesAndPauseTrader stops every trading mode and pauses every
// trader, reporting the originating trigger's description as stop reason.
type StopStrategiesAndPauseTrader struct {
	baseStep

	controller BotController
	stopReason StopReason
}

var _ Action = (*StopStrategiesAndPauseTrader)(nil)

// NewStopStrategiesAndPauseTrader creates the stop action.
func NewStopStrategiesAndPauseTrader(controller BotController, logger *zap.Logger) *StopStrategiesAndPauseTrader {
	return &StopStrategiesAndPauseTrader{
		baseStep:   newBaseStep("stop_strategies_and_pause_trader", logger),
		controller: controller,
		stopReason: StopReasonStopConditionTriggered,
	}
}

func (a *StopStrategiesAndPauseTrader) Description() string {
	return "Stops all strategies, clears their state and pauses traders."
}

// ApplyConfig reads the optional stop reason override.
func (a *StopStrategiesAndPauseTrader) ApplyConfig(config StepConfig) error {
	if reason := config.StringValue(KeyStopReason); reason != "" {
		a.stopReason = StopReason(reason)
	}
	return nil
}

// Process reports the stop to the controller with the details of the
// originating trigger execution.
func (a *StopStrategiesAndPauseTrader) Process(ctx context.Context, details *ExecutionDetails) error {
	var initial *ExecutionDetails
	if details != nil {
		initial = details.InitialExecutionDetails()
	}
	a.logger.Info("Stopping strategies and pausing traders",
		zap.String("stop_reason", string(a.stopReason)),
		zap.Stringer("details", initial))
	return a.controller.StopAllTradingModesAndPauseTraders(ctx, a.stopReason, initial, false)
}
