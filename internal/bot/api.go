package bot

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"trade-automation-bot-go/internal/automation"
	"trade-automation-bot-go/internal/community"
	"trade-automation-bot-go/internal/models"
)

// API is the bot-level control surface. It orchestrates the exchange
// producer and the hosted-account bot and records stop events.
type API struct {
	logger       *zap.Logger
	producer     *ExchangeProducer
	communityBot *community.Bot
	db           *gorm.DB
}

var _ automation.BotController = (*API)(nil)

// NewAPI creates the bot API. db may be nil to disable stop event recording.
func NewAPI(producer *ExchangeProducer, communityBot *community.Bot, db *gorm.DB, logger *zap.Logger) *API {
	return &API{
		logger:       logger.Named("bot-api"),
		producer:     producer,
		communityBot: communityBot,
		db:           db,
	}
}

// StopAllTradingModesAndPauseTraders stops every trading mode, pauses every
// trader and reports the stop to the hosted account. It is idempotent: when
// everything is already stopped and paused the request is skipped entirely.
// Exchange-side failures are logged but never abort the hosted-account
// reporting, the stop must be visible even when partially applied.
func (a *API) StopAllTradingModesAndPauseTraders(
	ctx context.Context,
	stopReason automation.StopReason,
	details *automation.ExecutionDetails,
	scheduleBotStop bool,
) error {
	if a.producer.AreAllTradingModesStoppedAndTradersPaused() {
		a.logger.Debug("Skipping stop all trading modes and pause traders request",
			zap.String("stop_reason", string(stopReason)))
		return nil
	}
	a.logger.Info("Stopping all trading modes and pausing traders",
		zap.String("stop_reason", string(stopReason)),
		zap.Stringer("details", details),
		zap.Bool("schedule_bot_stop", scheduleBotStop))

	if err := a.producer.StopAllTradingModesAndPauseTraders(ctx, details); err != nil {
		a.logger.Error("Error when stopping trading modes", zap.Error(err))
	}
	if a.communityBot != nil {
		a.communityBot.OnTradingModesStoppedAndTradersPaused(ctx, stopReason, details, scheduleBotStop)
	}
	a.recordStopEvent(stopReason, details, scheduleBotStop)
	return nil
}

func (a *API) recordStopEvent(stopReason automation.StopReason, details *automation.ExecutionDetails, scheduleBotStop bool) {
	if a.db == nil {
		return
	}
	record := &models.StopEvent{
		StopReason:       string(stopReason),
		Details:          details.String(),
		ScheduledBotStop: scheduleBotStop,
	}
	if details != nil {
		record.Timestamp = int64(details.Timestamp)
	}
	if err := a.db.Create(record).Error; err != nil {
		a.logger.Error("Failed to record stop event", zap.Error(err))
	}
}
