package community

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"trade-automation-bot-go/internal/automation"
)

// stoppedStrategyLogMaxPeriod debounces stopped strategy execution logs: the
// same reason is reported to the hosted account at most once per period.
const stoppedStrategyLogMaxPeriod = time.Minute

// UserAccount identifies the hosted account resources of this bot.
type UserAccount struct {
	BotID                 string
	DeploymentID          string
	SubscriptionID        string
	DeploymentErrorStatus DeploymentErrorStatus
}

// Bot pushes bot lifecycle and strategy events to the hosted account. On
// non-cloud deployments these updates are best effort: missing account state
// is skipped rather than reported as an error.
type Bot struct {
	logger     *zap.Logger
	client     Client
	account    *UserAccount
	isCloudEnv bool
	clock      func() time.Time

	mu                 sync.Mutex
	lastLogInsertTimes map[string]time.Time
}

// NewBot creates a hosted-account bot facade.
func NewBot(client Client, account *UserAccount, isCloudEnv bool, logger *zap.Logger) *Bot {
	return &Bot{
		logger:             logger.Named("community-bot"),
		client:             client,
		account:            account,
		isCloudEnv:         isCloudEnv,
		clock:              time.Now,
		lastLogInsertTimes: make(map[string]time.Time),
	}
}

// OnTradingModesStoppedAndTradersPaused reports a trading stop to the hosted
// account. The deployment update and the log insert are independent: one
// failing does not prevent the other, failures are logged and swallowed.
func (b *Bot) OnTradingModesStoppedAndTradersPaused(
	ctx context.Context,
	stopReason automation.StopReason,
	details *automation.ExecutionDetails,
	scheduleBotStop bool,
) {
	err := func() error {
		if scheduleBotStop {
			return b.ScheduleBotStop(ctx, stopReason)
		}
		if stopReason != "" {
			return b.UpdateDeploymentErrorStatusForStopReason(ctx, stopReason)
		}
		return nil
	}()
	if err = b.suppressLocalEnvBotError(err); err != nil {
		b.logger.Error("Error when updating hosted account after trading stop",
			zap.String("stop_reason", string(stopReason)), zap.Error(err))
	}

	if details != nil {
		err := b.suppressLocalEnvBotError(b.InsertStoppedStrategyExecutionLog(ctx, details.Description))
		if err != nil {
			b.logger.Error("Error when inserting stopped strategy execution log", zap.Error(err))
		}
	}
}

// ScheduleBotStop reports the stop reason and cancels the bot's products
// subscription so the hosted environment shuts the bot down.
func (b *Bot) ScheduleBotStop(ctx context.Context, stopReason automation.StopReason) error {
	if err := b.requireBotID(); err != nil {
		return err
	}
	if stopReason != "" {
		if err := b.UpdateDeploymentErrorStatusForStopReason(ctx, stopReason); err != nil {
			return err
		}
	}
	return b.updateProductsSubscriptionDesiredStatus(ctx, ProductSubscriptionCanceled)
}

// UpdateDeploymentErrorStatusForStopReason sets the deployment error status
// matching the given stop reason.
func (b *Bot) UpdateDeploymentErrorStatusForStopReason(ctx context.Context, stopReason automation.StopReason) error {
	return b.updateDeploymentErrorStatus(ctx, DeploymentErrorStatusFromStopReason(stopReason))
}

// EnsureClearDeploymentErrorStatus clears transient deployment error
// statuses left over from a previous run.
func (b *Bot) EnsureClearDeploymentErrorStatus(ctx context.Context) error {
	if !slices.Contains(ClearableDeploymentErrorStatuses, b.account.DeploymentErrorStatus) {
		return nil
	}
	return b.updateDeploymentErrorStatus(ctx, DeploymentErrorNone)
}

func (b *Bot) updateDeploymentErrorStatus(ctx context.Context, status DeploymentErrorStatus) error {
	if err := b.requireBotID(); err != nil {
		return err
	}
	if b.account.DeploymentID == "" {
		return ErrMissingDeployment
	}
	b.logger.Info("Updating deployment error status", zap.String("error_status", string(status)))
	if err := b.client.UpdateDeployment(ctx, b.account.DeploymentID, map[string]any{
		"error_status": string(status),
	}); err != nil {
		return err
	}
	b.account.DeploymentErrorStatus = status
	return nil
}

// InsertStoppedStrategyExecutionLog pushes a stopped strategy execution log,
// debouncing repeated identical reasons.
func (b *Bot) InsertStoppedStrategyExecutionLog(ctx context.Context, reason string) error {
	b.mu.Lock()
	now := b.clock()
	if last, ok := b.lastLogInsertTimes[reason]; ok && now.Sub(last) < stoppedStrategyLogMaxPeriod {
		b.mu.Unlock()
		b.logger.Debug("Skipping stopped strategy execution log insert, too frequent",
			zap.String("reason", reason))
		return nil
	}
	b.lastLogInsertTimes[reason] = now
	b.mu.Unlock()
	return b.insertBotLog(ctx, BotLogStoppedStrategyExecution, map[string]any{"reason": reason})
}

// OnStartedBot reports a successful startup to the hosted account: a started
// or restarted log plus a cleanup of transient deployment error statuses.
// Outside of cloud deployments this is a no-op.
func (b *Bot) OnStartedBot(ctx context.Context, restarted bool) {
	if !b.isCloudEnv {
		return
	}
	logType := BotLogBotStarted
	if restarted {
		logType = BotLogBotRestarted
	}
	if err := b.suppressLocalEnvBotError(b.insertBotLog(ctx, logType, nil)); err != nil {
		b.logger.Error("Error when inserting bot startup log", zap.Error(err))
	}
	if err := b.suppressLocalEnvBotError(b.EnsureClearDeploymentErrorStatus(ctx)); err != nil {
		b.logger.Error("Error when clearing deployment error status", zap.Error(err))
	}
}

// ShouldTradeAccordingToProductsSubscriptionAndDeploymentErrorStatus reports
// whether trading may run: the subscription must be active and the
// deployment must not carry a stop condition trigger.
func (b *Bot) ShouldTradeAccordingToProductsSubscriptionAndDeploymentErrorStatus(ctx context.Context) (bool, error) {
	subscription, err := b.fetchProductsSubscription(ctx)
	if err != nil {
		return false, err
	}
	if subscription.DesiredStatus != string(ProductSubscriptionActive) {
		return false, nil
	}
	return b.account.DeploymentErrorStatus != DeploymentErrorStopConditionTriggered, nil
}

func (b *Bot) updateProductsSubscriptionDesiredStatus(ctx context.Context, status ProductSubscriptionDesiredStatus) error {
	subscription, err := b.fetchProductsSubscription(ctx)
	if err != nil {
		return err
	}
	b.logger.Info("Updating products subscription desired status", zap.String("desired_status", string(status)))
	return b.client.UpdateBotProductsSubscription(ctx, subscription.ID, map[string]any{
		"desired_status": string(status),
	})
}

func (b *Bot) fetchProductsSubscription(ctx context.Context) (*ProductsSubscription, error) {
	if err := b.requireBotID(); err != nil {
		return nil, err
	}
	subscription, err := b.client.FetchBotProductsSubscription(ctx, b.account.BotID)
	if err != nil {
		return nil, err
	}
	if subscription == nil {
		return nil, ErrMissingProductsSubscription
	}
	return subscription, nil
}

func (b *Bot) insertBotLog(ctx context.Context, logType BotLogType, content map[string]any) error {
	if err := b.requireBotID(); err != nil {
		return err
	}
	if err := b.client.InsertBotLog(ctx, b.account.BotID, logType, content); err != nil {
		return err
	}
	b.logger.Info("Inserted bot log", zap.String("type", string(logType)))
	return nil
}

func (b *Bot) requireBotID() error {
	if b.account.BotID == "" {
		return ErrNoSelectedBot
	}
	return nil
}

// suppressLocalEnvBotError turns expected hosted-account errors into a debug
// skip outside of cloud deployments. Other errors pass through.
func (b *Bot) suppressLocalEnvBotError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrBot) && !b.isCloudEnv {
		b.logger.Info(fmt.Sprintf("Skipped bot update: %s", err))
		return nil
	}
	return err
}
