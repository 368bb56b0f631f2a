package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"trade-automation-bot-go/internal/automation"
	"trade-automation-bot-go/internal/community"
	"trade-automation-bot-go/internal/exchange"
	"trade-automation-bot-go/internal/models"
)

// MockCommunityClient is a mock implementation of the community.Client interface.
type MockCommunityClient struct {
	mock.Mock
}

func (m *MockCommunityClient) UpdateDeployment(ctx context.Context, deploymentID string, update map[string]any) error {
	args := m.Called(ctx, deploymentID, update)
	return args.Error(0)
}

func (m *MockCommunityClient) UpdateBotProductsSubscription(ctx context.Context, subscriptionID string, update map[string]any) error {
	args := m.Called(ctx, subscriptionID, update)
	return args.Error(0)
}

func (m *MockCommunityClient) InsertBotLog(ctx context.Context, botID string, logType community.BotLogType, content map[string]any) error {
	args := m.Called(ctx, botID, logType, content)
	return args.Error(0)
}

func (m *MockCommunityClient) FetchBotProductsSubscription(ctx context.Context, botID string) (*community.ProductsSubscription, error) {
	args := m.Called(ctx, botID)
	if subscription := args.Get(0); subscription != nil {
		return subscription.(*community.ProductsSubscription), args.Error(1)
	}
	return nil, args.Error(1)
}

type failingMode struct {
	name string
}

func (m *failingMode) Name() string { return m.name }
func (m *failingMode) StopStrategyExecution(string) error {
	return errors.New("stop refused")
}
func (m *failingMode) IsStopped() bool { return false }

// setupAPI creates a full bot API over one exchange manager with one running
// trading mode, an in-memory DB and a mocked hosted-account backend.
func setupAPI(t *testing.T) (*API, *exchange.Manager, *exchange.StrategyMode, *MockCommunityClient, *gorm.DB) {
	// Use a new, non-shared in-memory database for each test to ensure isolation.
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.StopEvent{}))

	registry := exchange.NewRegistry()
	manager := exchange.NewManager("binance", "binance-1", []string{"BTCUSDT"}, zap.NewNop())
	mode := exchange.NewStrategyMode("grid")
	manager.AddTradingMode(mode)
	registry.Register(manager)

	mockClient := new(MockCommunityClient)
	account := &community.UserAccount{BotID: "bot-1", DeploymentID: "deploy-1"}
	communityBot := community.NewBot(mockClient, account, true, zap.NewNop())

	producer := NewExchangeProducer(registry, nil, zap.NewNop())
	api := NewAPI(producer, communityBot, db, zap.NewNop())
	return api, manager, mode, mockClient, db
}

func TestAPI_StopAllTradingModesAndPauseTraders(t *testing.T) {
	// Arrange
	api, manager, mode, mockClient, db := setupAPI(t)
	mockClient.On("UpdateDeployment", mock.Anything, "deploy-1",
		map[string]any{"error_status": "stop_condition_triggered"}).Return(nil)
	mockClient.On("InsertBotLog", mock.Anything, "bot-1", community.BotLogStoppedStrategyExecution,
		map[string]any{"reason": "volatility spike"}).Return(nil)
	details := &automation.ExecutionDetails{Timestamp: 1_700_000_000, Description: "volatility spike"}

	// Act
	err := api.StopAllTradingModesAndPauseTraders(
		context.Background(), automation.StopReasonStopConditionTriggered, details, false)

	// Assert: strategy stopped, trader paused, hosted account updated
	assert.NoError(t, err)
	assert.True(t, mode.IsStopped())
	assert.False(t, manager.IsTradingEnabled())
	mockClient.AssertExpectations(t)

	var events []models.StopEvent
	assert.NoError(t, db.Find(&events).Error)
	assert.Len(t, events, 1)
	assert.Equal(t, "stop_condition_triggered", events[0].StopReason)
	assert.Equal(t, "volatility spike", events[0].Details)
}

func TestAPI_StopRequestIsIdempotent(t *testing.T) {
	// Arrange
	api, _, _, mockClient, db := setupAPI(t)
	mockClient.On("UpdateDeployment", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	mockClient.On("InsertBotLog", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	details := &automation.ExecutionDetails{Timestamp: 1_700_000_000, Description: "volatility spike"}

	// Act: the second request finds everything already stopped
	assert.NoError(t, api.StopAllTradingModesAndPauseTraders(
		context.Background(), automation.StopReasonStopConditionTriggered, details, false))
	assert.NoError(t, api.StopAllTradingModesAndPauseTraders(
		context.Background(), automation.StopReasonStopConditionTriggered, details, false))

	// Assert: the hosted account saw one update, one stop event was recorded
	mockClient.AssertNumberOfCalls(t, "UpdateDeployment", 1)
	var events []models.StopEvent
	assert.NoError(t, db.Find(&events).Error)
	assert.Len(t, events, 1)
}

func TestAPI_ExchangeFailureDoesNotHideTheStop(t *testing.T) {
	// Arrange: one trading mode refuses to stop
	api, manager, _, mockClient, db := setupAPI(t)
	manager.AddTradingMode(&failingMode{name: "broken"})
	mockClient.On("UpdateDeployment", mock.Anything, "deploy-1", mock.Anything).Return(nil)
	mockClient.On("InsertBotLog", mock.Anything, "bot-1", mock.Anything, mock.Anything).Return(nil)
	details := &automation.ExecutionDetails{Timestamp: 1_700_000_000, Description: "volatility spike"}

	// Act
	err := api.StopAllTradingModesAndPauseTraders(
		context.Background(), automation.StopReasonStopConditionTriggered, details, false)

	// Assert: the failure is absorbed, reporting and recording still happen
	assert.NoError(t, err)
	assert.False(t, manager.IsTradingEnabled())
	mockClient.AssertExpectations(t)

	var events []models.StopEvent
	assert.NoError(t, db.Find(&events).Error)
	assert.Len(t, events, 1)
}

func TestExchangeProducer_AreAllTradingModesStoppedAndTradersPaused(t *testing.T) {
	registry := exchange.NewRegistry()
	manager := exchange.NewManager("binance", "binance-1", nil, zap.NewNop())
	mode := exchange.NewStrategyMode("grid")
	manager.AddTradingMode(mode)
	registry.Register(manager)
	producer := NewExchangeProducer(registry, nil, zap.NewNop())

	assert.False(t, producer.AreAllTradingModesStoppedAndTradersPaused())

	assert.NoError(t, producer.StopAllTradingModesAndPauseTraders(
		context.Background(), &automation.ExecutionDetails{Description: "stop everything"}))

	assert.True(t, producer.AreAllTradingModesStoppedAndTradersPaused())
	assert.True(t, mode.IsStopped())
	assert.False(t, manager.IsTradingEnabled())
}

func TestExchangeProducer_GathersFailures(t *testing.T) {
	registry := exchange.NewRegistry()
	manager := exchange.NewManager("binance", "binance-1", nil, zap.NewNop())
	working := exchange.NewStrategyMode("grid")
	manager.AddTradingMode(working)
	manager.AddTradingMode(&failingMode{name: "broken"})
	registry.Register(manager)
	producer := NewExchangeProducer(registry, nil, zap.NewNop())

	err := producer.StopAllTradingModesAndPauseTraders(context.Background(), nil)

	// the working mode stopped and the trader paused despite the failure
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.True(t, working.IsStopped())
	assert.False(t, manager.IsTradingEnabled())
}
