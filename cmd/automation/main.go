package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"trade-automation-bot-go/internal/automation"
	"trade-automation-bot-go/internal/bot"
	"trade-automation-bot-go/internal/community"
	"trade-automation-bot-go/internal/config"
	"trade-automation-bot-go/internal/database"
	"trade-automation-bot-go/internal/exchange"
	"trade-automation-bot-go/internal/logger"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Initialize exchange REST client and check connectivity
	restClient := exchange.NewRestClient(&cfg.Exchange, log)
	if _, err := restClient.GetServerTime(ctx); err != nil {
		log.Fatal("Failed to connect to exchange API", zap.Error(err))
	}
	log.Info("Successfully connected to exchange API.")

	// Register the exchange manager and seed its portfolio
	registry := exchange.NewRegistry()
	manager := exchange.NewManager(cfg.Exchange.Name, cfg.Exchange.Name+"-1", cfg.Exchange.TradePairs, log)
	manager.AddTradingMode(exchange.NewStrategyMode("default"))
	registry.Register(manager)

	balances, err := restClient.GetAccountBalances(ctx)
	if err != nil {
		log.Fatal("Failed to fetch account balances", zap.Error(err))
	}
	for asset, holdings := range balances {
		manager.UpdatePortfolio(asset, holdings)
	}
	log.Info("Account balances initialized", zap.Int("assets", len(balances)))

	// Stream live prices into the manager's price channel
	if cfg.Exchange.WebsocketURL != "" {
		feed := exchange.NewTickerFeed(cfg.Exchange.WebsocketURL, manager, log)
		go feed.Run(ctx)
	}

	// Hosted account reporting
	communityClient := community.NewRestClient(&cfg.Community, log)
	communityBot := community.NewBot(communityClient, &community.UserAccount{
		BotID:          cfg.Community.BotID,
		DeploymentID:   cfg.Community.DeploymentID,
		SubscriptionID: cfg.Community.SubscriptionID,
	}, cfg.Community.CloudEnv, log)
	communityBot.OnStartedBot(ctx, false)

	// Bot control surface used by automation actions
	producer := bot.NewExchangeProducer(registry, restClient, log)
	botAPI := bot.NewAPI(producer, communityBot, db, log)

	// Build automation entries from configuration
	entries := make([]*automation.Entry, 0, len(cfg.Automations))
	for _, entryCfg := range cfg.Automations {
		trigger, err := automation.NewTriggerEvent(entryCfg.TriggerEvent, registry, log)
		if err != nil {
			log.Fatal("Failed to create trigger event", zap.String("automation", entryCfg.Name), zap.Error(err))
		}
		if err := trigger.ApplyConfig(entryCfg.TriggerConfig); err != nil {
			log.Fatal("Invalid trigger configuration", zap.String("automation", entryCfg.Name), zap.Error(err))
		}
		actions := make([]automation.Action, 0, len(entryCfg.Actions))
		for i, actionName := range entryCfg.Actions {
			action, err := automation.NewAction(actionName, botAPI, log)
			if err != nil {
				log.Fatal("Failed to create action", zap.String("automation", entryCfg.Name), zap.Error(err))
			}
			var actionCfg automation.StepConfig
			if i < len(entryCfg.ActionConfigs) {
				actionCfg = entryCfg.ActionConfigs[i]
			}
			if err := action.ApplyConfig(actionCfg); err != nil {
				log.Fatal("Invalid action configuration", zap.String("automation", entryCfg.Name), zap.Error(err))
			}
			actions = append(actions, action)
		}
		entries = append(entries, &automation.Entry{
			Name:    entryCfg.Name,
			Trigger: trigger,
			Actions: actions,
		})
	}

	// Run the automations until shutdown
	engine := automation.NewAutomation(entries, db, log)
	engine.Start(ctx)
	<-ctx.Done()
	engine.Stop()

	log.Info("Bot has been shut down.")
}
