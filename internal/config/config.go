package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Exchange    Exchange          `mapstructure:"exchange"`
	Community   Community         `mapstructure:"community"`
	Automations []AutomationEntry `mapstructure:"automations"`
	Logger      Logger            `mapstructure:"logger"`
	Database    Database          `mapstructure:"database"`
}

// Exchange holds the configuration for the exchange REST and websocket access.
type Exchange struct {
	Name           string   `mapstructure:"name"`
	ApiKey         string   `mapstructure:"apiKey"`
	SecretKey      string   `mapstructure:"secretKey"`
	Testnet        bool     `mapstructure:"testnet"`
	RateLimit      float64  `mapstructure:"rate_limit"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
	WebsocketURL   string   `mapstructure:"websocket_url"`
	TradePairs     []string `mapstructure:"trade_pairs"`
}

// Community holds the configuration for the hosted-account backend.
type Community struct {
	BaseURL        string  `mapstructure:"base_url"`
	ApiKey         string  `mapstructure:"apiKey"`
	BotID          string  `mapstructure:"bot_id"`
	DeploymentID   string  `mapstructure:"deployment_id"`
	SubscriptionID string  `mapstructure:"subscription_id"`
	CloudEnv       bool    `mapstructure:"cloud_env"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// AutomationEntry describes one automation: a trigger event, a list of
// conditions and a list of actions, each with its own free-form config.
type AutomationEntry struct {
	Name          string           `mapstructure:"name"`
	TriggerEvent  string           `mapstructure:"trigger_event"`
	TriggerConfig map[string]any   `mapstructure:"trigger_config"`
	Actions       []string         `mapstructure:"actions"`
	ActionConfigs []map[string]any `mapstructure:"action_configs"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("exchange.rate_limit", 20)      // requests per second
	viper.SetDefault("exchange.rate_limit_burst", 5) // burst size
	viper.SetDefault("community.rate_limit", 5)
	viper.SetDefault("community.rate_limit_burst", 2)
	viper.SetDefault("database.dsn", "automation.db")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
