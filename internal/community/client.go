package community

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trade-automation-bot-go/internal/config"
)

// ProductsSubscription is the hosted account's subscription attached to a bot.
type ProductsSubscription struct {
	ID            string `json:"id"`
	DesiredStatus string `json:"desired_status"`
}

// Client is the hosted-account backend API surface the bot needs.
type Client interface {
	UpdateDeployment(ctx context.Context, deploymentID string, update map[string]any) error
	UpdateBotProductsSubscription(ctx context.Context, subscriptionID string, update map[string]any) error
	InsertBotLog(ctx context.Context, botID string, logType BotLogType, content map[string]any) error
	FetchBotProductsSubscription(ctx context.Context, botID string) (*ProductsSubscription, error)
}

// RestClient talks to the hosted-account backend over REST.
type RestClient struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

var _ Client = (*RestClient)(nil)

// NewRestClient creates a hosted-account backend client.
func NewRestClient(cfg *config.Community, logger *zap.Logger) *RestClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Authorization", "Bearer "+cfg.ApiKey)
	return &RestClient{
		client:  client,
		logger:  logger.Named("community-client"),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
	}
}

func (c *RestClient) do(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}
	c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
	}
	return resp, nil
}

// UpdateDeployment patches the given deployment.
func (c *RestClient) UpdateDeployment(ctx context.Context, deploymentID string, update map[string]any) error {
	req := c.client.R().SetContext(ctx).SetBody(update)
	url := fmt.Sprintf("/deployments/%s", deploymentID)
	if _, err := c.do(ctx, "PATCH", url, req); err != nil {
		return fmt.Errorf("failed to update deployment %s: %w", deploymentID, err)
	}
	return nil
}

// UpdateBotProductsSubscription patches the given products subscription.
func (c *RestClient) UpdateBotProductsSubscription(ctx context.Context, subscriptionID string, update map[string]any) error {
	req := c.client.R().SetContext(ctx).SetBody(update)
	url := fmt.Sprintf("/bot-products-subscriptions/%s", subscriptionID)
	if _, err := c.do(ctx, "PATCH", url, req); err != nil {
		return fmt.Errorf("failed to update products subscription %s: %w", subscriptionID, err)
	}
	return nil
}

// InsertBotLog pushes one bot log entry.
func (c *RestClient) InsertBotLog(ctx context.Context, botID string, logType BotLogType, content map[string]any) error {
	body := map[string]any{
		"type":    string(logType),
		"content": content,
	}
	req := c.client.R().SetContext(ctx).SetBody(body)
	url := fmt.Sprintf("/bots/%s/logs", botID)
	if _, err := c.do(ctx, "POST", url, req); err != nil {
		return fmt.Errorf("failed to insert bot log for bot %s: %w", botID, err)
	}
	return nil
}

// FetchBotProductsSubscription fetches the products subscription of a bot.
// It returns nil without error when the bot has none.
func (c *RestClient) FetchBotProductsSubscription(ctx context.Context, botID string) (*ProductsSubscription, error) {
	var subscription ProductsSubscription
	req := c.client.R().SetContext(ctx).SetResult(&subscription)
	url := fmt.Sprintf("/bots/%s/products-subscription", botID)
	resp, err := c.do(ctx, "GET", url, req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products subscription for bot %s: %w", botID, err)
	}
	if resp.StatusCode() == 204 || subscription.ID == "" {
		return nil, nil
	}
	return &subscription, nil
}
