package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"trade-journal-go/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const baseURL = "https://api.twelvedata.com"

// Quote is a single index/instrument quote for the dashboard ticker.
type Quote struct {
	Symbol  string  `json:"symbol"`
	Price   float64 `json:"price"`
	Change  float64 `json:"change"`
	Percent float64 `json:"percent"`
}

// ClientInterface defines the quote provider used by the dashboard.
type ClientInterface interface {
	GetQuotes(ctx context.Context) (map[string]Quote, error)
}

// Client fetches quotes from the Twelve Data REST API. Without an API key it
// serves canned quotes so the dashboard still renders in development.
type Client struct {
	client  *resty.Client
	apiKey  string
	symbols []string
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a quote client from the market config section.
func NewClient(cfg *config.Market, logger *zap.Logger) *Client {
	if cfg.ApiKey == "" {
		logger.Warn("No market API key configured, serving mock quotes")
	}

	return &Client{
		client:  resty.New().SetBaseURL(baseURL),
		apiKey:  cfg.ApiKey,
		symbols: cfg.Symbols,
		logger:  logger.Named("market"),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
	}
}

// quotePayload is the provider's per-symbol quote shape. Numeric fields come
// back as strings.
type quotePayload struct {
	Symbol        string `json:"symbol"`
	Close         string `json:"close"`
	Change        string `json:"change"`
	PercentChange string `json:"percent_change"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

// GetQuotes returns the configured symbols' latest quotes. Provider failures
// degrade to mock data rather than breaking the dashboard.
func (c *Client) GetQuotes(ctx context.Context) (map[string]Quote, error) {
	if c.apiKey == "" {
		return mockQuotes(), nil
	}

	quotes, err := c.fetchQuotes(ctx)
	if err != nil {
		c.logger.Error("Quote fetch failed, falling back to mock data", zap.Error(err))
		return mockQuotes(), nil
	}
	return quotes, nil
}

func (c *Client) fetchQuotes(ctx context.Context) (map[string]Quote, error) {
	symbolParam := ""
	for i, s := range c.symbols {
		if i > 0 {
			symbolParam += ","
		}
		symbolParam += s
	}

	req := c.client.R().
		SetQueryParam("symbol", symbolParam).
		SetQueryParam("apikey", c.apiKey)

	resp, err := c.doRequest(ctx, "GET", "/quote", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get quotes: %w", err)
	}

	// With multiple symbols the response is keyed by symbol; with one symbol
	// the payload is the quote itself.
	var bySymbol map[string]quotePayload
	if err := json.Unmarshal(resp.Body(), &bySymbol); err != nil || len(c.symbols) == 1 {
		var single quotePayload
		if err := json.Unmarshal(resp.Body(), &single); err != nil {
			return nil, fmt.Errorf("failed to decode quote response: %w", err)
		}
		bySymbol = map[string]quotePayload{single.Symbol: single}
	}

	quotes := make(map[string]Quote, len(bySymbol))
	for symbol, p := range bySymbol {
		if p.Status == "error" {
			c.logger.Warn("Provider error for symbol",
				zap.String("symbol", symbol), zap.String("message", p.Message))
			continue
		}
		price, err1 := strconv.ParseFloat(p.Close, 64)
		change, err2 := strconv.ParseFloat(p.Change, 64)
		percent, err3 := strconv.ParseFloat(p.PercentChange, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			c.logger.Warn("Unparseable quote payload", zap.String("symbol", symbol))
			continue
		}
		quotes[symbol] = Quote{Symbol: symbol, Price: price, Change: change, Percent: percent}
	}

	if len(quotes) == 0 {
		return nil, fmt.Errorf("no usable quotes in response")
	}
	return quotes, nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		if retryAfter == 0 {
			// Exponential backoff starting at one second.
			retryAfter = time.Duration(1<<i) * time.Second
		}

		c.logger.Warn("Request failed, retrying",
			zap.Int("attempt", i+1),
			zap.Duration("backoff", retryAfter),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryAfter):
		}
	}

	if err != nil {
		return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
	}
	return nil, fmt.Errorf("request failed after %d attempts with status %s", maxRetries, resp.Status())
}

// mockQuotes mirrors the development fallback of the original dashboard.
func mockQuotes() map[string]Quote {
	return map[string]Quote{
		"NSEI":  {Symbol: "NSEI", Price: 21456.75, Change: 124.50, Percent: 0.58},
		"BSESN": {Symbol: "BSESN", Price: 71345.80, Change: -140.20, Percent: -0.20},
	}
}
