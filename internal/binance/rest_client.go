package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Noslix/BinanceBot/internal/config"
	"github.com/Noslix/BinanceBot/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	baseURL         = "https://api.binance.com/api/v3"
	testnetBaseURL  = "https://testnet.binance.vision/api/v3"
	recvWindow      = "5000" // How long a request is valid in milliseconds
	orderTypeMarket = "MARKET"

	// KlineInterval1Hour is the sample spacing used by the volatility lookback.
	KlineInterval1Hour = "1h"
)

// RestClientInterface defines the interface for the Binance REST API client.
// It is the ledger gateway contract consumed by the trading core.
type RestClientInterface interface {
	Ping() error
	GetFreeBalance(asset string) (decimal.Decimal, error)
	GetBalances() ([]models.Balance, error)
	GetTradeRule(symbol string) (models.TradeRule, error)
	GetKlines(symbol, interval string, limit int) ([]models.Kline, error)
	GetOpenOrderCount(symbol string) (int, error)
	CreateOrder(intent models.OrderIntent) (*CreateOrderResponse, error)
}

// RestClient is a client for the Binance REST API.
// It implements the RestClientInterface.
type RestClient struct {
	client    *resty.Client
	apiKey    string
	secretKey string
	logger    *zap.Logger
	limiter   *rate.Limiter
}

// ensure RestClient implements the interface
var _ RestClientInterface = (*RestClient)(nil)

// NewRestClient creates a new Binance REST API client.
func NewRestClient(cfg *config.Binance, logger *zap.Logger) *RestClient {
	var url string
	if cfg.Testnet {
		url = testnetBaseURL
		logger.Warn("Using Binance Testnet")
	} else {
		url = baseURL
		logger.Info("Using Binance Production API")
	}

	client := resty.New().SetBaseURL(url)

	// Initialize the rate limiter
	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &RestClient{
		client:    client,
		apiKey:    cfg.ApiKey,
		secretKey: cfg.SecretKey,
		logger:    logger,
		limiter:   limiter,
	}
}

// sign creates a HMAC-SHA256 signature for the request.
func (c *RestClient) sign(data string) string {
	h := hmac.New(sha256.New, []byte(c.secretKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// signedParams appends the timestamp, recvWindow and signature to a query.
func (c *RestClient) signedParams(params url.Values) url.Values {
	params.Set("timestamp", fmt.Sprintf("%d", time.Now().UnixMilli()))
	params.Set("recvWindow", recvWindow)
	params.Set("signature", c.sign(params.Encode()))
	return params
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
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
			if statusCode == http.StatusTooManyRequests || statusCode == 418 { // HTTP 429 or 418
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

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// Ping checks connectivity to the exchange.
func (c *RestClient) Ping() error {
	req := c.client.R()
	if _, err := c.doRequest(context.Background(), "GET", "/ping", req); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

type accountBalance struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

type accountResponse struct {
	Balances []accountBalance `json:"balances"`
}

// GetBalances fetches all account balances. Balances are queried fresh on
// every call and never cached, funds change between ticks.
func (c *RestClient) GetBalances() ([]models.Balance, error) {
	params := c.signedParams(url.Values{})

	req := c.client.R().
		SetHeader("X-MBX-APIKEY", c.apiKey).
		SetQueryParamsFromValues(params).
		SetResult(&accountResponse{})

	resp, err := c.doRequest(context.Background(), "GET", "/account", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get account balances: %w", err)
	}

	account := resp.Result().(*accountResponse)
	balances := make([]models.Balance, 0, len(account.Balances))
	for _, b := range account.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			c.logger.Warn("Skipping balance with unparsable free amount",
				zap.String("asset", b.Asset), zap.String("free", b.Free))
			continue
		}
		locked, err := decimal.NewFromString(b.Locked)
		if err != nil {
			locked = decimal.Zero
		}
		balances = append(balances, models.Balance{Asset: b.Asset, Free: free, Locked: locked})
	}
	return balances, nil
}

// GetFreeBalance returns the free (unlocked) funds for a single asset.
// An asset that does not appear in the account is treated as a zero balance.
func (c *RestClient) GetFreeBalance(asset string) (decimal.Decimal, error) {
	balances, err := c.GetBalances()
	if err != nil {
		return decimal.Zero, err
	}
	for _, b := range balances {
		if b.Asset == asset {
			return b.Free, nil
		}
	}
	return decimal.Zero, nil
}

// exchangeInfoResponse represents the response from the /exchangeInfo endpoint.
type exchangeInfoResponse struct {
	Symbols []symbolInfo `json:"symbols"`
}

type symbolInfo struct {
	Symbol  string         `json:"symbol"`
	Status  string         `json:"status"`
	Filters []symbolFilter `json:"filters"`
}

// symbolFilter represents a single filter for a symbol. We are interested in
// the NOTIONAL / MIN_NOTIONAL filters to learn the minimum order value.
type symbolFilter struct {
	FilterType  string `json:"filterType"`
	MinNotional string `json:"minNotional,omitempty"`
}

// GetTradeRule fetches the trading rule for a symbol. A rule without a
// notional filter is returned as Known with a zero floor: the exchange
// confirmed there is no minimum, which is different from not knowing one.
func (c *RestClient) GetTradeRule(symbol string) (models.TradeRule, error) {
	req := c.client.R().
		SetQueryParam("symbol", symbol).
		SetResult(&exchangeInfoResponse{})

	resp, err := c.doRequest(context.Background(), "GET", "/exchangeInfo", req)
	if err != nil {
		return models.TradeRule{Symbol: symbol}, fmt.Errorf("failed to get exchange info: %w", err)
	}

	info := resp.Result().(*exchangeInfoResponse)
	rule := models.TradeRule{Symbol: symbol, Known: true}
	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		for _, f := range s.Filters {
			if f.FilterType == "NOTIONAL" || f.FilterType == "MIN_NOTIONAL" {
				min, err := decimal.NewFromString(f.MinNotional)
				if err != nil {
					return models.TradeRule{Symbol: symbol}, fmt.Errorf("unparsable minNotional %q: %w", f.MinNotional, err)
				}
				rule.MinNotional = min
				return rule, nil
			}
		}
	}
	return rule, nil
}

// GetKlines fetches up to limit candlestick samples, oldest first.
func (c *RestClient) GetKlines(symbol, interval string, limit int) ([]models.Kline, error) {
	var raw [][]interface{}

	req := c.client.R().
		SetQueryParams(map[string]string{
			"symbol":   symbol,
			"interval": interval,
			"limit":    strconv.Itoa(limit),
		}).
		SetResult(&raw)

	_, err := c.doRequest(context.Background(), "GET", "/klines", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get klines: %w", err)
	}

	klines := make([]models.Kline, 0, len(raw))
	for _, row := range raw {
		// Kline rows are [openTime, open, high, low, close, ...].
		if len(row) < 5 {
			continue
		}
		openTime, ok := row[0].(float64)
		if !ok {
			continue
		}
		openStr, okOpen := row[1].(string)
		closeStr, okClose := row[4].(string)
		if !okOpen || !okClose {
			continue
		}
		open, err1 := decimal.NewFromString(openStr)
		closePrice, err2 := decimal.NewFromString(closeStr)
		if err1 != nil || err2 != nil {
			continue
		}
		klines = append(klines, models.Kline{
			OpenTime: time.UnixMilli(int64(openTime)),
			Open:     open,
			Close:    closePrice,
		})
	}
	return klines, nil
}

type openOrder struct {
	Symbol  string `json:"symbol"`
	OrderID int64  `json:"orderId"`
}

// GetOpenOrderCount returns the number of open orders for a symbol.
func (c *RestClient) GetOpenOrderCount(symbol string) (int, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params = c.signedParams(params)

	var orders []openOrder
	req := c.client.R().
		SetHeader("X-MBX-APIKEY", c.apiKey).
		SetQueryParamsFromValues(params).
		SetResult(&orders)

	if _, err := c.doRequest(context.Background(), "GET", "/openOrders", req); err != nil {
		return 0, fmt.Errorf("failed to get open orders: %w", err)
	}
	return len(orders), nil
}

// CreateOrderResponse represents the response from creating a new order.
type CreateOrderResponse struct {
	Symbol              string `json:"symbol"`
	OrderID             int64  `json:"orderId"`
	ClientOrderID       string `json:"clientOrderId"`
	TransactTime        int64  `json:"transactTime"`
	Price               string `json:"price"`
	OrigQuantity        string `json:"origQty"`
	ExecutedQuantity    string `json:"executedQty"`
	CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
	Status              string `json:"status"`
	Type                string `json:"type"`
	Side                string `json:"side"`
}

// CreateOrder places a market order described by the intent. Quote-sized
// intents use quoteOrderQty, base-sized ones use quantity.
func (c *RestClient) CreateOrder(intent models.OrderIntent) (*CreateOrderResponse, error) {
	params := url.Values{}
	params.Set("symbol", intent.Symbol)
	params.Set("side", string(intent.Side))
	params.Set("type", orderTypeMarket)
	if intent.BaseQuantity.IsPositive() {
		params.Set("quantity", intent.BaseQuantity.String())
	} else {
		params.Set("quoteOrderQty", intent.QuoteAmount.StringFixed(2))
	}
	params = c.signedParams(params)

	req := c.client.R().
		SetHeader("X-MBX-APIKEY", c.apiKey).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(params.Encode()).
		SetResult(&CreateOrderResponse{})

	resp, err := c.doRequest(context.Background(), "POST", "/order", req)
	if err != nil {
		c.logger.Error("Failed to create order after multiple attempts",
			zap.Error(err),
			zap.String("symbol", intent.Symbol),
		)
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	result := resp.Result().(*CreateOrderResponse)
	c.logger.Info("Successfully created order", zap.Any("order", result))
	return result, nil
}
