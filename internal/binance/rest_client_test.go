package binance

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Noslix/BinanceBot/internal/config"
	"github.com/Noslix/BinanceBot/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// setupTestServer creates a new test server and a RestClient configured to use it.
func setupTestServer(handler http.Handler) (*RestClient, *httptest.Server) {
	server := httptest.NewServer(handler)

	client := resty.New().SetBaseURL(server.URL)
	logger := zap.NewNop() // Use a no-op logger for tests

	rc := &RestClient{
		client:    client,
		apiKey:    "test_api_key",
		secretKey: "test_secret_key",
		logger:    logger,
		limiter:   rate.NewLimiter(rate.Inf, 1), // Allow all requests in tests
	}

	return rc, server
}

func TestPing(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/ping", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		assert.NoError(t, rc.Ping())
	})

	t.Run("APIError", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code": -1000, "msg": "unknown"}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		assert.Error(t, rc.Ping())
	})
}

func TestGetBalances(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/account", r.URL.Path)
		assert.Equal(t, "test_api_key", r.Header.Get("X-MBX-APIKEY"))
		assert.NotEmpty(t, r.URL.Query().Get("signature"))
		assert.NotEmpty(t, r.URL.Query().Get("timestamp"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"balances": [
			{"asset": "BTC", "free": "0.5", "locked": "0.1"},
			{"asset": "EUR", "free": "1000.00", "locked": "0"},
			{"asset": "BAD", "free": "garbage", "locked": "0"}
		]}`))
	})

	rc, server := setupTestServer(handler)
	defer server.Close()

	balances, err := rc.GetBalances()

	assert.NoError(t, err)
	// The unparsable balance is skipped, not fatal.
	if assert.Len(t, balances, 2) {
		assert.Equal(t, "BTC", balances[0].Asset)
		assert.Equal(t, "0.6", balances[0].Total().String())
	}

	free, err := rc.GetFreeBalance("EUR")
	assert.NoError(t, err)
	assert.True(t, free.Equal(decimal.NewFromInt(1000)))

	// An asset missing from the account reads as zero.
	free, err = rc.GetFreeBalance("DOGE")
	assert.NoError(t, err)
	assert.True(t, free.IsZero())
}

func TestGetTradeRule(t *testing.T) {
	t.Run("WithNotionalFilter", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/exchangeInfo", r.URL.Path)
			assert.Equal(t, "BTCEUR", r.URL.Query().Get("symbol"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"symbols": [{"symbol": "BTCEUR", "status": "TRADING",
				"filters": [{"filterType": "LOT_SIZE", "stepSize": "0.00001"},
				            {"filterType": "NOTIONAL", "minNotional": "10.00"}]}]}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		rule, err := rc.GetTradeRule("BTCEUR")
		assert.NoError(t, err)
		assert.True(t, rule.Known)
		assert.Equal(t, "10", rule.MinNotional.String())
	})

	t.Run("NoNotionalFilterIsAConfirmedZeroFloor", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"symbols": [{"symbol": "BTCEUR", "status": "TRADING", "filters": []}]}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		rule, err := rc.GetTradeRule("BTCEUR")
		assert.NoError(t, err)
		assert.True(t, rule.Known)
		assert.True(t, rule.MinNotional.IsZero())
	})

	t.Run("APIErrorLeavesRuleUnknown", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code": -1121, "msg": "Invalid symbol."}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		rule, err := rc.GetTradeRule("BTCEUR")
		assert.Error(t, err)
		assert.False(t, rule.Known)
	})
}

func TestGetKlines(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/klines", r.URL.Path)
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			[1700000000000, "100.0", "101.0", "99.0", "100.5", "12.3"],
			[1700003600000, "100.5", "102.0", "100.0", "101.2", "8.1"],
			[1700007200000, "101.2", "101.5", "96.0", "96.4", "20.0"]
		]`))
	})

	rc, server := setupTestServer(handler)
	defer server.Close()

	klines, err := rc.GetKlines("BTCEUR", KlineInterval1Hour, 3)

	assert.NoError(t, err)
	if assert.Len(t, klines, 3) {
		assert.Equal(t, "100", klines[0].Open.String())
		assert.Equal(t, "96.4", klines[2].Close.String())
		assert.True(t, klines[0].OpenTime.Before(klines[2].OpenTime))
	}
}

func TestGetOpenOrderCount(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openOrders", r.URL.Path)
		assert.Equal(t, "BTCEUR", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"symbol": "BTCEUR", "orderId": 1}, {"symbol": "BTCEUR", "orderId": 2}]`))
	})

	rc, server := setupTestServer(handler)
	defer server.Close()

	count, err := rc.GetOpenOrderCount("BTCEUR")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCreateOrder(t *testing.T) {
	t.Run("QuoteSized", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/order", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "BTCEUR", r.PostForm.Get("symbol"))
			assert.Equal(t, "BUY", r.PostForm.Get("side"))
			assert.Equal(t, "MARKET", r.PostForm.Get("type"))
			assert.Equal(t, "100.00", r.PostForm.Get("quoteOrderQty"))
			assert.Empty(t, r.PostForm.Get("quantity"))
			assert.NotEmpty(t, r.PostForm.Get("signature"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"symbol": "BTCEUR", "orderId": 42, "status": "FILLED",
				"executedQty": "0.00250000", "cummulativeQuoteQty": "100.00000000", "side": "BUY"}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		intent := models.NewQuoteOrder("BTCEUR", models.OrderSideBuy, decimal.RequireFromString("100"))
		resp, err := rc.CreateOrder(intent)

		assert.NoError(t, err)
		assert.Equal(t, int64(42), resp.OrderID)
		assert.Equal(t, "FILLED", resp.Status)
	})

	t.Run("BaseSized", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "SELL", r.PostForm.Get("side"))
			assert.Equal(t, "0.04", r.PostForm.Get("quantity"))
			assert.Empty(t, r.PostForm.Get("quoteOrderQty"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"symbol": "BTCEUR", "orderId": 43, "status": "FILLED", "side": "SELL"}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		intent := models.NewBaseOrder("BTCEUR", models.OrderSideSell, decimal.RequireFromString("0.04"))
		resp, err := rc.CreateOrder(intent)

		assert.NoError(t, err)
		assert.Equal(t, int64(43), resp.OrderID)
	})

	t.Run("RejectedOrder", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code": -1013, "msg": "Filter failure: NOTIONAL"}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		intent := models.NewQuoteOrder("BTCEUR", models.OrderSideBuy, decimal.RequireFromString("1"))
		_, err := rc.CreateOrder(intent)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "NOTIONAL")
	})
}

func TestNewRestClient(t *testing.T) {
	t.Run("Testnet", func(t *testing.T) {
		cfg := &config.Binance{Testnet: true}
		logger := zap.NewNop()
		rc := NewRestClient(cfg, logger)
		assert.NotNil(t, rc)
		assert.Equal(t, cfg.ApiKey, rc.apiKey)
		assert.Equal(t, cfg.SecretKey, rc.secretKey)
	})

	t.Run("Production", func(t *testing.T) {
		cfg := &config.Binance{Testnet: false}
		logger := zap.NewNop()
		rc := NewRestClient(cfg, logger)
		assert.NotNil(t, rc)
		assert.Equal(t, cfg.ApiKey, rc.apiKey)
		assert.Equal(t, cfg.SecretKey, rc.secretKey)
	})
}
