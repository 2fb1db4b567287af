package trader

import (
	"sync"

	"github.com/Noslix/BinanceBot/internal/binance"
	"github.com/Noslix/BinanceBot/internal/models"
	"go.uber.org/zap"
)

// RuleCache lazily fetches and caches the trade rule for one symbol. The
// rule rarely changes, so it is fetched once and reused; Invalidate forces
// a refetch on the next lookup, e.g. after the exchange rejected an order
// for a notional violation while the rule was still unknown.
type RuleCache struct {
	client binance.RestClientInterface
	symbol string
	logger *zap.Logger

	mu   sync.Mutex
	rule *models.TradeRule
}

// NewRuleCache creates an empty cache for the symbol.
func NewRuleCache(client binance.RestClientInterface, symbol string, logger *zap.Logger) *RuleCache {
	return &RuleCache{
		client: client,
		symbol: symbol,
		logger: logger.Named("rules"),
	}
}

// Rule returns the cached trade rule, fetching it on first use. When the
// fetch fails the returned rule is explicitly not Known and the caller
// decides how to degrade; the error is informational.
func (c *RuleCache) Rule() (models.TradeRule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rule != nil {
		return *c.rule, nil
	}

	rule, err := c.client.GetTradeRule(c.symbol)
	if err != nil {
		c.logger.Warn("Failed to fetch trade rule", zap.String("symbol", c.symbol), zap.Error(err))
		return models.TradeRule{Symbol: c.symbol}, err
	}

	c.rule = &rule
	c.logger.Info("Cached trade rule",
		zap.String("symbol", c.symbol),
		zap.String("min_notional", rule.MinNotional.String()))
	return rule, nil
}

// Invalidate drops the cached rule so the next Rule call refetches it.
func (c *RuleCache) Invalidate() {
	c.mu.Lock()
	c.rule = nil
	c.mu.Unlock()
}
