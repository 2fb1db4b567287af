package trader

import (
	"context"
	"fmt"

	"github.com/Noslix/BinanceBot/internal/binance"
	"github.com/Noslix/BinanceBot/internal/config"
	"github.com/Noslix/BinanceBot/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DCAStrategy buys the configured symbol on every tick, spending either a
// fixed quote amount or a fraction of the free quote balance. It emits no
// order when the computed amount is below the exchange minimum notional.
type DCAStrategy struct {
	client     binance.RestClientInterface
	rules      *RuleCache
	logger     *zap.Logger
	symbol     string
	quoteAsset string

	budgetRatio decimal.Decimal
	fixedAmount decimal.Decimal
}

// NewDCAStrategy creates the fixed-cadence buy policy from configuration.
func NewDCAStrategy(cfg *config.Trading, client binance.RestClientInterface, rules *RuleCache, logger *zap.Logger) *DCAStrategy {
	return &DCAStrategy{
		client:      client,
		rules:       rules,
		logger:      logger.Named("dca"),
		symbol:      cfg.Symbol,
		quoteAsset:  cfg.QuoteAsset,
		budgetRatio: decimal.NewFromFloat(cfg.BudgetRatio),
		fixedAmount: decimal.NewFromFloat(cfg.QuoteAmount),
	}
}

// Name returns the unique name of the strategy.
func (s *DCAStrategy) Name() string {
	return config.StrategyDCA
}

// Decide computes the buy amount for this tick. The balance is queried
// fresh every time, funds change between ticks.
func (s *DCAStrategy) Decide(ctx context.Context) (Decision, error) {
	var amount decimal.Decimal
	if s.fixedAmount.IsPositive() {
		amount = s.fixedAmount
	} else {
		free, err := s.client.GetFreeBalance(s.quoteAsset)
		if err != nil {
			return Decision{}, fmt.Errorf("could not get %s balance: %w", s.quoteAsset, err)
		}
		amount = free.Mul(s.budgetRatio)
	}

	// Fiat-quoted markets trade in cents.
	amount = amount.Round(2)

	if !amount.IsPositive() {
		return Decision{Skip: fmt.Sprintf("no %s funds available", s.quoteAsset)}, nil
	}

	rule, err := s.rules.Rule()
	if err != nil {
		// Unknown floor is a degraded condition, not a reason to sit out:
		// the exchange will reject a too-small order and the rule gets
		// refetched for the next tick.
		s.logger.Warn("Minimum notional unknown, placing order anyway", zap.Error(err))
	}
	if rule.Known && rule.MinNotional.IsPositive() && amount.LessThan(rule.MinNotional) {
		return Decision{Skip: fmt.Sprintf("amount %s %s below minimum %s %s",
			amount.StringFixed(2), s.quoteAsset, rule.MinNotional, s.quoteAsset)}, nil
	}

	intent := models.NewQuoteOrder(s.symbol, models.OrderSideBuy, amount)
	return Decision{Intent: &intent}, nil
}

// Confirm is a no-op: the fixed-cadence policy keeps no durable state.
func (s *DCAStrategy) Confirm(ctx context.Context, intent models.OrderIntent) {}
