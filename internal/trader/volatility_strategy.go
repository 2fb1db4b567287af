package trader

import (
	"context"
	"fmt"
	"time"

	"github.com/Noslix/BinanceBot/internal/binance"
	"github.com/Noslix/BinanceBot/internal/config"
	"github.com/Noslix/BinanceBot/internal/models"
	"github.com/Noslix/BinanceBot/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// VolatilityStrategy trades only when the price moved enough: it buys a
// fixed quote amount after a drop of at least the threshold over the
// lookback window, and can optionally sell when the price runs above the
// rolling average by the same threshold. At most one action per calendar
// day (UTC), enforced through the durable purchase record.
type VolatilityStrategy struct {
	client    binance.RestClientInterface
	rules     *RuleCache
	purchases *store.PurchaseStore
	logger    *zap.Logger

	symbol        string
	quoteAsset    string
	quoteAmount   decimal.Decimal
	threshold     decimal.Decimal
	lookbackHours int
	sellEnabled   bool

	now func() time.Time
}

// NewVolatilityStrategy creates the volatility-triggered policy from configuration.
func NewVolatilityStrategy(cfg *config.Trading, client binance.RestClientInterface, rules *RuleCache, purchases *store.PurchaseStore, logger *zap.Logger) *VolatilityStrategy {
	return &VolatilityStrategy{
		client:        client,
		rules:         rules,
		purchases:     purchases,
		logger:        logger.Named("volatility"),
		symbol:        cfg.Symbol,
		quoteAsset:    cfg.QuoteAsset,
		quoteAmount:   decimal.NewFromFloat(cfg.QuoteAmount),
		threshold:     decimal.NewFromFloat(cfg.DropThreshold),
		lookbackHours: cfg.LookbackHours,
		sellEnabled:   cfg.SellEnabled,
		now:           time.Now,
	}
}

// Name returns the unique name of the strategy.
func (s *VolatilityStrategy) Name() string {
	return config.StrategyVolatility
}

// Decide checks the once-per-day guard, then the price movement over the
// lookback window. Insufficient sample data is "no decision", not an error.
func (s *VolatilityStrategy) Decide(ctx context.Context) (Decision, error) {
	if err := s.client.Ping(); err != nil {
		return Decision{}, fmt.Errorf("exchange unreachable: %w", err)
	}

	today := s.today()
	if last, ok := s.purchases.LastActionDate(s.symbol); ok && sameDay(last, today) {
		s.logger.Info("Already traded today, holding off", zap.String("symbol", s.symbol))
		return Decision{}, nil
	}

	klines, err := s.client.GetKlines(s.symbol, binance.KlineInterval1Hour, s.lookbackHours+1)
	if err != nil {
		return Decision{}, fmt.Errorf("could not get klines for %s: %w", s.symbol, err)
	}
	if len(klines) < s.lookbackHours+1 {
		s.logger.Warn("Not enough kline data returned",
			zap.Int("got", len(klines)),
			zap.Int("want", s.lookbackHours+1))
		return Decision{}, nil
	}

	priceThen := klines[0].Open
	priceNow := klines[len(klines)-1].Close
	if !priceThen.IsPositive() {
		return Decision{}, fmt.Errorf("invalid opening price %s for %s", priceThen, s.symbol)
	}

	change := priceNow.Sub(priceThen).Div(priceThen)
	s.logger.Info("Price movement over lookback window",
		zap.String("then", priceThen.String()),
		zap.String("now", priceNow.String()),
		zap.String("change", change.Mul(decimal.NewFromInt(100)).StringFixed(2)+"%"))

	if change.LessThanOrEqual(s.threshold.Neg()) {
		return s.buyDecision()
	}

	if s.sellEnabled {
		avg := rollingAverage(klines)
		if priceNow.GreaterThan(avg.Mul(decimal.NewFromInt(1).Add(s.threshold))) {
			// Sell the quote-equivalent amount, sized in base units.
			quantity := s.quoteAmount.DivRound(priceNow, 8)
			intent := models.NewBaseOrder(s.symbol, models.OrderSideSell, quantity)
			return Decision{Intent: &intent}, nil
		}
	}

	s.logger.Info("No trade condition met", zap.String("symbol", s.symbol))
	return Decision{}, nil
}

func (s *VolatilityStrategy) buyDecision() (Decision, error) {
	amount := s.quoteAmount.Round(2)

	rule, err := s.rules.Rule()
	if err != nil {
		s.logger.Warn("Minimum notional unknown, placing order anyway", zap.Error(err))
	}
	if rule.Known && rule.MinNotional.IsPositive() && amount.LessThan(rule.MinNotional) {
		return Decision{Skip: fmt.Sprintf("amount %s %s below minimum %s %s",
			amount.StringFixed(2), s.quoteAsset, rule.MinNotional, s.quoteAsset)}, nil
	}

	intent := models.NewQuoteOrder(s.symbol, models.OrderSideBuy, amount)
	return Decision{Intent: &intent}, nil
}

// Confirm records the action date so the once-per-day guard holds across
// restarts.
func (s *VolatilityStrategy) Confirm(ctx context.Context, intent models.OrderIntent) {
	if err := s.purchases.SetLastActionDate(s.symbol, s.today()); err != nil {
		s.logger.Error("Failed to record action date", zap.Error(err))
	}
}

func (s *VolatilityStrategy) today() time.Time {
	return s.now().UTC().Truncate(24 * time.Hour)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// rollingAverage is the mean closing price over the full sample window.
func rollingAverage(klines []models.Kline) decimal.Decimal {
	sum := decimal.Zero
	for _, k := range klines {
		sum = sum.Add(k.Close)
	}
	return sum.DivRound(decimal.NewFromInt(int64(len(klines))), 8)
}
