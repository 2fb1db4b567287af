package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderIntent describes a single market order to be placed on the exchange.
// Exactly one of QuoteAmount or BaseQuantity is positive, depending on
// whether the order is sized in quote currency or in base asset units.
// An intent is immutable once constructed.
type OrderIntent struct {
	Symbol       string
	Side         OrderSide
	QuoteAmount  decimal.Decimal
	BaseQuantity decimal.Decimal
}

// NewQuoteOrder creates an intent sized in quote currency (e.g. "buy 100 EUR of BTC").
func NewQuoteOrder(symbol string, side OrderSide, amount decimal.Decimal) OrderIntent {
	return OrderIntent{Symbol: symbol, Side: side, QuoteAmount: amount}
}

// NewBaseOrder creates an intent sized in base asset units (e.g. "sell 0.002 BTC").
func NewBaseOrder(symbol string, side OrderSide, quantity decimal.Decimal) OrderIntent {
	return OrderIntent{Symbol: symbol, Side: side, BaseQuantity: quantity}
}

func (i OrderIntent) String() string {
	if i.BaseQuantity.IsPositive() {
		return fmt.Sprintf("%s %s %s (base)", i.Side, i.BaseQuantity, i.Symbol)
	}
	return fmt.Sprintf("%s %s %s (quote)", i.Side, i.QuoteAmount, i.Symbol)
}
