package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRule carries the trading constraints the exchange enforces for a symbol.
// Known distinguishes "not fetched yet" from a confirmed rule: a zero
// MinNotional with Known set means the exchange really has no floor.
type TradeRule struct {
	Symbol      string
	MinNotional decimal.Decimal
	Known       bool
}

// Balance is an account balance for a single asset, queried fresh on every
// decision tick.
type Balance struct {
	Asset  string
	Free   decimal.Decimal
	Locked decimal.Decimal
}

// Total returns free plus locked funds.
func (b Balance) Total() decimal.Decimal {
	return b.Free.Add(b.Locked)
}

// Kline is a single candlestick sample from the exchange price series.
type Kline struct {
	OpenTime time.Time
	Open     decimal.Decimal
	Close    decimal.Decimal
}
