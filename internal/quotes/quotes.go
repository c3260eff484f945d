package quotes

import (
	"time"

	"github.com/shopspring/decimal"
)

// Observation is any single collected market value.
type Observation interface {
	ObservedAt() time.Time
}

// Quote is a single point observation, e.g. the USD/BRL last price.
type Quote struct {
	Symbol      string
	Value       decimal.Decimal
	ValueRaw    string
	CollectedAt time.Time
}

func (q Quote) ObservedAt() time.Time { return q.CollectedAt }

// BidAskQuote carries a two-sided retail quote (buy/sell).
type BidAskQuote struct {
	Symbol      string
	Buy         decimal.Decimal
	Sell        decimal.Decimal
	BuyRaw      string
	SellRaw     string
	CollectedAt time.Time
}

func (q BidAskQuote) ObservedAt() time.Time { return q.CollectedAt }

// PtaxQuote carries the central bank's official buy/sell reference rate.
// Structurally the same as BidAskQuote; the distinct type preserves source
// identity for callers.
type PtaxQuote struct {
	Symbol      string
	Buy         decimal.Decimal
	Sell        decimal.Decimal
	BuyRaw      string
	SellRaw     string
	CollectedAt time.Time
}

func (q PtaxQuote) ObservedAt() time.Time { return q.CollectedAt }

// InterestRateQuote is a named annual interest rate, in whole percent
// (15.00 means 15% a.a.).
type InterestRateQuote struct {
	Name          string
	Value         decimal.Decimal
	ValueRaw      string
	ReferenceDate *time.Time
	CollectedAt   time.Time
}

func (q InterestRateQuote) ObservedAt() time.Time { return q.CollectedAt }
