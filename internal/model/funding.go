package model

import (
	"github.com/shopspring/decimal"
)

// Venue identifies the exchange a funding snapshot came from.
type Venue string

const (
	VenueHyperliquid Venue = "hyperliquid"
	VenueExtended    Venue = "extended"
	VenueParadex     Venue = "paradex"
	VenueBinance     Venue = "binance"
	VenueBybit       Venue = "bybit"
)

// FundingSnapshot is one venue's view of one perpetual instrument at fetch
// time. CurrencyName is the cross-venue join key and must be non-empty; two
// snapshots with the same CurrencyName are treated as the same underlying
// asset. FundingRate is a per-hour fraction: every reader normalizes its
// native funding period to hourly before producing a snapshot.
type FundingSnapshot struct {
	CurrencyName string          `json:"currency_name"`
	MarketName   string          `json:"market_name"`
	Venue        Venue           `json:"venue"`
	FundingRate  decimal.Decimal `json:"funding_rate"`

	// Optional fields; nil when the venue does not report them.
	OpenInterest *decimal.Decimal `json:"open_interest,omitempty"`
	BestBid      *decimal.Decimal `json:"best_bid,omitempty"`
	BestAsk      *decimal.Decimal `json:"best_ask,omitempty"`
}

// PositionCandidate is a derived long/short venue pair for one currency.
// Long is always the side with the higher funding rate, fixed at
// construction. Candidates are never mutated after being built.
type PositionCandidate struct {
	CurrencyName string `json:"currency_name"`

	LongVenue        Venue            `json:"long_venue"`
	LongMarket       string           `json:"long_market"`
	LongFundingRate  decimal.Decimal  `json:"long_funding_rate"`
	LongOpenInterest *decimal.Decimal `json:"long_open_interest,omitempty"`

	ShortVenue        Venue            `json:"short_venue"`
	ShortMarket       string           `json:"short_market"`
	ShortFundingRate  decimal.Decimal  `json:"short_funding_rate"`
	ShortOpenInterest *decimal.Decimal `json:"short_open_interest,omitempty"`

	// FundingSpread is |long - short| per hour.
	FundingSpread decimal.Decimal `json:"funding_spread"`
	// AnnualizedYield is FundingSpread scaled to a yearly percentage
	// assuming hourly accrual.
	AnnualizedYield decimal.Decimal `json:"annualized_yield"`
	// PriceSpread is (longBid - shortAsk) / longBid * 100, present only
	// when both sides report top-of-book prices.
	PriceSpread *decimal.Decimal `json:"price_spread,omitempty"`
}

// CandidateSet is one cycle's ranked output, sorted by AnnualizedYield
// descending. A set is built wholesale and replaced atomically; it is never
// partially mutated.
type CandidateSet struct {
	CycleID    string              `json:"cycle_id"`
	Candidates []PositionCandidate `json:"candidates"`
}
