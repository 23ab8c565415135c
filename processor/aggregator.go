package processor

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fundingflow/internal/model"
	"fundingflow/logger"
)

// annualizationFactor converts a per-hour fractional funding spread into a
// yearly percentage. Readers own the conversion of their venue's native
// funding period to hourly, so the factor is uniform here.
var annualizationFactor = decimal.NewFromInt(24 * 365 * 100)

var oneHundred = decimal.NewFromInt(100)

// Aggregator turns the per-venue snapshot lists of one cycle into a ranked
// CandidateSet. It holds no state between cycles.
type Aggregator struct {
	log *logger.Log
}

func NewAggregator() *Aggregator {
	return &Aggregator{log: logger.GetLogger()}
}

// Aggregate merges the given per-venue snapshot collections by currency
// name, enumerates every unordered venue pair within each currency group,
// computes the derived economics and returns the candidates sorted by
// annualized yield descending. Input slices may be reordered in place.
func (a *Aggregator) Aggregate(perVenue [][]model.FundingSnapshot) model.CandidateSet {
	start := time.Now()

	merged := mergeByCurrency(perVenue)

	candidates := make([]model.PositionCandidate, 0, len(merged))
	for groupStart := 0; groupStart < len(merged); {
		groupEnd := groupStart + 1
		for groupEnd < len(merged) && merged[groupEnd].CurrencyName == merged[groupStart].CurrencyName {
			groupEnd++
		}
		candidates = appendGroupCandidates(candidates, merged[groupStart:groupEnd])
		groupStart = groupEnd
	}

	// Stable so that equal yields keep generation order and repeated runs
	// on identical input produce identical output.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].AnnualizedYield.GreaterThan(candidates[j].AnnualizedYield)
	})

	set := model.CandidateSet{
		CycleID:    uuid.New().String(),
		Candidates: candidates,
	}

	log := a.log.WithComponent("aggregator").WithFields(logger.Fields{"cycle_id": set.CycleID})
	logger.LogPerformanceEntry(log, "aggregator", "aggregate", time.Since(start), logger.Fields{
		"snapshots":  len(merged),
		"candidates": len(candidates),
	})

	return set
}

// appendGroupCandidates emits one candidate per unordered pair of snapshots
// in a single-currency group. Quadratic in the group size, which is bounded
// by the number of venues.
func appendGroupCandidates(out []model.PositionCandidate, group []model.FundingSnapshot) []model.PositionCandidate {
	if len(group) < 2 {
		return out
	}
	for i := 0; i < len(group); i++ {
		for j := i + 1; j < len(group); j++ {
			out = append(out, buildCandidate(group[i], group[j]))
		}
	}
	return out
}

// buildCandidate assigns the side with the higher funding rate as long and
// derives spread, APY and the optional price spread.
func buildCandidate(a, b model.FundingSnapshot) model.PositionCandidate {
	diff := a.FundingRate.Sub(b.FundingRate)
	long, short := a, b
	if diff.Sign() < 0 {
		long, short = b, a
	}
	spread := diff.Abs()

	candidate := model.PositionCandidate{
		CurrencyName:      long.CurrencyName,
		LongVenue:         long.Venue,
		LongMarket:        long.MarketName,
		LongFundingRate:   long.FundingRate,
		LongOpenInterest:  long.OpenInterest,
		ShortVenue:        short.Venue,
		ShortMarket:       short.MarketName,
		ShortFundingRate:  short.FundingRate,
		ShortOpenInterest: short.OpenInterest,
		FundingSpread:     spread,
		AnnualizedYield:   spread.Mul(annualizationFactor),
	}

	if long.BestBid != nil && short.BestAsk != nil && !long.BestBid.IsZero() {
		priceSpread := long.BestBid.Sub(*short.BestAsk).Mul(oneHundred).Div(*long.BestBid)
		candidate.PriceSpread = &priceSpread
	}

	return candidate
}
