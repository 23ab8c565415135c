package processor

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fundingflow/internal/model"
)

const candidateSeparator = "---------------------------------\n"

var (
	oneThousand = decimal.NewFromInt(1000)
	oneMillion  = decimal.NewFromInt(1_000_000)
	oneBillion  = decimal.NewFromInt(1_000_000_000)
)

// RenderCandidates formats candidates as one human-readable block per entry
// with a fixed separator between them. Rates are shown as percent per hour.
// Pure formatting, no locking; callers pass an independent copy.
func RenderCandidates(candidates []model.PositionCandidate) string {
	blocks := make([]string, 0, len(candidates))
	for _, c := range candidates {
		blocks = append(blocks, fmt.Sprintf(
			"currency:       %s\n"+
				"funding spread: %s%%/h\n"+
				"APY:            %s%%\n"+
				"price spread:   %s%%\n"+
				"long on:        %s\n"+
				"long funding:   %s\n"+
				"long OI:        %s$\n"+
				"short on:       %s\n"+
				"short funding:  %s\n"+
				"short OI:       %s$\n",
			c.CurrencyName,
			c.FundingSpread.Mul(oneHundred).Round(6).String(),
			c.AnnualizedYield.Round(2).String(),
			orZero(c.PriceSpread).Round(6).String(),
			c.LongVenue,
			c.LongFundingRate.Mul(oneHundred).Round(6).String(),
			formatShort(orZero(c.LongOpenInterest).Round(0)),
			c.ShortVenue,
			c.ShortFundingRate.Mul(oneHundred).Round(6).String(),
			formatShort(orZero(c.ShortOpenInterest).Round(0)),
		))
	}
	return strings.Join(blocks, candidateSeparator)
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// formatShort renders a notional amount in K/M/B short form.
func formatShort(n decimal.Decimal) string {
	abs := n.Abs()
	switch {
	case abs.GreaterThanOrEqual(oneBillion):
		return n.Div(oneBillion).StringFixed(2) + "B"
	case abs.GreaterThanOrEqual(oneMillion):
		return n.Div(oneMillion).StringFixed(2) + "M"
	case abs.GreaterThanOrEqual(oneThousand):
		return n.Div(oneThousand).StringFixed(2) + "K"
	default:
		return n.Round(2).String()
	}
}
