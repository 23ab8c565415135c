package model

import "context"

// FundingReader is the per-venue adapter contract. A reader returns the full
// instrument list for its venue or fails as a unit; partial results are not
// allowed. The returned slice carries no ordering guarantee and snapshots
// must already be normalized to a per-hour funding rate.
type FundingReader interface {
	Venue() Venue
	FetchFundings(ctx context.Context) ([]FundingSnapshot, error)
}
