package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	bybit "github.com/bybit-exchange/bybit.go.api"
	"github.com/shopspring/decimal"

	appconfig "fundingflow/config"
	"fundingflow/internal/model"
	"fundingflow/logger"
)

const quoteSuffix = "USDT"

// eightHours converts Bybit's native 8-hour funding rate to the per-hour
// basis the aggregator expects.
var eightHours = decimal.NewFromInt(8)

// Reader fetches linear market tickers from Bybit. Tickers carry funding
// rate, top-of-book prices and open interest notional in one call.
// Expirable futures appear in the same category without a funding rate and
// are omitted.
type Reader struct {
	config *appconfig.Config
	client *bybit.Client
	log    *logger.Log
}

func NewReader(cfg *appconfig.Config) *Reader {
	opts := []bybit.ClientOption{}
	if cfg.Source.Bybit.URL != "" {
		opts = append(opts, bybit.WithBaseURL(cfg.Source.Bybit.URL))
	}

	return &Reader{
		config: cfg,
		client: bybit.NewBybitHttpClient("", "", opts...),
		log:    logger.GetLogger(),
	}
}

func (r *Reader) Venue() model.Venue {
	return model.VenueBybit
}

type tickersResult struct {
	Category string `json:"category"`
	List     []struct {
		Symbol            string `json:"symbol"`
		FundingRate       string `json:"fundingRate"`
		Bid1Price         string `json:"bid1Price"`
		Ask1Price         string `json:"ask1Price"`
		OpenInterestValue string `json:"openInterestValue"`
	} `json:"list"`
}

func (r *Reader) FetchFundings(ctx context.Context) ([]model.FundingSnapshot, error) {
	start := time.Now()

	params := map[string]interface{}{"category": "linear"}
	resp, err := r.client.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("bybit: fetch tickers: %w", err)
	}

	snapshots, err := snapshotsFromResult(resp.Result)
	if err != nil {
		return nil, err
	}

	logger.LogPerformanceEntry(r.log.WithComponent("bybit_reader"), "bybit_reader", "fetch_fundings", time.Since(start), logger.Fields{
		"instruments": len(snapshots),
	})

	return snapshots, nil
}

// snapshotsFromResult converts the generic ticker payload of the v5 market
// tickers endpoint into snapshots.
func snapshotsFromResult(result interface{}) ([]model.FundingSnapshot, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("bybit: marshal tickers result: %w", err)
	}
	var tickers tickersResult
	if err := json.Unmarshal(payload, &tickers); err != nil {
		return nil, fmt.Errorf("bybit: decode tickers result: %w", err)
	}

	snapshots := make([]model.FundingSnapshot, 0, len(tickers.List))
	for _, t := range tickers.List {
		if !strings.HasSuffix(t.Symbol, quoteSuffix) {
			continue
		}
		if t.FundingRate == "" {
			continue
		}

		fundingRate, err := decimal.NewFromString(t.FundingRate)
		if err != nil {
			return nil, fmt.Errorf("bybit: parse funding for %s: %w", t.Symbol, err)
		}

		snapshot := model.FundingSnapshot{
			CurrencyName: strings.TrimSuffix(t.Symbol, quoteSuffix),
			MarketName:   t.Symbol,
			Venue:        model.VenueBybit,
			FundingRate:  fundingRate.Div(eightHours),
		}

		if t.OpenInterestValue != "" {
			oi, err := decimal.NewFromString(t.OpenInterestValue)
			if err != nil {
				return nil, fmt.Errorf("bybit: parse open interest for %s: %w", t.Symbol, err)
			}
			snapshot.OpenInterest = &oi
		}
		if t.Bid1Price != "" && t.Ask1Price != "" {
			bid, err := decimal.NewFromString(t.Bid1Price)
			if err != nil {
				return nil, fmt.Errorf("bybit: parse bid for %s: %w", t.Symbol, err)
			}
			ask, err := decimal.NewFromString(t.Ask1Price)
			if err != nil {
				return nil, fmt.Errorf("bybit: parse ask for %s: %w", t.Symbol, err)
			}
			if !bid.IsZero() && !ask.IsZero() {
				snapshot.BestBid = &bid
				snapshot.BestAsk = &ask
			}
		}

		snapshots = append(snapshots, snapshot)
	}

	return snapshots, nil
}
