package extended

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	appconfig "fundingflow/config"
	"fundingflow/internal/model"
	"fundingflow/logger"
)

const defaultURL = "https://api.starknet.extended.exchange/api/v1/info/markets"

// Reader fetches perpetual market stats from Extended. The venue reports an
// hourly funding rate together with top-of-book prices and open interest.
// Markets quoting a zero bid or ask are not tradable and are omitted.
type Reader struct {
	config  *appconfig.Config
	client  *http.Client
	limiter *rate.Limiter
	url     string
	log     *logger.Log
}

func NewReader(cfg *appconfig.Config) *Reader {
	rl := cfg.Reader.RateLimit

	url := cfg.Source.Extended.URL
	if url == "" {
		url = defaultURL
	}

	return &Reader{
		config: cfg,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    4,
				IdleConnTimeout: 30 * time.Second,
			},
			Timeout: cfg.Reader.Timeout.Std(),
		},
		limiter: rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), rl.BurstSize),
		url:     url,
		log:     logger.GetLogger(),
	}
}

func (r *Reader) Venue() model.Venue {
	return model.VenueExtended
}

type marketsResponse struct {
	Data []struct {
		Name        string `json:"name"`
		AssetName   string `json:"assetName"`
		MarketStats struct {
			FundingRate  string `json:"fundingRate"`
			AskPrice     string `json:"askPrice"`
			BidPrice     string `json:"bidPrice"`
			OpenInterest string `json:"openInterest"`
		} `json:"marketStats"`
	} `json:"data"`
}

func (r *Reader) FetchFundings(ctx context.Context) ([]model.FundingSnapshot, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("extended: build request: %w", err)
	}
	req.Header.Set("Accept", "*/*")

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extended: fetch markets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extended: unexpected status %d", resp.StatusCode)
	}

	var markets marketsResponse
	if err := json.NewDecoder(resp.Body).Decode(&markets); err != nil {
		return nil, fmt.Errorf("extended: decode response: %w", err)
	}

	snapshots := make([]model.FundingSnapshot, 0, len(markets.Data))
	for _, m := range markets.Data {
		bid, err := decimal.NewFromString(m.MarketStats.BidPrice)
		if err != nil {
			return nil, fmt.Errorf("extended: parse bid for %s: %w", m.Name, err)
		}
		ask, err := decimal.NewFromString(m.MarketStats.AskPrice)
		if err != nil {
			return nil, fmt.Errorf("extended: parse ask for %s: %w", m.Name, err)
		}
		if bid.IsZero() || ask.IsZero() {
			continue
		}

		fundingRate, err := decimal.NewFromString(m.MarketStats.FundingRate)
		if err != nil {
			return nil, fmt.Errorf("extended: parse funding for %s: %w", m.Name, err)
		}
		openInterest, err := decimal.NewFromString(m.MarketStats.OpenInterest)
		if err != nil {
			return nil, fmt.Errorf("extended: parse open interest for %s: %w", m.Name, err)
		}

		snapshots = append(snapshots, model.FundingSnapshot{
			CurrencyName: m.AssetName,
			MarketName:   m.Name,
			Venue:        model.VenueExtended,
			FundingRate:  fundingRate,
			OpenInterest: &openInterest,
			BestBid:      &bid,
			BestAsk:      &ask,
		})
	}

	logger.LogPerformanceEntry(r.log.WithComponent("extended_reader"), "extended_reader", "fetch_fundings", time.Since(start), logger.Fields{
		"instruments": len(snapshots),
	})

	return snapshots, nil
}
