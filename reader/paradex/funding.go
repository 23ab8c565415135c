package paradex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	appconfig "fundingflow/config"
	"fundingflow/internal/model"
	"fundingflow/logger"
)

const defaultURL = "https://api.prod.paradex.trade/v1/markets/summary?market=ALL"

const perpSuffix = "-USD-PERP"

// eightHours converts Paradex's native 8-hour funding rate to the per-hour
// basis the aggregator expects.
var eightHours = decimal.NewFromInt(8)

// Reader fetches market summaries from Paradex. Only USD perpetuals are
// kept; the currency is the symbol with the -USD-PERP suffix stripped.
type Reader struct {
	config  *appconfig.Config
	client  *http.Client
	limiter *rate.Limiter
	url     string
	log     *logger.Log
}

func NewReader(cfg *appconfig.Config) *Reader {
	rl := cfg.Reader.RateLimit

	url := cfg.Source.Paradex.URL
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
	return model.VenueParadex
}

type summaryResponse struct {
	Results []struct {
		Symbol       string `json:"symbol"`
		FundingRate  string `json:"funding_rate"`
		OpenInterest string `json:"open_interest"`
	} `json:"results"`
}

func (r *Reader) FetchFundings(ctx context.Context) ([]model.FundingSnapshot, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("paradex: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paradex: fetch summaries: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paradex: unexpected status %d", resp.StatusCode)
	}

	var summary summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("paradex: decode response: %w", err)
	}

	snapshots := make([]model.FundingSnapshot, 0, len(summary.Results))
	for _, m := range summary.Results {
		if !strings.HasSuffix(m.Symbol, perpSuffix) {
			continue
		}

		fundingRate, err := decimal.NewFromString(m.FundingRate)
		if err != nil {
			return nil, fmt.Errorf("paradex: parse funding for %s: %w", m.Symbol, err)
		}
		openInterest, err := decimal.NewFromString(m.OpenInterest)
		if err != nil {
			return nil, fmt.Errorf("paradex: parse open interest for %s: %w", m.Symbol, err)
		}

		snapshots = append(snapshots, model.FundingSnapshot{
			CurrencyName: strings.TrimSuffix(m.Symbol, perpSuffix),
			MarketName:   m.Symbol,
			Venue:        model.VenueParadex,
			FundingRate:  fundingRate.Div(eightHours),
			OpenInterest: &openInterest,
		})
	}

	logger.LogPerformanceEntry(r.log.WithComponent("paradex_reader"), "paradex_reader", "fetch_fundings", time.Since(start), logger.Fields{
		"instruments": len(snapshots),
	})

	return snapshots, nil
}
