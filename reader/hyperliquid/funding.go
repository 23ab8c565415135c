package hyperliquid

import (
	"bytes"
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

const defaultURL = "https://api.hyperliquid.xyz/info"

// Reader fetches perpetual funding data from the Hyperliquid info endpoint.
// Hyperliquid reports an hourly funding rate, so values are used as-is.
// The endpoint carries open interest but no top-of-book prices.
type Reader struct {
	config  *appconfig.Config
	client  *http.Client
	limiter *rate.Limiter
	url     string
	log     *logger.Log
}

func NewReader(cfg *appconfig.Config) *Reader {
	rl := cfg.Reader.RateLimit
	limiter := rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), rl.BurstSize)

	url := cfg.Source.Hyperliquid.URL
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
		limiter: limiter,
		url:     url,
		log:     logger.GetLogger(),
	}
}

func (r *Reader) Venue() model.Venue {
	return model.VenueHyperliquid
}

// metaAndAssetCtxs returns a two-element array: the asset universe and a
// parallel list of per-asset stats, matched by index.
type assetMeta struct {
	Universe []struct {
		Name string `json:"name"`
	} `json:"universe"`
}

type assetCtx struct {
	Funding      string `json:"funding"`
	OpenInterest string `json:"openInterest"`
}

func (r *Reader) FetchFundings(ctx context.Context) ([]model.FundingSnapshot, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{"type": "metaAndAssetCtxs"})
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: build request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: fetch fundings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hyperliquid: unexpected status %d", resp.StatusCode)
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("hyperliquid: decode response: %w", err)
	}
	if len(raw) < 2 {
		return nil, fmt.Errorf("hyperliquid: expected meta and asset contexts, got %d elements", len(raw))
	}

	var meta assetMeta
	if err := json.Unmarshal(raw[0], &meta); err != nil {
		return nil, fmt.Errorf("hyperliquid: decode universe: %w", err)
	}
	var stats []assetCtx
	if err := json.Unmarshal(raw[1], &stats); err != nil {
		return nil, fmt.Errorf("hyperliquid: decode asset contexts: %w", err)
	}

	count := len(meta.Universe)
	if len(stats) < count {
		count = len(stats)
	}

	snapshots := make([]model.FundingSnapshot, 0, count)
	for i := 0; i < count; i++ {
		fundingRate, err := decimal.NewFromString(stats[i].Funding)
		if err != nil {
			return nil, fmt.Errorf("hyperliquid: parse funding for %s: %w", meta.Universe[i].Name, err)
		}
		openInterest, err := decimal.NewFromString(stats[i].OpenInterest)
		if err != nil {
			return nil, fmt.Errorf("hyperliquid: parse open interest for %s: %w", meta.Universe[i].Name, err)
		}

		snapshots = append(snapshots, model.FundingSnapshot{
			CurrencyName: meta.Universe[i].Name,
			MarketName:   meta.Universe[i].Name,
			Venue:        model.VenueHyperliquid,
			FundingRate:  fundingRate,
			OpenInterest: &openInterest,
		})
	}

	logger.LogPerformanceEntry(r.log.WithComponent("hyperliquid_reader"), "hyperliquid_reader", "fetch_fundings", time.Since(start), logger.Fields{
		"instruments": len(snapshots),
	})

	return snapshots, nil
}
