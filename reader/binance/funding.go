package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	futures "github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	appconfig "fundingflow/config"
	"fundingflow/internal/model"
	"fundingflow/logger"
)

const quoteSuffix = "USDT"

// eightHours converts Binance's native 8-hour funding rate to the per-hour
// basis the aggregator expects.
var eightHours = decimal.NewFromInt(8)

// Reader fetches funding rates for USDT-margined perpetuals through the
// Binance futures premium index. The endpoint carries no top-of-book or
// open interest, so those fields stay unset.
type Reader struct {
	config *appconfig.Config
	client *futures.Client
	log    *logger.Log
}

func NewReader(cfg *appconfig.Config) *Reader {
	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:    4,
			IdleConnTimeout: 30 * time.Second,
		},
		Timeout: cfg.Reader.Timeout.Std(),
	}

	client := futures.NewClient("", "")
	client.HTTPClient = httpClient

	if cfg.Source.Binance.URL != "" {
		if parsed, err := url.Parse(cfg.Source.Binance.URL); err == nil {
			client.SetApiEndpoint(fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host))
		}
	}

	return &Reader{
		config: cfg,
		client: client,
		log:    logger.GetLogger(),
	}
}

func (r *Reader) Venue() model.Venue {
	return model.VenueBinance
}

func (r *Reader) FetchFundings(ctx context.Context) ([]model.FundingSnapshot, error) {
	start := time.Now()

	premiums, err := r.client.NewPremiumIndexService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance: fetch premium index: %w", err)
	}

	snapshots := make([]model.FundingSnapshot, 0, len(premiums))
	for _, p := range premiums {
		if !strings.HasSuffix(p.Symbol, quoteSuffix) {
			continue
		}
		// Indexes without an active perpetual report an empty rate.
		if p.LastFundingRate == "" {
			continue
		}

		fundingRate, err := decimal.NewFromString(p.LastFundingRate)
		if err != nil {
			return nil, fmt.Errorf("binance: parse funding for %s: %w", p.Symbol, err)
		}

		snapshots = append(snapshots, model.FundingSnapshot{
			CurrencyName: strings.TrimSuffix(p.Symbol, quoteSuffix),
			MarketName:   p.Symbol,
			Venue:        model.VenueBinance,
			FundingRate:  fundingRate.Div(eightHours),
		})
	}

	logger.LogPerformanceEntry(r.log.WithComponent("binance_reader"), "binance_reader", "fetch_fundings", time.Since(start), logger.Fields{
		"instruments": len(snapshots),
	})

	return snapshots, nil
}
