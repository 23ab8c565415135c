package bybit

import (
	"encoding/json"
	"testing"
	"time"

	appconfig "fundingflow/config"
	"fundingflow/internal/model"
)

func testConfig() *appconfig.Config {
	cfg := &appconfig.Config{}
	cfg.Reader.Timeout = appconfig.Duration(5 * time.Second)
	return cfg
}

func TestNewReader(t *testing.T) {
	r := NewReader(testConfig())
	if r.Venue() != model.VenueBybit {
		t.Errorf("Venue = %s", r.Venue())
	}
	if r.client == nil {
		t.Fatal("client not constructed")
	}
}

const tickersPayload = `{
  "category": "linear",
  "list": [
    {
      "symbol": "BTCUSDT",
      "fundingRate": "0.0004",
      "bid1Price": "65000.0",
      "ask1Price": "65001.5",
      "openInterestValue": "250000000"
    },
    {
      "symbol": "BTCUSDT-26SEP26",
      "fundingRate": "",
      "bid1Price": "66000.0",
      "ask1Price": "66010.0",
      "openInterestValue": "1000000"
    },
    {
      "symbol": "ETHPERP",
      "fundingRate": "0.0001",
      "bid1Price": "0",
      "ask1Price": "0",
      "openInterestValue": ""
    },
    {
      "symbol": "SOLUSDT",
      "fundingRate": "-0.0008",
      "bid1Price": "0",
      "ask1Price": "0",
      "openInterestValue": ""
    }
  ]
}`

func TestSnapshotsFromResult(t *testing.T) {
	var result interface{}
	if err := json.Unmarshal([]byte(tickersPayload), &result); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}

	snapshots, err := snapshotsFromResult(result)
	if err != nil {
		t.Fatalf("snapshotsFromResult: %v", err)
	}

	// The dated future has no funding rate and ETHPERP is not USDT-quoted,
	// so only BTCUSDT and SOLUSDT remain.
	if len(snapshots) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(snapshots))
	}

	btc := snapshots[0]
	if btc.CurrencyName != "BTC" || btc.MarketName != "BTCUSDT" {
		t.Errorf("unexpected identity: %+v", btc)
	}
	// 8-hour rate divided down to hourly.
	if btc.FundingRate.String() != "0.00005" {
		t.Errorf("funding rate %s, want 0.00005", btc.FundingRate)
	}
	if btc.BestBid == nil || btc.BestBid.String() != "65000" {
		t.Errorf("best bid %v, want 65000", btc.BestBid)
	}
	if btc.OpenInterest == nil || btc.OpenInterest.String() != "250000000" {
		t.Errorf("open interest %v, want 250000000", btc.OpenInterest)
	}

	sol := snapshots[1]
	if sol.BestBid != nil || sol.BestAsk != nil || sol.OpenInterest != nil {
		t.Errorf("zero book must leave optional fields nil: %+v", sol)
	}
	if sol.FundingRate.String() != "-0.0001" {
		t.Errorf("funding rate %s, want -0.0001", sol.FundingRate)
	}
}

func TestSnapshotsFromResultMalformedRate(t *testing.T) {
	var result interface{}
	if err := json.Unmarshal([]byte(`{"category":"linear","list":[{"symbol":"BTCUSDT","fundingRate":"??"}]}`), &result); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	if _, err := snapshotsFromResult(result); err == nil {
		t.Fatal("expected a parse error")
	}
}
