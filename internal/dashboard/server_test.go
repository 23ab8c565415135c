package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	appconfig "fundingflow/config"
	"fundingflow/internal/model"
	"fundingflow/internal/store"
	"fundingflow/logger"
)

func testServer(snapshots *store.SnapshotStore) *Server {
	return NewServer(appconfig.DashboardConfig{
		Enabled:  true,
		Address:  ":0",
		TopLimit: 100,
	}, snapshots, logger.GetLogger())
}

func publish(s *store.SnapshotStore, n int) {
	set := model.CandidateSet{CycleID: "cycle-1"}
	for i := 0; i < n; i++ {
		set.Candidates = append(set.Candidates, model.PositionCandidate{
			CurrencyName:    "BTC",
			LongVenue:       model.VenueHyperliquid,
			ShortVenue:      model.VenueParadex,
			FundingSpread:   decimal.RequireFromString("0.0003"),
			AnnualizedYield: decimal.RequireFromString("262.8"),
		})
	}
	s.Replace(set)
}

func TestNewServerDisabled(t *testing.T) {
	s := NewServer(appconfig.DashboardConfig{Enabled: false}, store.NewSnapshotStore(), logger.GetLogger())
	if s != nil {
		t.Fatal("disabled dashboard must yield a nil server")
	}
	if addr := s.Address(); addr != "" {
		t.Errorf("nil server Address = %q, want empty", addr)
	}
}

func TestNormalizeAddress(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "0.0.0.0:8080"},
		{":9090", "0.0.0.0:9090"},
		{"127.0.0.1:9090", "127.0.0.1:9090"},
		{"myhost", "myhost:8080"},
		{"*:9090", "0.0.0.0:9090"},
	}
	for _, tc := range cases {
		if got := normalizeAddress(tc.in); got != tc.want {
			t.Errorf("normalizeAddress(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestHealthz(t *testing.T) {
	s := testServer(store.NewSnapshotStore())
	router := s.buildRouter("fundingflow")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	snapshots := store.NewSnapshotStore()
	publish(snapshots, 3)
	s := testServer(snapshots)
	router := s.buildRouter("fundingflow")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}

	var body struct {
		App        string `json:"app"`
		CycleID    string `json:"cycle_id"`
		Candidates int    `json:"candidates"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.App != "fundingflow" || body.CycleID != "cycle-1" || body.Candidates != 3 {
		t.Errorf("unexpected status body: %+v", body)
	}
}

func TestCandidatesEndpointLimit(t *testing.T) {
	snapshots := store.NewSnapshotStore()
	publish(snapshots, 5)
	s := testServer(snapshots)
	router := s.buildRouter("fundingflow")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/candidates?n=2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}

	var body struct {
		Candidates []model.PositionCandidate `json:"candidates"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Candidates) != 2 {
		t.Errorf("got %d candidates, want 2", len(body.Candidates))
	}
}

func TestPlainTextView(t *testing.T) {
	snapshots := store.NewSnapshotStore()
	publish(snapshots, 1)
	s := testServer(snapshots)
	router := s.buildRouter("fundingflow")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "APY:            262.8%") {
		t.Errorf("unexpected body: %q", w.Body.String())
	}
}

func TestTopNFallsBackToCap(t *testing.T) {
	s := testServer(store.NewSnapshotStore())
	cases := []struct {
		raw  string
		want int
	}{
		{"", 100},
		{"abc", 100},
		{"-1", 100},
		{"0", 100},
		{"7", 7},
		{"5000", 100},
	}
	for _, tc := range cases {
		if got := s.topN(tc.raw); got != tc.want {
			t.Errorf("topN(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}
