package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	appconfig "fundingflow/config"
	"fundingflow/internal/model"
	"fundingflow/internal/store"
	"fundingflow/processor"
)

type stubReader struct {
	venue model.Venue
	rate  string
	err   error
	calls int64
}

func (r *stubReader) Venue() model.Venue { return r.venue }

func (r *stubReader) FetchFundings(ctx context.Context) ([]model.FundingSnapshot, error) {
	atomic.AddInt64(&r.calls, 1)
	if r.err != nil {
		return nil, r.err
	}
	rate, _ := decimal.NewFromString(r.rate)
	return []model.FundingSnapshot{{
		CurrencyName: "BTC",
		MarketName:   "BTC-PERP",
		Venue:        r.venue,
		FundingRate:  rate,
	}}, nil
}

func testConfig() *appconfig.Config {
	cfg := &appconfig.Config{}
	cfg.Scheduler.Interval = appconfig.Duration(time.Hour)
	cfg.Reader.Timeout = appconfig.Duration(time.Second)
	cfg.Reader.Retry.MaxAttempts = 2
	cfg.Reader.Retry.BaseDelay = appconfig.Duration(time.Millisecond)
	cfg.Reader.Retry.MaxDelay = appconfig.Duration(5 * time.Millisecond)
	return cfg
}

func waitForCycle(t *testing.T, snapshots *store.SnapshotStore) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if snapshots.CycleID() != "" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no cycle published within deadline")
}

func TestSchedulerPublishesFirstCycleImmediately(t *testing.T) {
	snapshots := store.NewSnapshotStore()
	readers := []model.FundingReader{
		&stubReader{venue: model.VenueHyperliquid, rate: "0.0001"},
		&stubReader{venue: model.VenueParadex, rate: "-0.0002"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(testConfig(), readers, processor.NewAggregator(), snapshots)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	waitForCycle(t, snapshots)
	if snapshots.Len() != 1 {
		t.Errorf("published %d candidates, want 1", snapshots.Len())
	}
}

func TestSchedulerSkipsFailedVenue(t *testing.T) {
	snapshots := store.NewSnapshotStore()
	failing := &stubReader{venue: model.VenueExtended, err: errors.New("connection refused")}
	readers := []model.FundingReader{
		&stubReader{venue: model.VenueHyperliquid, rate: "0.0001"},
		&stubReader{venue: model.VenueParadex, rate: "-0.0002"},
		failing,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(testConfig(), readers, processor.NewAggregator(), snapshots)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	waitForCycle(t, snapshots)

	// The two healthy venues still produce their pair.
	if snapshots.Len() != 1 {
		t.Errorf("published %d candidates, want 1", snapshots.Len())
	}
	if got := atomic.LoadInt64(&failing.calls); got != 2 {
		t.Errorf("failing reader attempted %d times, want 2 (max attempts)", got)
	}
}

func TestSchedulerStartWithoutReaders(t *testing.T) {
	s := New(testConfig(), nil, processor.NewAggregator(), store.NewSnapshotStore())
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected an error with no readers configured")
	}
}

func TestSchedulerDoubleStart(t *testing.T) {
	snapshots := store.NewSnapshotStore()
	readers := []model.FundingReader{&stubReader{venue: model.VenueHyperliquid, rate: "0.0001"}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(testConfig(), readers, processor.NewAggregator(), snapshots)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if err := s.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail")
	}
}

func TestSchedulerStopWaitsForCycle(t *testing.T) {
	snapshots := store.NewSnapshotStore()
	readers := []model.FundingReader{&stubReader{venue: model.VenueHyperliquid, rate: "0.0001"}}

	ctx, cancel := context.WithCancel(context.Background())

	s := New(testConfig(), readers, processor.NewAggregator(), snapshots)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForCycle(t, snapshots)

	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}
