package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jpillora/backoff"

	appconfig "fundingflow/config"
	"fundingflow/internal/model"
	"fundingflow/internal/store"
	"fundingflow/logger"
	"fundingflow/processor"
)

// Scheduler drives the fetch, merge, rank, publish cycle on a fixed
// interval for the lifetime of the process. A venue that fails its fetch is
// skipped for the cycle; the remaining venues still publish.
type Scheduler struct {
	config     *appconfig.Config
	readers    []model.FundingReader
	aggregator *processor.Aggregator
	store      *store.SnapshotStore
	ctx        context.Context
	wg         *sync.WaitGroup
	mu         sync.RWMutex
	running    bool
	log        *logger.Log

	// Metrics
	cyclesRun    int64
	fetchErrors  int64
	lastSetSize  int
	lastCycleDur time.Duration
}

func New(cfg *appconfig.Config, readers []model.FundingReader, aggregator *processor.Aggregator, snapshots *store.SnapshotStore) *Scheduler {
	return &Scheduler{
		config:     cfg,
		readers:    readers,
		aggregator: aggregator,
		store:      snapshots,
		wg:         &sync.WaitGroup{},
		log:        logger.GetLogger(),
	}
}

// Start launches the cycle loop. The first cycle runs immediately so the
// store is populated without waiting a full interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.ctx = ctx
	s.mu.Unlock()

	log := s.log.WithComponent("scheduler").WithFields(logger.Fields{"operation": "start"})

	if len(s.readers) == 0 {
		log.Warn("no funding readers configured")
		return fmt.Errorf("no funding readers configured")
	}

	log.WithFields(logger.Fields{
		"interval": s.config.Scheduler.Interval.Std().String(),
		"venues":   len(s.readers),
	}).Info("starting scheduler")

	s.wg.Add(1)
	go s.run()

	log.Info("scheduler started successfully")
	return nil
}

// Stop waits for an in-flight cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.log.WithComponent("scheduler").Info("stopping scheduler")
	s.wg.Wait()
	s.log.WithComponent("scheduler").Info("scheduler stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	log := s.log.WithComponent("scheduler").WithFields(logger.Fields{"worker": "cycle_loop"})

	interval := s.config.Scheduler.Interval.Std()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.runCycle()

	for {
		select {
		case <-s.ctx.Done():
			log.Info("cycle loop stopped due to context cancellation")
			return
		case <-ticker.C:
			s.runCycle()
		}
	}
}

// runCycle executes one full fetch and publish pass.
func (s *Scheduler) runCycle() {
	log := s.log.WithComponent("scheduler").WithFields(logger.Fields{"operation": "run_cycle"})
	start := time.Now()

	perVenue := s.fetchAll()

	set := s.aggregator.Aggregate(perVenue)
	s.store.Replace(set)

	duration := time.Since(start)

	s.mu.Lock()
	s.cyclesRun++
	s.lastSetSize = len(set.Candidates)
	s.lastCycleDur = duration
	s.mu.Unlock()

	logger.IncrementCycle(len(set.Candidates))
	logger.LogPerformanceEntry(log, "scheduler", "cycle", duration, logger.Fields{
		"cycle_id":   set.CycleID,
		"candidates": len(set.Candidates),
	})
}

// fetchAll queries every reader concurrently and collects the successful
// results. Failures are logged and counted but never abort the cycle.
func (s *Scheduler) fetchAll() [][]model.FundingSnapshot {
	type venueResult struct {
		venue     model.Venue
		snapshots []model.FundingSnapshot
		err       error
	}

	results := make(chan venueResult, len(s.readers))
	var wg sync.WaitGroup

	for _, r := range s.readers {
		wg.Add(1)
		go func(r model.FundingReader) {
			defer wg.Done()
			snapshots, err := s.fetchVenue(r)
			results <- venueResult{venue: r.Venue(), snapshots: snapshots, err: err}
		}(r)
	}

	wg.Wait()
	close(results)

	perVenue := make([][]model.FundingSnapshot, 0, len(s.readers))
	for res := range results {
		log := s.log.WithComponent("scheduler").WithFields(logger.Fields{"venue": string(res.venue)})
		if res.err != nil {
			s.mu.Lock()
			s.fetchErrors++
			s.mu.Unlock()
			logger.IncrementVenueError(string(res.venue))
			log.WithError(res.err).Warn("venue fetch failed, skipping for this cycle")
			continue
		}
		logger.IncrementVenueFetch(string(res.venue), len(res.snapshots))
		log.WithFields(logger.Fields{"snapshots": len(res.snapshots)}).Debug("venue fetch completed")
		perVenue = append(perVenue, res.snapshots)
	}

	return perVenue
}

// fetchVenue calls one reader with a per-attempt timeout and exponential
// backoff between attempts. It returns the last error when every attempt
// fails.
func (s *Scheduler) fetchVenue(r model.FundingReader) ([]model.FundingSnapshot, error) {
	retryCfg := s.config.Reader.Retry
	b := &backoff.Backoff{
		Min:    retryCfg.BaseDelay.Std(),
		Max:    retryCfg.MaxDelay.Std(),
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= retryCfg.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(s.ctx, s.config.Reader.Timeout.Std())
		snapshots, err := r.FetchFundings(ctx)
		cancel()
		if err == nil {
			return snapshots, nil
		}
		lastErr = err

		if s.ctx.Err() != nil {
			return nil, lastErr
		}
		if attempt < retryCfg.MaxAttempts {
			select {
			case <-s.ctx.Done():
				return nil, lastErr
			case <-time.After(b.Duration()):
			}
		}
	}
	return nil, fmt.Errorf("fetch failed after %d attempts: %w", retryCfg.MaxAttempts, lastErr)
}
