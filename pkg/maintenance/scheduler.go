// Package maintenance keeps a long running archive healthy: it periodically
// merges full-text index segments, refreshes planner statistics and
// truncates the write-ahead log.
package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/log"
)

var logger = log.ForService("maintenance")

// Store is the part of the archive the scheduler maintains.
// *storage.Store implements it.
type Store interface {
	Optimize(ctx context.Context) error
	WALCheckpoint(ctx context.Context) error
}

type Config struct {
	// OptimizeInterval is the time between runs. Zero disables the scheduler.
	OptimizeInterval time.Duration
}

type Scheduler struct {
	config Config
	store  Store

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	runs    int
}

func NewScheduler(config Config, store Store) *Scheduler {
	return &Scheduler{config: config, store: store}
}

// Start runs maintenance in the background until ctx is cancelled or Stop
// is called. A disabled scheduler starts without doing anything.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("maintenance scheduler is already running")
	}
	if s.config.OptimizeInterval <= 0 {
		logger.Infof("archive maintenance disabled")
		return nil
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	ticker := time.NewTicker(s.config.OptimizeInterval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Debugf("maintenance context cancelled")
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()

	logger.Infof("archive maintenance every %v", s.config.OptimizeInterval)
	return nil
}

// RunOnce optimizes the indexes and checkpoints the WAL. Failures are
// logged; the next run tries again.
func (s *Scheduler) RunOnce(ctx context.Context) {
	start := time.Now()
	if err := s.store.Optimize(ctx); err != nil {
		logger.Errorf("archive optimization failed: %v", err)
		return
	}
	if err := s.store.WALCheckpoint(ctx); err != nil {
		logger.Errorf("WAL checkpoint failed: %v", err)
		return
	}

	s.mu.Lock()
	s.runs++
	s.mu.Unlock()
	logger.Debugf("archive maintenance took %v", time.Since(start))
}

// Stop ends the background loop and waits for a run in progress.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	logger.Debugf("maintenance scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Runs returns the number of completed maintenance runs.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}
