package service

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tazhate/sallebot/internal/domain"
)

// Ingester builds a room directory from the feed
type Ingester interface {
	Ingest(ctx context.Context) (*domain.Directory, SkipStats, error)
}

// SyncJournal records sync attempts
type SyncJournal interface {
	CreateSyncRun(r *domain.SyncRun) error
}

// SyncService owns the room directory currently served to readers.
//
// Readers load the snapshot pointer and work on it without locking. A resync
// builds a complete new directory first and then swaps the pointer, so a
// reader never sees a partially built directory and a slow feed never blocks
// a reader. There is no empty state: construction fails if the first ingest
// fails.
type SyncService struct {
	ingester Ingester
	journal  SyncJournal
	current  atomic.Pointer[domain.Directory]
	lastRun  atomic.Pointer[domain.SyncRun]
	now      func() time.Time
}

// NewSyncService performs the initial ingest synchronously. journal may be nil.
func NewSyncService(ctx context.Context, ingester Ingester, journal SyncJournal) (*SyncService, error) {
	s := &SyncService{
		ingester: ingester,
		journal:  journal,
		now:      time.Now,
	}

	if _, err := s.Resync(ctx, domain.TriggerStartup); err != nil {
		return nil, fmt.Errorf("initial room sync: %w", err)
	}

	return s, nil
}

// Current returns the installed directory. It never blocks on I/O.
func (s *SyncService) Current() *domain.Directory {
	return s.current.Load()
}

// LastRun returns the most recent sync attempt, successful or not
func (s *SyncService) LastRun() *domain.SyncRun {
	run := s.lastRun.Load()
	if run == nil {
		return nil
	}
	cp := *run
	return &cp
}

// Resync ingests the feed again and publishes the result. On failure the
// previously installed directory stays in place and the error is returned.
func (s *SyncService) Resync(ctx context.Context, trigger domain.SyncTrigger) (*domain.SyncRun, error) {
	run := &domain.SyncRun{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		StartedAt: s.now(),
	}

	dir, stats, err := s.ingester.Ingest(ctx)
	run.FinishedAt = s.now()

	if err != nil {
		run.Error = err.Error()
		s.record(run)
		log.Printf("Room sync %s (%s) failed, keeping previous directory: %v", run.ID, trigger, err)
		return run, err
	}

	run.Rooms = dir.Len()
	run.Bookings = dir.BookingCount()
	run.Skipped = stats.Total()

	s.current.Store(dir)
	s.record(run)

	log.Printf("Room sync %s (%s): %d rooms, %d bookings in %s",
		run.ID, trigger, run.Rooms, run.Bookings, run.Duration().Round(time.Millisecond))
	return run, nil
}

func (s *SyncService) record(run *domain.SyncRun) {
	cp := *run
	s.lastRun.Store(&cp)

	if s.journal == nil {
		return
	}
	if err := s.journal.CreateSyncRun(run); err != nil {
		log.Printf("Error recording sync run %s: %v", run.ID, err)
	}
}
