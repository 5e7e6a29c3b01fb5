package scheduler

import (
	"context"
	"fmt"
	"html"
	"log"

	"github.com/robfig/cron/v3"
	"github.com/tazhate/sallebot/config"
	"github.com/tazhate/sallebot/internal/domain"
)

// Number of sync runs kept in the journal
const keepSyncRuns = 500

type MessageSender interface {
	SendMessage(chatID int64, text string) error
}

// Resyncer refreshes the room directory
type Resyncer interface {
	Resync(ctx context.Context, trigger domain.SyncTrigger) (*domain.SyncRun, error)
}

// JournalPruner trims the sync history
type JournalPruner interface {
	PruneSyncRuns(keep int) (int64, error)
}

type Scheduler struct {
	cron    *cron.Cron
	cfg     *config.Config
	syncer  Resyncer
	journal JournalPruner
	sender  MessageSender
	ctx     context.Context
}

func New(cfg *config.Config, syncer Resyncer, journal JournalPruner) *Scheduler {
	location := cfg.Timezone

	c := cron.New(cron.WithLocation(location))

	return &Scheduler{
		cron:    c,
		cfg:     cfg,
		syncer:  syncer,
		journal: journal,
		ctx:     context.Background(),
	}
}

func (s *Scheduler) SetSender(sender MessageSender) {
	s.sender = sender
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx = ctx

	if s.cfg.SyncSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.SyncSchedule, s.resync); err != nil {
			return fmt.Errorf("add room resync: %w", err)
		}
	} else {
		log.Println("Periodic room resync disabled")
	}

	if s.journal != nil {
		if _, err := s.cron.AddFunc("@daily", s.pruneJournal); err != nil {
			return fmt.Errorf("add journal prune: %w", err)
		}
	}

	s.cron.Start()
	log.Printf("Scheduler started (TZ: %s, resync: %q)", s.cfg.Timezone, s.cfg.SyncSchedule)

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

func (s *Scheduler) resync() {
	_, err := s.syncer.Resync(s.ctx, domain.TriggerSchedule)
	if err == nil {
		return
	}

	// The previous directory is still served; tell the admin it is getting stale
	if s.sender == nil || s.cfg.AdminChatID == 0 {
		return
	}
	text := fmt.Sprintf("⚠️ <b>Échec de la synchronisation des salles</b>\n\n%s\n\nLes anciennes données restent utilisées.",
		html.EscapeString(err.Error()))
	if err := s.sender.SendMessage(s.cfg.AdminChatID, text); err != nil {
		log.Printf("Error sending sync failure to %d: %v", s.cfg.AdminChatID, err)
	}
}

func (s *Scheduler) pruneJournal() {
	n, err := s.journal.PruneSyncRuns(keepSyncRuns)
	if err != nil {
		log.Printf("Error pruning sync journal: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Pruned %d old sync runs", n)
	}
}
