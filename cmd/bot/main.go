package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tazhate/sallebot/config"
	"github.com/tazhate/sallebot/internal/bot"
	"github.com/tazhate/sallebot/internal/clients/caldav"
	"github.com/tazhate/sallebot/internal/clients/icsfeed"
	"github.com/tazhate/sallebot/internal/scheduler"
	"github.com/tazhate/sallebot/internal/service"
	"github.com/tazhate/sallebot/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}
	defer store.Close()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source, err := newSource(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to init calendar source: %v", err)
	}

	// The bot does not start without a first directory
	ingestSvc := service.NewIngestService(source, cfg.LocationPrefix)
	syncSvc, err := service.NewSyncService(ctx, ingestSvc, store)
	if err != nil {
		log.Fatalf("Failed to load rooms: %v", err)
	}
	roomSvc := service.NewRoomService(cfg.Timezone)

	tgBot, err := bot.New(cfg, store, syncSvc, roomSvc)
	if err != nil {
		log.Fatalf("Failed to init bot: %v", err)
	}

	if err := tgBot.SetupWebhook(); err != nil {
		log.Fatalf("Failed to setup webhook: %v", err)
	}

	sched := scheduler.New(cfg, syncSvc, store)
	sched.SetSender(tgBot)

	go func() {
		if err := sched.Start(ctx); err != nil {
			log.Printf("Scheduler error: %v", err)
		}
	}()

	go func() {
		if err := tgBot.Start(ctx); err != nil {
			log.Printf("Bot error: %v", err)
		}
	}()

	log.Println("SalleBot started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := tgBot.Stop(shutdownCtx); err != nil {
		log.Printf("Error stopping bot: %v", err)
	}

	log.Println("SalleBot stopped")
}

// newSource picks CalDAV when credentials are set, the published feed otherwise
func newSource(ctx context.Context, cfg *config.Config) (service.Source, error) {
	if !cfg.HasCalDAV() {
		client := icsfeed.NewClient(cfg.FeedURL, cfg.FeedTimeout)
		log.Printf("Reading bookings from %s", client.URL())
		return client, nil
	}

	client := caldav.NewClient(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword, cfg.FeedTimeout)
	if cfg.CalDAVCalendar != "" {
		client.SetCalendarID(cfg.CalDAVCalendar)
		log.Printf("Reading bookings from CalDAV calendar %s", client.CalendarID())
		return client, nil
	}

	cals, err := client.DiscoverCalendars(ctx)
	if err != nil {
		return nil, err
	}
	if len(cals) == 0 {
		return nil, fmt.Errorf("no calendar found for %s", cfg.CalDAVUsername)
	}

	for _, cal := range cals {
		log.Printf("Found calendar: %s (%s)", cal.DisplayName, cal.ID)
	}
	client.SetCalendarID(cals[0].ID)
	log.Printf("Reading bookings from CalDAV calendar %s (%s)", cals[0].DisplayName, client.CalendarID())
	return client, nil
}
