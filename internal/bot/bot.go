package bot

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/sallebot/config"
	"github.com/tazhate/sallebot/internal/service"
	"github.com/tazhate/sallebot/internal/storage"
)

type Bot struct {
	api         *tgbotapi.BotAPI
	cfg         *config.Config
	storage     *storage.Storage
	syncService *service.SyncService
	roomService *service.RoomService
	server      *http.Server
	now         func() time.Time
}

func New(cfg *config.Config, storage *storage.Storage, syncSvc *service.SyncService, roomSvc *service.RoomService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("Authorized as @%s", api.Self.UserName)

	bot := &Bot{
		api:         api,
		cfg:         cfg,
		storage:     storage,
		syncService: syncSvc,
		roomService: roomSvc,
		now:         time.Now,
	}

	// Set bot commands (menu button)
	bot.setCommands()

	return bot, nil
}

func (b *Bot) setCommands() {
	commands := []tgbotapi.BotCommand{
		{Command: "salle", Description: "🔎 Salles libres maintenant"},
		{Command: "salles", Description: "🏢 Toutes les salles connues"},
		{Command: "refresh", Description: "🔄 Recharger le calendrier"},
		{Command: "status", Description: "📊 État de la synchronisation"},
		{Command: "aide", Description: "❓ Aide"},
	}

	cfg := tgbotapi.NewSetMyCommands(commands...)
	if _, err := b.api.Request(cfg); err != nil {
		log.Printf("Failed to set commands: %v", err)
	}
}

func (b *Bot) SetupWebhook() error {
	if b.cfg.WebhookURL == "" {
		// Long polling requires the webhook to be removed
		if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			return fmt.Errorf("delete webhook: %w", err)
		}
		return nil
	}

	webhookURL := b.cfg.WebhookURL + "/bot"

	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("create webhook: %w", err)
	}

	_, err = b.api.Request(wh)
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	info, err := b.api.GetWebhookInfo()
	if err != nil {
		return fmt.Errorf("get webhook info: %w", err)
	}

	if info.LastErrorDate != 0 {
		log.Printf("Webhook last error: %s", info.LastErrorMessage)
	}

	log.Printf("Webhook set to: %s", webhookURL)
	return nil
}

func (b *Bot) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	var updates tgbotapi.UpdatesChannel
	if b.cfg.WebhookURL != "" {
		// ListenForWebhook registers on the default mux
		updates = b.api.ListenForWebhook("/bot")
		mux.Handle("/bot", http.DefaultServeMux)
	} else {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates = b.api.GetUpdatesChan(u)
		log.Println("Listening for updates with long polling")
	}

	// Health check endpoint
	mux.HandleFunc("/health", b.health)

	// Setup REST API with Basic Auth
	b.SetupAPI(mux)

	b.server = &http.Server{
		Addr:              ":" + b.cfg.ServerPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting HTTP server on :%s", b.cfg.ServerPort)
		if err := b.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			if b.cfg.WebhookURL == "" {
				b.api.StopReceivingUpdates()
			}
			return nil
		case update := <-updates:
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) Stop(ctx context.Context) error {
	if b.server != nil {
		return b.server.Shutdown(ctx)
	}
	return nil
}

func (b *Bot) health(w http.ResponseWriter, r *http.Request) {
	if b.syncService.Current() == nil {
		http.Error(w, "no directory", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	_, err := b.api.Send(msg)
	return err
}
