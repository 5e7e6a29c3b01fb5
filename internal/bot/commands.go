package bot

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/sallebot/internal/domain"
)

type intentKind int

const (
	intentFind intentKind = iota
	intentRooms
	intentHelp
	intentRefresh
	intentStatus
)

type intent struct {
	kind    intentKind
	unknown string // command that was typed when help was not asked for
}

// response is a rendered reply, ready to send or to edit into a message
type response struct {
	text     string
	keyboard *tgbotapi.InlineKeyboardMarkup
}

// getCommand extracts the command from a message addressed to the bot, such
// as "@bot salles" or "salles @bot". A bare mention yields "". Messages of
// more than two words are not commands and yield ok == false. The mention
// itself is not verified.
func getCommand(text string) (cmd string, ok bool) {
	parts := strings.Fields(text)
	switch len(parts) {
	case 1:
		if strings.HasPrefix(parts[0], "@") {
			return "", true
		}
		return parts[0], true
	case 2:
		if strings.HasPrefix(parts[0], "@") {
			return parts[1], true
		}
		return parts[0], true
	default:
		return "", false
	}
}

// parseIntent maps a command word to what the user wants
func parseIntent(cmd string) intent {
	cmd = strings.ToLower(strings.TrimPrefix(cmd, "/"))

	switch cmd {
	case "", "salle", "cherche", "libre", "free":
		return intent{kind: intentFind}
	case "salles", "rooms":
		return intent{kind: intentRooms}
	case "aide", "help", "start":
		return intent{kind: intentHelp}
	case "refresh", "sync", "actualiser":
		return intent{kind: intentRefresh}
	case "status", "etat", "état":
		return intent{kind: intentStatus}
	default:
		return intent{kind: intentHelp, unknown: cmd}
	}
}

func (b *Bot) execute(ctx context.Context, chatID int64, in intent) {
	resp := b.render(ctx, in)

	var err error
	if resp.keyboard != nil {
		err = b.SendMessageWithKeyboard(chatID, resp.text, *resp.keyboard)
	} else {
		err = b.SendMessage(chatID, resp.text)
	}
	if err != nil {
		log.Printf("Error sending message to %d: %v", chatID, err)
	}
}

func (b *Bot) render(ctx context.Context, in intent) response {
	switch in.kind {
	case intentFind:
		return b.renderFind()
	case intentRooms:
		return b.renderRooms()
	case intentRefresh:
		return b.renderRefresh(ctx)
	case intentStatus:
		return b.renderStatus()
	default:
		return response{text: helpText(in.unknown)}
	}
}

func (b *Bot) renderFind() response {
	dir := b.syncService.Current()
	kb := findKeyboard()
	return response{
		text:     b.roomService.FormatFreeRooms(dir, b.now().UTC()),
		keyboard: &kb,
	}
}

func (b *Bot) renderRooms() response {
	dir := b.syncService.Current()
	kb := roomsKeyboard()
	return response{
		text:     b.roomService.FormatDirectory(dir),
		keyboard: &kb,
	}
}

func (b *Bot) renderRefresh(ctx context.Context) response {
	run, err := b.syncService.Resync(ctx, domain.TriggerManual)
	if err != nil {
		return response{text: "❌ Échec de la synchronisation: " + html.EscapeString(err.Error()) +
			"\n\nLes anciennes données restent utilisées."}
	}

	kb := findKeyboard()
	return response{
		text:     fmt.Sprintf("✅ Calendrier rechargé: %d salles, %d réservations", run.Rooms, run.Bookings),
		keyboard: &kb,
	}
}

func (b *Bot) renderStatus() response {
	var sb strings.Builder
	sb.WriteString("<b>📊 Synchronisation</b>\n\n")

	loc := b.cfg.Timezone
	if loc == nil {
		loc = time.UTC
	}

	dir := b.syncService.Current()
	sb.WriteString(fmt.Sprintf("Données du %s: %d salles, %d réservations\n",
		dir.FetchedAt().In(loc).Format("02/01/2006 à 15:04"), dir.Len(), dir.BookingCount()))

	if last := b.syncService.LastRun(); last != nil && !last.Succeeded() {
		sb.WriteString("⚠️ Dernière tentative échouée: " + html.EscapeString(last.Error) + "\n")

		if b.storage != nil {
			good, err := b.storage.GetLastSuccessfulSync()
			if err != nil {
				log.Printf("Error getting last successful sync: %v", err)
			} else if good != nil {
				sb.WriteString(fmt.Sprintf("Dernière synchronisation réussie le %s (%s)\n",
					good.StartedAt.In(loc).Format("02/01/2006 à 15:04"), good.Trigger))
			}
		}
	}

	if b.storage != nil {
		runs, err := b.storage.ListSyncRuns(5)
		if err != nil {
			log.Printf("Error listing sync runs: %v", err)
		} else {
			sb.WriteString("\n<b>Historique:</b>\n")
			sb.WriteString(b.roomService.FormatSyncRuns(runs))
		}
	}

	return response{text: sb.String()}
}

func helpText(unknown string) string {
	var sb strings.Builder
	if unknown != "" {
		sb.WriteString(fmt.Sprintf("Je ne connais pas la commande <code>%s</code>, jette un œil à celles que je supporte ⬇️\n\n",
			html.EscapeString(unknown)))
	}

	sb.WriteString(`<b>Aide</b>

<b>Envoyer une commande:</b>
/commande, ou dans un groupe: @bot commande

<b>Commandes supportées:</b>
/salle, /cherche — salles libres maintenant
/salles — toutes les salles connues
/refresh — recharger le calendrier
/status — état de la synchronisation
/aide — cette aide`)

	return sb.String()
}
