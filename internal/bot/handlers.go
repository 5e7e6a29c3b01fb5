package bot

import (
	"context"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	} else if update.CallbackQuery != nil {
		b.handleCallback(update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From != nil && msg.From.IsBot {
		return
	}

	chatID := msg.Chat.ID
	if !b.cfg.IsAllowedChat(chatID) {
		if msg.Chat.IsPrivate() {
			b.SendMessage(chatID, "⛔ Accès refusé")
		}
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if msg.IsCommand() {
		if !commandForMe(msg.CommandWithAt(), b.api.Self.UserName) {
			return
		}
		b.execute(ctx, chatID, parseIntent(msg.Command()))
		return
	}

	// Outside private chats the bot only answers when mentioned
	if !msg.Chat.IsPrivate() && !b.mentionsMe(msg) {
		return
	}

	cmd, ok := getCommand(text)
	if !ok {
		// Long sentences mentioning the bot are not commands
		if msg.Chat.IsPrivate() {
			b.execute(ctx, chatID, intent{kind: intentHelp})
		}
		return
	}

	b.execute(ctx, chatID, parseIntent(cmd))
}

// commandForMe reports whether a command such as "salle@somebot" is meant for
// the bot named me. Commands without a bot suffix are for everyone.
func commandForMe(cmdWithAt, me string) bool {
	_, target, found := strings.Cut(cmdWithAt, "@")
	if !found {
		return true
	}
	return strings.EqualFold(target, me)
}

// mentionsMe reports whether the message contains an @mention of the bot
func (b *Bot) mentionsMe(msg *tgbotapi.Message) bool {
	me := "@" + strings.ToLower(b.api.Self.UserName)
	for _, e := range msg.Entities {
		if !e.IsMention() {
			continue
		}
		mention := substringUTF16(msg.Text, e.Offset, e.Length)
		if strings.ToLower(mention) == me {
			return true
		}
	}
	return false
}

func (b *Bot) handleCallback(callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	msgID := callback.Message.MessageID

	if !b.cfg.IsAllowedChat(chatID) {
		b.api.Request(tgbotapi.NewCallback(callback.ID, "⛔ Accès refusé"))
		return
	}

	var resp response
	switch callback.Data {
	case callbackFind:
		resp = b.renderFind()
	case callbackRooms:
		resp = b.renderRooms()
	default:
		b.api.Request(tgbotapi.NewCallback(callback.ID, ""))
		return
	}

	b.api.Request(tgbotapi.NewCallback(callback.ID, ""))

	edit := tgbotapi.NewEditMessageText(chatID, msgID, resp.text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = resp.keyboard
	if _, err := b.api.Send(edit); err != nil {
		// Telegram rejects edits that do not change the message
		if !strings.Contains(err.Error(), "message is not modified") {
			log.Printf("Error editing message %d in %d: %v", msgID, chatID, err)
		}
	}
}

// substringUTF16 cuts s using the UTF-16 offsets Telegram uses for entities
func substringUTF16(s string, offset, length int) string {
	var sb strings.Builder
	pos := 0
	for _, r := range s {
		width := 1
		if r >= 0x10000 {
			width = 2
		}
		if pos >= offset && pos < offset+length {
			sb.WriteRune(r)
		}
		pos += width
		if pos >= offset+length {
			break
		}
	}
	return sb.String()
}
