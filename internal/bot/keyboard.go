package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	callbackFind  = "find"
	callbackRooms = "rooms"
)

// Keyboard under a free-rooms listing
func findKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Actualiser", callbackFind),
			tgbotapi.NewInlineKeyboardButtonData("🏢 Toutes les salles", callbackRooms),
		),
	)
}

// Keyboard under the full room list
func roomsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔎 Salles libres", callbackFind),
		),
	)
}
