package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// botCommands is the command menu shown by Telegram clients. /admin and
// /start are handled but not listed.
var botCommands = []tgbotapi.BotCommand{
	{Command: "build", Description: "Build the loadsheet (add xlsx for a spreadsheet)"},
	{Command: "status", Description: "Show pending uploads"},
	{Command: "depth", Description: "Show or set the category depth"},
	{Command: "history", Description: "List recent builds"},
	{Command: "reset", Description: "Clear pending uploads"},
	{Command: "help", Description: "How to use the bot"},
	{Command: "version", Description: "Show version info"},
}

// RegisterCommands publishes botCommands as the bot's menu. Failure is logged;
// commands still work when typed.
func RegisterCommands(tg BotAPI) {
	if _, err := tg.Request(tgbotapi.NewSetMyCommands(botCommands...)); err != nil {
		log.Error().Err(err).Msg("failed to set bot commands")
		return
	}
	log.Info().Int("count", len(botCommands)).Msg("registered bot commands")
}
