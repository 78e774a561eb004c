package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/raine/loadsheet-bot/internal/pipeline"
	"github.com/raine/loadsheet-bot/internal/storage"
	"github.com/raine/loadsheet-bot/internal/tablefile"
)

// Version and BuildTime are set at build time with -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Defaults are the build settings used where a user has not chosen their own.
type Defaults struct {
	Build  pipeline.Options
	Format tablefile.Format
}

// Bot is the main Telegram bot handler.
type Bot struct {
	tg      BotAPI
	state   BotState
	store   storage.Store
	adminID int64

	builds *BuildHandler
}

// NewBot creates a new Bot instance.
func NewBot(tg BotAPI, store storage.Store, adminID int64, defaults Defaults) *Bot {
	bot := &Bot{
		tg:      tg,
		store:   store,
		adminID: adminID,
	}

	bot.state = bot.NewBotState()
	bot.builds = NewBuildHandler(tg, store, defaults)

	return bot
}

// Shutdown stops all session workers and their builds.
func (b *Bot) Shutdown() {
	b.state.Shutdown()
}

// HandleUpdate is the main message router.
// It dispatches messages to the appropriate session worker for sequential processing.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, false)
}

// handleUpdateSync is like handleUpdate but waits for message processing to complete.
// Used in tests where we need synchronous behavior.
func (b *Bot) handleUpdateSync(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, true)
}

// dispatchUpdate routes updates to the appropriate session worker.
// If sync is true, it waits for message processing to complete.
func (b *Bot) dispatchUpdate(ctx context.Context, update tgbotapi.Update, sync bool) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	userId := update.Message.From.ID

	// Check if user is allowed (admin always allowed)
	// MUST be before getUserSession to prevent memory exhaustion from random user IDs
	if userId != b.adminID {
		allowed, err := b.store.IsUserAllowed(userId)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userId).Msg("whitelist check failed")
			return // Fail closed
		}
		if !allowed {
			return // Silent drop
		}
	}

	session := b.state.getUserSession(userId)

	msg := SessionMessage{
		Type:    "text",
		Ctx:     ctx,
		Message: update.Message,
	}
	if update.Message.Document != nil {
		msg.Type = "document"
	}

	log.Info().
		Int64("userId", userId).
		Str("type", msg.Type).
		Str("text", update.Message.Text).
		Msg("got message")

	if sync {
		session.SendSync(msg)
	} else {
		session.Send(msg)
	}
}

// HandleSessionMessage implements MessageHandler interface.
// This is called by the session worker goroutine for sequential processing.
func (b *Bot) HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage) {
	switch msg.Type {
	case "document":
		b.builds.HandleDocument(ctx, session, msg.Message)
	case "text":
		b.handleCommand(ctx, session, msg.Message)
	case "build_complete":
		b.builds.HandleBuildComplete(session, msg.BuildResult)
	}
}

// handleCommand processes bot commands.
// Called from session worker - no locking needed.
func (b *Bot) handleCommand(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	command, args := parseCommand(message.Text)
	switch command {
	case "/start", "/help":
		session.reply(MsgHelp, b.builds.targetDepth(session.userId))
	case "/build":
		b.builds.HandleBuildCommand(ctx, session, args)
	case "/depth":
		b.builds.HandleDepthCommand(session, args)
	case "/status":
		b.builds.HandleStatusCommand(session)
	case "/history":
		b.builds.HandleHistoryCommand(session)
	case "/reset":
		session.cancelBuild()
		if err := b.store.ClearUploads(session.userId); err != nil {
			session.replyWithError(err)
			return
		}
		session.reply(MsgResetDone)
	case "/admin":
		b.handleAdminCommand(session, strings.Join(args, " "))
	case "/version":
		session.reply(MsgVersionInfo, Version, BuildTime)
	default:
		session.reply(MsgStartPrompt)
	}
}

// handleAdminCommand handles /admin command with subcommands.
// Only the admin user can use this command (defense in depth check).
func (b *Bot) handleAdminCommand(session *UserSession, args string) {
	if session.userId != b.adminID {
		return // Silent drop for non-admin users
	}

	parts := strings.Fields(args)
	if len(parts) == 0 {
		session.reply(MsgAdminUsage)
		return
	}

	switch parts[0] {
	case "users":
		if len(parts) < 2 {
			session.reply(MsgAdminUsage)
			return
		}
		b.handleAdminUsersCommand(session, parts[1], parts[2:])
	default:
		session.reply(MsgAdminUsage)
	}
}

// handleAdminUsersCommand handles /admin users subcommands.
func (b *Bot) handleAdminUsersCommand(session *UserSession, action string, args []string) {
	switch action {
	case "add":
		if len(args) < 1 {
			session.reply(MsgAdminUserAddUsage)
			return
		}
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			session.reply(MsgAdminUserInvalidID)
			return
		}
		if err := b.store.AddAllowedUser(userID, session.userId); err != nil {
			session.replyWithError(err)
			return
		}
		session.reply(MsgAdminUserAdded, userID)

	case "remove":
		if len(args) < 1 {
			session.reply(MsgAdminUserRemoveUsage)
			return
		}
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			session.reply(MsgAdminUserInvalidID)
			return
		}
		if err := b.store.RemoveAllowedUser(userID); err != nil {
			session.replyWithError(err)
			return
		}
		session.reply(MsgAdminUserRemoved, userID)

	case "list":
		users, err := b.store.GetAllowedUsers()
		if err != nil {
			session.replyWithError(err)
			return
		}
		if len(users) == 0 {
			session.reply(MsgAdminNoUsers)
			return
		}
		var sb strings.Builder
		sb.WriteString(MsgAdminAllowedUsers)
		for _, u := range users {
			sb.WriteString(fmt.Sprintf("• `%d` (added %s)\n", u.TelegramID, u.AddedAt.Format("2006-01-02")))
		}
		session.reply("%s", sb.String())

	default:
		session.reply(MsgAdminUsage)
	}
}
