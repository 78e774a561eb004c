package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/raine/loadsheet-bot/config"
	"github.com/raine/loadsheet-bot/internal/bot"
	"github.com/raine/loadsheet-bot/internal/storage"
)

const logFileName = "loadsheet-bot.log"

// ensureConfig runs the setup wizard when required settings are missing, or
// exits when there is no terminal to ask on.
func ensureConfig() {
	missing := config.MissingRequired()
	if len(missing) == 0 {
		return
	}
	if !isInteractiveTerminal() {
		fatalWithWait("missing required config: %s", strings.Join(missing, ", "))
	}
	if !runSetupWizard() {
		waitOnWindows()
		os.Exit(1)
	}
}

// setupLogging sends logs to stderr, and also to logFileName unless journald
// collects them (JOURNAL_STREAM is set by systemd).
func setupLogging() (func(), error) {
	console := zerolog.ConsoleWriter{Out: os.Stderr}
	if _, ok := os.LookupEnv("JOURNAL_STREAM"); ok {
		log.Logger = log.Output(console)
		return func() {}, nil
	}

	f, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	log.Logger = log.Output(io.MultiWriter(console, zerolog.ConsoleWriter{Out: f, NoColor: true}))
	log.Info().Str("logFile", logFileName).Msg("logging to file")
	return func() { f.Close() }, nil
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	config.LoadEnvFile()
	ensureConfig()

	closeLog, err := setupLogging()
	if err != nil {
		fatalWithWait("failed to open log file: %v", err)
	}
	defer closeLog()

	settings, err := config.Load()
	if err != nil {
		fatalWithWait("invalid config: %v", err)
	}

	tg, err := tgbotapi.NewBotAPI(settings.BotToken)
	if err != nil {
		fatalWithWait("failed to initialize telegram bot: %v", err)
	}
	tg.Debug = false
	log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")

	// Register bot commands for Telegram's command menu
	bot.RegisterCommands(tg)

	store, err := storage.NewSQLiteStore(settings.DBPath)
	if err != nil {
		fatalWithWait("failed to initialize store: %v", err)
	}
	defer store.Close()
	log.Info().Str("dbPath", settings.DBPath).Msg("store initialized")

	log.Info().
		Int("targetDepth", settings.Build.TargetDepth).
		Strs("excluded", settings.Build.Excluded).
		Str("format", string(settings.OutputFormat)).
		Msg("build defaults")

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	defaults := bot.Defaults{Build: settings.Build, Format: settings.OutputFormat}
	if err := runBot(ctx, tg, store, settings.AdminID, defaults); !isCleanShutdown(err) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

// isCleanShutdown reports whether the bot stopped because it was asked to.
func isCleanShutdown(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

func runBot(ctx context.Context, tg *tgbotapi.BotAPI, store storage.Store, adminID int64, defaults bot.Defaults) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := tg.GetUpdatesChan(updateConfig)

	b := bot.NewBot(tg, store, adminID, defaults)
	defer b.Shutdown()

	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping bot update loop")
			tg.StopReceivingUpdates()
			log.Info().Msg("waiting for active handlers to finish")
			wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				log.Warn().Msg("updates channel closed")
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}
