package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/raine/loadsheet-bot/config"
	"github.com/raine/loadsheet-bot/internal/pipeline"
	"github.com/raine/loadsheet-bot/internal/tablefile"
)

// isInteractiveTerminal reports whether the wizard can prompt the user.
func isInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

var (
	wizardTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).MarginBottom(1)
	wizardOK    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	wizardMuted = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// setupAnswers holds the wizard's inputs as typed by the user.
type setupAnswers struct {
	BotToken string
	AdminID  string
	Depth    string
	Format   string
}

func (a setupAnswers) env() map[string]string {
	return map[string]string{
		config.EnvBotToken:        strings.TrimSpace(a.BotToken),
		config.EnvAdminTelegramID: strings.TrimSpace(a.AdminID),
		config.EnvTargetDepth:     strings.TrimSpace(a.Depth),
		config.EnvOutputFormat:    a.Format,
	}
}

// runSetupWizard asks for the settings config.Load needs, saves them to the
// env file and exports them to this process. It returns false when the user
// aborts or saving fails.
func runSetupWizard() bool {
	fmt.Println()
	fmt.Println(wizardTitle.Render("📦 Loadsheet Bot - First-time Setup"))

	answers := setupAnswers{
		Depth:  strconv.Itoa(pipeline.DefaultTargetDepth),
		Format: string(tablefile.FormatCSV),
	}

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram Bot Token").
				Description("Message @BotFather on Telegram → /newbot → copy token").
				Value(&answers.BotToken).
				Validate(validateTokenInput),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Your Telegram User ID").
				Description("Message @userinfobot to get your ID: https://t.me/userinfobot").
				Value(&answers.AdminID).
				Validate(validateAdminID),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Category depth").
				Description("Depth of the category each product is labelled with (1 = top level)").
				Value(&answers.Depth).
				Validate(validateDepth),
			huh.NewSelect[string]().
				Title("Loadsheet format").
				Options(
					huh.NewOption("CSV", string(tablefile.FormatCSV)),
					huh.NewOption("Excel (XLSX)", string(tablefile.FormatXLSX)),
				).
				Value(&answers.Format),
		),
	).WithTheme(huh.ThemeBase16()).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		fmt.Println("\nSetup cancelled.")
		return false
	}
	if err != nil {
		fmt.Printf("\nError: %v\n", err)
		return false
	}

	configPath, err := saveSetup(answers)
	if err != nil {
		fmt.Printf("\nError saving configuration: %v\n", err)
		waitOnWindows()
		return false
	}

	fmt.Println()
	fmt.Println(wizardOK.Render("✓ Configuration saved"))
	fmt.Println(wizardMuted.Render("  " + configPath))
	fmt.Println()
	return true
}

// saveSetup writes the answers to the env file and sets them in the process
// environment so config.Load sees them without a restart.
func saveSetup(answers setupAnswers) (string, error) {
	values := answers.env()
	path, err := config.WriteEnvFile(values)
	if err != nil {
		return "", err
	}
	for k, v := range values {
		if err := os.Setenv(k, v); err != nil {
			return "", err
		}
	}
	return path, nil
}

func validateTokenInput(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("token is required")
	}
	return validateTelegramToken(s)
}

func validateAdminID(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("user ID is required")
	}
	if id, err := strconv.ParseInt(s, 10, 64); err != nil || id <= 0 {
		return errors.New("must be a positive number")
	}
	return nil
}

func validateDepth(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return errors.New("must be a number")
	}
	return pipeline.Options{TargetDepth: n}.Validate()
}

// telegramAPIURL is the Bot API base URL, replaced in tests.
var telegramAPIURL = "https://api.telegram.org"

// validateTelegramToken validates a Telegram bot token by calling the getMe API.
func validateTelegramToken(token string) error {
	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description,omitempty"`
	}

	res, err := resty.New().
		SetTimeout(10*time.Second).
		R().
		SetResult(&result).
		SetError(&result).
		Get(fmt.Sprintf("%s/bot%s/getMe", telegramAPIURL, token))
	if err != nil {
		return errors.New("connection failed - check your internet")
	}

	if !result.OK {
		if result.Description != "" {
			return errors.New(result.Description)
		}
		return fmt.Errorf("token rejected by Telegram (HTTP %d)", res.StatusCode())
	}

	return nil
}

// waitOnWindows pauses execution on Windows so users can see error messages
// before the console window closes.
func waitOnWindows() {
	if runtime.GOOS == "windows" {
		fmt.Println()
		fmt.Println("Press Enter to exit...")
		fmt.Scanln()
	}
}

// fatalWithWait logs a fatal error and waits on Windows before exiting.
func fatalWithWait(format string, args ...interface{}) {
	log.Error().Msgf(format, args...)
	waitOnWindows()
	os.Exit(1)
}
