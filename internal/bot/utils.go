package bot

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/lithammer/dedent"

	"github.com/raine/loadsheet-bot/internal/tablefile"
)

// maxDisplayNameLength caps user file names echoed back in replies.
const maxDisplayNameLength = 40

func formatReplyText(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

func parseCommand(s string) (string, []string) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return "", nil
	}
	// Commands in groups may be addressed as /build@botname
	command, _, _ := strings.Cut(parts[0], "@")
	return strings.ToLower(command), parts[1:]
}

// escapeMarkdown escapes special characters for Telegram Markdown V1
func escapeMarkdown(text string) string {
	text = strings.ReplaceAll(text, "*", "\\*")
	text = strings.ReplaceAll(text, "_", "\\_")
	text = strings.ReplaceAll(text, "`", "\\`")
	text = strings.ReplaceAll(text, "[", "\\[")
	return text
}

func pluralize(singular string, plural string, count int) string {
	var s string
	if count == 1 {
		s = singular
	} else {
		s = plural
	}
	return fmt.Sprintf("%s %s", humanize.Comma(int64(count)), s)
}

// displayName shortens a user file name for a reply.
func displayName(name string) string {
	return tablefile.ShortenFilename(name, maxDisplayNameLength)
}
