package notifier

import (
	"strings"
	"time"
	"unicode/utf8"
)

// telegramLimit stays below the 4096 character cap of sendMessage.
const telegramLimit = 3800

// MessageSection is one titled block of lines.
type MessageSection struct {
	Title string
	Lines []string
}

// StructuredMessage renders to Telegram flavoured Markdown: a header line,
// the sections inside one code block, then footer and time.
type StructuredMessage struct {
	Icon      string
	Title     string
	Sections  []MessageSection
	Footer    string
	Timestamp time.Time
}

func (m StructuredMessage) RenderMarkdown() string {
	parts := make([]string, 0, 4)
	if header := strings.TrimSpace(m.Icon + " " + m.Title); header != "" {
		parts = append(parts, header)
	}
	if block := codeBlock(m.Sections); block != "" {
		parts = append(parts, block)
	}
	var tail []string
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		tail = append(tail, escapeFence(footer))
	}
	if !m.Timestamp.IsZero() {
		tail = append(tail, "time: "+m.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	if len(tail) > 0 {
		parts = append(parts, strings.Join(tail, "\n"))
	}
	return truncate(strings.Join(parts, "\n\n"), telegramLimit)
}

func codeBlock(secs []MessageSection) string {
	blocks := make([]string, 0, len(secs))
	for _, sec := range secs {
		var b strings.Builder
		for _, line := range sec.Lines {
			if line = strings.TrimSpace(line); line != "" {
				b.WriteString("- " + escapeFence(line) + "\n")
			}
		}
		if b.Len() == 0 {
			continue
		}
		if title := strings.TrimSpace(sec.Title); title != "" {
			blocks = append(blocks, escapeFence(title)+"\n"+b.String())
			continue
		}
		blocks = append(blocks, b.String())
	}
	if len(blocks) == 0 {
		return ""
	}
	return "```\n" + strings.Join(blocks, "\n") + "```"
}

func escapeFence(s string) string { return strings.ReplaceAll(s, "```", "'''") }

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
