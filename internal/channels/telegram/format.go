package telegram

import (
	"strings"
)

// MarkdownToHTML converts the small markdown subset used in bot replies
// (**bold** and `code`) to Telegram HTML, escaping everything else.
func MarkdownToHTML(text string) string {
	return convert(text, true)
}

// StripFormatting removes the same markdown markers and returns plain text.
func StripFormatting(text string) string {
	return convert(text, false)
}

func convert(text string, html bool) string {
	var b strings.Builder
	runes := []rune(text)

	for i := 0; i < len(runes); {
		switch {
		case runes[i] == '`':
			if end := indexFrom(runes, i+1, "`"); end >= 0 {
				writeSpan(&b, runes[i+1:end], "code", html)
				i = end + 1
				continue
			}
		case runes[i] == '*' && i+1 < len(runes) && runes[i+1] == '*':
			if end := indexFrom(runes, i+2, "**"); end > i+2 {
				writeSpan(&b, runes[i+2:end], "b", html)
				i = end + 2
				continue
			}
		}
		writeText(&b, string(runes[i]), html)
		i++
	}
	return b.String()
}

// indexFrom returns the rune index of marker at or after from, or -1.
func indexFrom(runes []rune, from int, marker string) int {
	m := []rune(marker)
	for i := from; i+len(m) <= len(runes); i++ {
		match := true
		for j := range m {
			if runes[i+j] != m[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func writeSpan(b *strings.Builder, content []rune, tag string, html bool) {
	if html {
		b.WriteString("<" + tag + ">")
	}
	writeText(b, string(content), html)
	if html {
		b.WriteString("</" + tag + ">")
	}
}

func writeText(b *strings.Builder, s string, html bool) {
	if !html {
		b.WriteString(s)
		return
	}
	for _, r := range s {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		default:
			b.WriteRune(r)
		}
	}
}
