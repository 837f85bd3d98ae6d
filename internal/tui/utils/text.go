package utils

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// WrapCaption wraps caption text to maxWidth columns, keeping the cue's own
// line breaks, and cuts it to maxLines with "..." on the last kept line.
func WrapCaption(text string, maxWidth, maxLines int) string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		lines = append(lines, WrapText(line, maxWidth)...)
	}
	if maxLines <= 0 || len(lines) <= maxLines {
		return strings.Join(lines, "\n")
	}

	kept := lines[:maxLines]
	last := kept[maxLines-1]
	if runewidth.StringWidth(last) > maxWidth-3 {
		last = TruncateWithWidth(last+"...", maxWidth)
	} else {
		last += "..."
	}
	kept[maxLines-1] = last
	return strings.Join(kept, "\n")
}

// WrapText wraps text at word boundaries to fit within maxWidth columns.
// Words wider than maxWidth get a line of their own.
func WrapText(text string, maxWidth int) []string {
	var lines []string
	var current strings.Builder
	width := 0

	for _, word := range strings.Fields(text) {
		wordWidth := runewidth.StringWidth(word)
		switch {
		case width == 0:
			current.WriteString(word)
			width = wordWidth
		case width+1+wordWidth <= maxWidth:
			current.WriteString(" " + word)
			width += 1 + wordWidth
		default:
			lines = append(lines, current.String())
			current.Reset()
			current.WriteString(word)
			width = wordWidth
		}
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

// TruncateWithWidth truncates text to fit within maxWidth columns, adding
// "..." when something was cut. Wide runes count as two columns.
func TruncateWithWidth(text string, maxWidth int) string {
	if runewidth.StringWidth(text) <= maxWidth {
		return text
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(text, maxWidth, "")
	}

	width := 0
	for i, r := range text {
		width += runewidth.RuneWidth(r)
		if width > maxWidth-3 {
			return text[:i] + "..."
		}
	}
	return text
}
