package subtitles

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// Trailing positional hints after the end timestamp are tolerated
	timingRegex = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2}),(\d{3}) --> (\d{2}):(\d{2}):(\d{2}),(\d{3})(?:\s|$)`)
	blockSplit  = regexp.MustCompile(`\n[ \t]*\n`)
	markupRegex = regexp.MustCompile(`<[^>]*>`)
	lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Cue is one timed caption. Start is always strictly before End.
type Cue struct {
	Start float64 `json:"start"` // seconds
	End   float64 `json:"end"`   // seconds
	Text  string  `json:"text"`
}

// ParseCaptions parses SRT text into cues in file order. Malformed blocks are
// skipped; it never fails.
func ParseCaptions(raw string) []Cue {
	raw = strings.TrimPrefix(lineEndings.Replace(raw), "\ufeff")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var cues []Cue
	for _, block := range blockSplit.Split(raw, -1) {
		lines := nonEmptyLines(block)
		if len(lines) < 3 {
			continue
		}

		m := timingRegex.FindStringSubmatch(lines[1])
		if m == nil {
			continue
		}

		start := timestampSeconds(m[1], m[2], m[3], m[4])
		end := timestampSeconds(m[5], m[6], m[7], m[8])
		if start >= end {
			continue
		}

		text := markupRegex.ReplaceAllString(strings.Join(lines[2:], "\n"), "")
		cues = append(cues, Cue{
			Start: start,
			End:   end,
			Text:  norm.NFC.String(strings.TrimSpace(text)),
		})
	}

	return cues
}

func nonEmptyLines(block string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(block), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func timestampSeconds(h, m, s, ms string) float64 {
	hours, _ := strconv.Atoi(h)
	minutes, _ := strconv.Atoi(m)
	seconds, _ := strconv.Atoi(s)
	millis, _ := strconv.Atoi(ms)
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000
}

// FormatCaptions renders cues back to SRT. Parsing the output yields the same cues.
func FormatCaptions(cues []Cue) string {
	var b strings.Builder
	for i, cue := range cues {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n", i+1, formatTimestamp(cue.Start), formatTimestamp(cue.End), cue.Text)
	}
	return b.String()
}

func formatTimestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	total := int64(math.Round(sec * 1000))
	ms := total % 1000
	total /= 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", total/3600, (total%3600)/60, total%60, ms)
}

// FormatClock renders a playback position as H:MM:SS, or M:SS under an hour
func FormatClock(sec float64) string {
	if sec < 0 || math.IsNaN(sec) {
		sec = 0
	}
	total := int(math.Floor(sec))
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// CueAt returns the cue showing at position sec. When cues overlap the
// earliest in file order wins.
func CueAt(cues []Cue, sec float64) (Cue, bool) {
	for _, cue := range cues {
		if sec >= cue.Start && sec < cue.End {
			return cue, true
		}
	}
	return Cue{}, false
}
