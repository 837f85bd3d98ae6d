package clipboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
)

// ErrNoClipboard is returned when neither the system clipboard nor any
// fallback tool is available
var ErrNoClipboard = errors.New("no clipboard tool found (install wl-clipboard, xclip or xsel)")

// Service copies text to the system clipboard
type Service struct {
	command  string
	logger   *slog.Logger
	writeAll func(string) error
	lookPath func(string) (string, error)
}

// NewService creates a clipboard service. command overrides the fallback
// tool used when the system clipboard is not reachable; it may be empty.
func NewService(command string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		command:  command,
		logger:   logger,
		writeAll: clipboard.WriteAll,
		lookPath: exec.LookPath,
	}
}

// Copy writes text to the clipboard, trying the native clipboard first
func (s *Service) Copy(ctx context.Context, text string) error {
	err := s.writeAll(text)
	if err == nil {
		s.logger.Debug("copied to clipboard", "length", len(text))
		return nil
	}
	s.logger.Warn("native clipboard unavailable, trying fallback", "error", err)

	parts := s.fallbackCommand()
	if len(parts) == 0 {
		return ErrNoClipboard
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("clipboard command %q failed: %w", parts[0], err)
	}

	s.logger.Debug("copied to clipboard", "command", parts[0], "length", len(text))
	return nil
}

// fallbackCommand picks the configured command or the first tool found for
// the platform
func (s *Service) fallbackCommand() []string {
	if s.command != "" {
		return parseCommand(s.command)
	}

	var candidates [][]string
	switch runtime.GOOS {
	case "darwin":
		candidates = [][]string{{"pbcopy"}}
	case "windows":
		candidates = [][]string{{"clip.exe"}}
	case "linux":
		if isWSL() {
			candidates = append(candidates, []string{"clip.exe"})
		}
		candidates = append(candidates,
			[]string{"wl-copy"},
			[]string{"xclip", "-selection", "clipboard"},
			[]string{"xsel", "--clipboard", "--input"},
		)
	}

	for _, c := range candidates {
		if _, err := s.lookPath(c[0]); err == nil {
			return c
		}
	}
	return nil
}

// parseCommand splits a command line on spaces, keeping quoted arguments whole
func parseCommand(command string) []string {
	var (
		parts     []string
		current   strings.Builder
		inQuotes  bool
		quoteChar rune
	)

	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
	}

	for _, r := range command {
		switch {
		case (r == '\'' || r == '"') && !inQuotes:
			inQuotes, quoteChar = true, r
		case inQuotes && r == quoteChar:
			inQuotes = false
		case (r == ' ' || r == '\t') && !inQuotes:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return parts
}

// isWSL reports whether we run inside Windows Subsystem for Linux
func isWSL() bool {
	version, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	v := strings.ToLower(string(version))
	return strings.Contains(v, "microsoft") || strings.Contains(v, "wsl")
}
