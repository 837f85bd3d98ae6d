package clipboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(command string, native error) *Service {
	s := NewService(command, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.writeAll = func(string) error { return native }
	return s
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"wl-copy", []string{"wl-copy"}},
		{"xclip -selection clipboard", []string{"xclip", "-selection", "clipboard"}},
		{`sh -c "cat > /tmp/out"`, []string{"sh", "-c", "cat > /tmp/out"}},
		{`printf '%s' "it's"`, []string{"printf", "%s", "it's"}},
		{"  spaced   out  ", []string{"spaced", "out"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseCommand(tt.in))
		})
	}
}

func TestCopy_NativeClipboard(t *testing.T) {
	var got string
	s := newTestService("", nil)
	s.writeAll = func(text string) error {
		got = text
		return nil
	}

	require.NoError(t, s.Copy(context.Background(), "https://vidnest.fun/movie/550"))
	assert.Equal(t, "https://vidnest.fun/movie/550", got)
}

func TestCopy_FallbackCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	out := filepath.Join(t.TempDir(), "clip.txt")
	s := newTestService(`sh -c "cat > `+out+`"`, errors.New("no display"))

	require.NoError(t, s.Copy(context.Background(), "copied text"))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "copied text", string(data))
}

func TestCopy_FallbackCommandFails(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	s := newTestService("sh -c 'exit 3'", errors.New("no display"))
	err := s.Copy(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"sh"`)
}

func TestCopy_NoTools(t *testing.T) {
	s := newTestService("", errors.New("no display"))
	s.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	assert.ErrorIs(t, s.Copy(context.Background(), "text"), ErrNoClipboard)
}
