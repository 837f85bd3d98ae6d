package tui

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/browser"
	"gorm.io/gorm"

	"github.com/justchokingaround/vidsource/internal/player"
	"github.com/justchokingaround/vidsource/internal/providers"
	"github.com/justchokingaround/vidsource/internal/session"
)

// Deps configures the terminal player
type Deps struct {
	Resolver  session.SourceResolver
	Subtitles session.SubtitleSource
	Fallback  *providers.FallbackGenerator
	Session   session.Options
	DB        *gorm.DB           // optional, stores anime dub/sub choices
	Clipboard Copier             // optional
	OpenURL   func(string) error // defaults to the system browser
	Surface   player.Surface     // optional external player for direct sources
	Logger    *slog.Logger
}

// Run plays req until the viewer closes the session and returns the final
// session state
func Run(ctx context.Context, req providers.SourceRequest, deps Deps) (session.Snapshot, error) {
	if err := req.Validate(); err != nil {
		return session.Snapshot{}, err
	}
	if deps.OpenURL == nil {
		deps.OpenURL = browser.OpenURL
	}

	feed := newSnapshotFeed()
	defer feed.close()

	opts := deps.Session
	if opts.Keys == nil {
		opts.Keys = session.NewKeyHub()
	}
	opts.OnChange = feed.push
	if opts.Logger == nil {
		opts.Logger = deps.Logger
	}

	ctrl := session.NewController(deps.Resolver, deps.Subtitles, deps.Fallback, opts)
	clock := &surfaceClock{}
	if deps.Surface != nil {
		attachSurface(deps.Surface, ctrl, clock)
		defer func() { _ = deps.Surface.Stop(context.Background()) }()
	}
	m := newModel(ctrl, opts.Keys, feed, clock, req, deps)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	_, err := p.Run()

	ctrl.Close()
	ctrl.Wait()
	if err != nil {
		return ctrl.Snapshot(), fmt.Errorf("player failed: %w", err)
	}
	return ctrl.Snapshot(), nil
}
