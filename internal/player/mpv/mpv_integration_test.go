//go:build integration

package mpv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justchokingaround/vidsource/internal/config"
	"github.com/justchokingaround/vidsource/internal/player"
)

const testSource = "av://lavfi:testsrc=duration=10:size=640x360:rate=30"

func newTestPlayer(t *testing.T) *Player {
	p, err := New(config.PlayerConfig{MPVArgs: []string{"--vo=null", "--ao=null"}}, false, nil)
	if err != nil {
		t.Skip("mpv not available, skipping integration tests")
	}
	return p
}

func TestPlayer_PlaySeekStop(t *testing.T) {
	p := newTestPlayer(t)
	ctx := context.Background()

	progressed := make(chan player.PlaybackProgress, 8)
	p.OnProgressUpdate(func(pp player.PlaybackProgress) {
		select {
		case progressed <- pp:
		default:
		}
	})

	require.NoError(t, p.Play(ctx, testSource, player.PlayOptions{StartTime: 2 * time.Second}))
	require.Eventually(t, p.IsPlaying, 10*time.Second, 100*time.Millisecond)

	select {
	case pp := <-progressed:
		assert.GreaterOrEqual(t, pp.CurrentTime, time.Second)
	case <-time.After(5 * time.Second):
		t.Fatal("no progress reported")
	}

	require.NoError(t, p.Seek(ctx, 5*time.Second))
	require.Eventually(t, func() bool {
		pp, err := p.GetProgress(ctx)
		return err == nil && pp.CurrentTime >= 4*time.Second
	}, 5*time.Second, 100*time.Millisecond)

	require.NoError(t, p.Stop(ctx))
	assert.False(t, p.IsPlaying())
}
