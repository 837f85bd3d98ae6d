package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/justchokingaround/vidsource/internal/providers"
	"github.com/justchokingaround/vidsource/internal/resolver"
	"github.com/justchokingaround/vidsource/internal/subtitles"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

var movieReq = providers.SourceRequest{Kind: providers.MediaKindMovie, MovieID: "550"}

// fakeResolver answers from a map keyed by request key. Requests whose key is
// in gates block until the gate is closed or the context ends.
type fakeResolver struct {
	mu       sync.Mutex
	results  map[string][]providers.VideoSource
	gates    map[string]chan struct{}
	calls    int
	canceled int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		results: map[string][]providers.VideoSource{},
		gates:   map[string]chan struct{}{},
	}
}

func (f *fakeResolver) set(req providers.SourceRequest, sources ...providers.VideoSource) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[req.Key()] = sources
}

func (f *fakeResolver) gate(req providers.SourceRequest) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[req.Key()] = ch
	return ch
}

func (f *fakeResolver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeResolver) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canceled
}

func (f *fakeResolver) Resolve(ctx context.Context, req providers.SourceRequest) []providers.VideoSource {
	f.mu.Lock()
	f.calls++
	gate := f.gates[req.Key()]
	sources := f.results[req.Key()]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			f.mu.Lock()
			f.canceled++
			f.mu.Unlock()
			return nil
		}
	}
	return sources
}

type fakeSubtitles struct {
	mu     sync.Mutex
	tracks []subtitles.Track
	cues   map[string][]subtitles.Cue
	errs   map[string]error
	gates  map[string]chan struct{}
}

func newFakeSubtitles(tracks ...subtitles.Track) *fakeSubtitles {
	return &fakeSubtitles{
		tracks: tracks,
		cues:   map[string][]subtitles.Cue{},
		errs:   map[string]error{},
		gates:  map[string]chan struct{}{},
	}
}

func (f *fakeSubtitles) TracksFor(ctx context.Context, req providers.SourceRequest) []subtitles.Track {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]subtitles.Track(nil), f.tracks...)
}

func (f *fakeSubtitles) FetchCues(ctx context.Context, url string) ([]subtitles.Cue, error) {
	f.mu.Lock()
	gate := f.gates[url]
	cues, err := f.cues[url], f.errs[url]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return cues, err
}

func src(id, provider string) providers.VideoSource {
	return providers.VideoSource{
		ID:       id,
		Name:     id,
		Quality:  providers.QualityAuto,
		URL:      "https://" + provider + ".example/" + id,
		Kind:     providers.SourceKindEmbed,
		Provider: provider,
	}
}

func newTestController(t *testing.T, res SourceResolver, subs SubtitleSource, fallback *providers.FallbackGenerator, opts Options) *Controller {
	t.Helper()
	c := NewController(res, subs, fallback, opts)
	t.Cleanup(func() {
		c.Close()
		c.Wait()
	})
	return c
}

func waitState(t *testing.T, c *Controller, state State) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.Snapshot().State == state
	}, waitFor, tick, "expected state %s", state)
	return c.Snapshot()
}

func TestController_StartLoadsSources(t *testing.T) {
	res := newFakeResolver()
	res.set(movieReq, src("vidplus-embed", "vidplus"), src("vidnest-embed", "vidnest"))
	subs := newFakeSubtitles(subtitles.Track{ID: "101", Language: "en", URL: "https://s.example/en.srt"})

	c := newTestController(t, res, subs, nil, Options{})
	assert.Equal(t, StateIdle, c.Snapshot().State)
	assert.NotEmpty(t, c.ID())

	require.NoError(t, c.Start(movieReq))
	snap := waitState(t, c, StateReady)

	require.NotNil(t, snap.Active)
	assert.Equal(t, "vidplus-embed", snap.Active.ID)
	assert.Len(t, snap.Candidates, 2)
	assert.Len(t, snap.Tracks, 1)
	assert.Empty(t, snap.ActiveSubtitleID)
	assert.Equal(t, 0, snap.RetryCount)
	assert.Equal(t, DefaultMaxRetries, snap.MaxRetries)
}

func TestController_StartValidates(t *testing.T) {
	c := newTestController(t, newFakeResolver(), nil, nil, Options{})

	err := c.Start(providers.SourceRequest{Kind: providers.MediaKindSeries, SeriesID: "1399"})
	assert.ErrorIs(t, err, providers.ErrInvalidRequest)
	assert.Equal(t, StateIdle, c.Snapshot().State)
}

func TestController_StartSameParametersIsNoop(t *testing.T) {
	res := newFakeResolver()
	res.set(movieReq, src("a", "vidplus"))
	c := newTestController(t, res, nil, nil, Options{})

	require.NoError(t, c.Start(movieReq))
	waitState(t, c, StateReady)
	require.NoError(t, c.Start(movieReq))

	assert.Equal(t, StateReady, c.Snapshot().State)
	assert.Equal(t, 1, res.callCount())
}

func TestController_ParameterChangeDropsStaleResults(t *testing.T) {
	ep1 := providers.SourceRequest{Kind: providers.MediaKindSeries, SeriesID: "1399", Season: 1, Episode: 1}
	ep2 := ep1
	ep2.Episode = 2

	res := newFakeResolver()
	res.set(ep1, src("old", "vidplus"))
	res.set(ep2, src("new", "vidplus"))
	gate1 := res.gate(ep1)
	gate2 := res.gate(ep2)

	c := newTestController(t, res, nil, nil, Options{})
	require.NoError(t, c.Start(ep1))
	require.NoError(t, c.Start(ep2))

	close(gate2)
	snap := waitState(t, c, StateReady)
	require.NotNil(t, snap.Active)
	assert.Equal(t, "new", snap.Active.ID)

	// The first load finishes late; its result must not replace the current one.
	close(gate1)
	c.Wait()
	snap = c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, "new", snap.Active.ID)
	assert.Equal(t, ep2, snap.Request)
}

func TestController_FallbackGeneratorWhenResolverEmpty(t *testing.T) {
	registry := providers.MustRegistry(providers.EmbedProviders(providers.DefaultEmbedTheme())...)
	fallback := providers.NewFallbackGenerator(registry, nil)

	c := newTestController(t, newFakeResolver(), nil, fallback, Options{})
	require.NoError(t, c.Start(movieReq))

	snap := waitState(t, c, StateReady)
	require.Len(t, snap.Candidates, 3)
	assert.Equal(t, "vidplus-fallback", snap.Active.ID)
}

func TestController_NoSourcesAvailable(t *testing.T) {
	c := newTestController(t, newFakeResolver(), nil, nil, Options{})
	require.NoError(t, c.Start(movieReq))

	snap := waitState(t, c, StateError)
	assert.Nil(t, snap.Active)
	assert.Empty(t, snap.Candidates)
	assert.Equal(t, ErrNoSourcesAvailable.Error(), snap.Err)
	assert.NotEmpty(t, snap.Banner)
}

func TestController_SwitchSource(t *testing.T) {
	res := newFakeResolver()
	res.set(movieReq, src("a", "vidplus"), src("b", "vidnest"))
	c := newTestController(t, res, nil, nil, Options{})

	require.NoError(t, c.Start(movieReq))
	waitState(t, c, StateReady)

	c.ToggleMenu(MenuSources)
	assert.Equal(t, MenuSources, c.Snapshot().Menu)

	require.NoError(t, c.SwitchSource("b"))
	snap := c.Snapshot()
	assert.Equal(t, "b", snap.Active.ID)
	assert.Equal(t, MenuNone, snap.Menu)

	err := c.SwitchSource("missing")
	assert.ErrorIs(t, err, ErrUnknownSource)
	assert.Equal(t, "b", c.Snapshot().Active.ID)
}

func TestController_SwitchSourceWhileLoading(t *testing.T) {
	res := newFakeResolver()
	res.set(movieReq, src("a", "vidplus"))
	gate := res.gate(movieReq)
	c := newTestController(t, res, nil, nil, Options{})

	require.NoError(t, c.Start(movieReq))
	assert.ErrorIs(t, c.SwitchSource("a"), ErrInvalidState)
	close(gate)
	waitState(t, c, StateReady)
}

func TestController_ReportFailureAndRetry(t *testing.T) {
	res := newFakeResolver()
	res.set(movieReq, src("a", "vidplus"), src("b", "vidnest"))
	c := newTestController(t, res, nil, nil, Options{})

	require.NoError(t, c.Start(movieReq))
	waitState(t, c, StateReady)
	require.NoError(t, c.SwitchSource("b"))

	assert.ErrorIs(t, c.Retry(), ErrInvalidState)

	require.NoError(t, c.ReportLoadFailure("network error"))
	snap := c.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Contains(t, snap.Err, ErrSourceLoadFailure.Error())
	assert.Contains(t, snap.Banner, "b")
	assert.Equal(t, "b", snap.Active.ID, "no auto-advance on failure")

	require.NoError(t, c.Retry())
	snap = waitState(t, c, StateReady)
	assert.Equal(t, 1, snap.RetryCount)
	assert.Equal(t, "b", snap.Active.ID, "retry keeps the active source")
	assert.Empty(t, snap.Banner)
	assert.Equal(t, 2, res.callCount())
}

func TestController_RetryCap(t *testing.T) {
	res := newFakeResolver()
	res.set(movieReq, src("a", "vidplus"), src("b", "vidnest"))
	c := newTestController(t, res, nil, nil, Options{})

	require.NoError(t, c.Start(movieReq))
	waitState(t, c, StateReady)

	for i := 1; i <= DefaultMaxRetries; i++ {
		require.NoError(t, c.ReportLoadFailure("boom"))
		require.NoError(t, c.Retry())
		snap := waitState(t, c, StateReady)
		assert.Equal(t, i, snap.RetryCount)
	}

	require.NoError(t, c.ReportLoadFailure("boom"))
	before := c.Snapshot()
	assert.True(t, before.RetriesExhausted)

	assert.ErrorIs(t, c.Retry(), ErrRetriesExhausted)
	after := c.Snapshot()
	assert.Equal(t, StateError, after.State)
	assert.Equal(t, DefaultMaxRetries, after.RetryCount)
	assert.Equal(t, 1+DefaultMaxRetries, res.callCount())

	// Manual switching still works once retries are exhausted.
	require.NoError(t, c.SwitchSource("b"))
	assert.Equal(t, StateReady, c.Snapshot().State)
}

func TestController_RetryCountResetsOnParameterChange(t *testing.T) {
	other := providers.SourceRequest{Kind: providers.MediaKindMovie, MovieID: "551"}
	res := newFakeResolver()
	res.set(movieReq, src("a", "vidplus"))
	res.set(other, src("c", "vidplus"))
	c := newTestController(t, res, nil, nil, Options{MaxRetries: 1})

	require.NoError(t, c.Start(movieReq))
	waitState(t, c, StateReady)
	require.NoError(t, c.ReportLoadFailure("boom"))
	require.NoError(t, c.Retry())
	waitState(t, c, StateReady)
	assert.Equal(t, 1, c.Snapshot().RetryCount)

	require.NoError(t, c.Start(other))
	snap := waitState(t, c, StateReady)
	assert.Equal(t, 0, snap.RetryCount)
	assert.Equal(t, "c", snap.Active.ID)
}

func TestController_RetryObservesRetryingState(t *testing.T) {
	res := newFakeResolver()
	res.set(movieReq, src("a", "vidplus"))

	var mu sync.Mutex
	var states []State
	c := newTestController(t, res, nil, nil, Options{
		OnChange: func(s Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			if len(states) == 0 || states[len(states)-1] != s.State {
				states = append(states, s.State)
			}
		},
	})

	require.NoError(t, c.Start(movieReq))
	waitState(t, c, StateReady)
	require.NoError(t, c.ReportLoadFailure("boom"))
	require.NoError(t, c.Retry())
	waitState(t, c, StateReady)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateLoading, StateReady, StateError, StateRetrying, StateLoading, StateReady}, states)
}

func TestController_Subtitles(t *testing.T) {
	tracks := []subtitles.Track{
		{ID: "en", Language: "en", URL: "https://s.example/en.srt"},
		{ID: "fr", Language: "fr", URL: "https://s.example/fr.srt"},
		{ID: "none", Language: "English", URL: ""},
		{ID: "broken", Language: "de", URL: "https://s.example/de.srt"},
	}
	subs := newFakeSubtitles(tracks...)
	subs.cues["https://s.example/en.srt"] = []subtitles.Cue{{Start: 1, End: 2, Text: "Hello"}}
	subs.cues["https://s.example/fr.srt"] = []subtitles.Cue{{Start: 1, End: 2, Text: "Bonjour"}}
	subs.errs["https://s.example/de.srt"] = errors.New("404")

	res := newFakeResolver()
	res.set(movieReq, src("a", "vidplus"))
	c := newTestController(t, res, subs, nil, Options{})
	require.NoError(t, c.Start(movieReq))
	waitState(t, c, StateReady)

	t.Run("fetches cues", func(t *testing.T) {
		require.NoError(t, c.SwitchSubtitle("en"))
		require.Eventually(t, func() bool { return len(c.Snapshot().Cues) == 1 }, waitFor, tick)
		snap := c.Snapshot()
		assert.Equal(t, "Hello", snap.Cues[0].Text)
		track, ok := snap.ActiveTrack()
		require.True(t, ok)
		assert.Equal(t, "en", track.ID)
	})

	t.Run("empty URL yields zero cues", func(t *testing.T) {
		require.NoError(t, c.SwitchSubtitle("none"))
		c.Wait()
		snap := c.Snapshot()
		assert.Equal(t, "none", snap.ActiveSubtitleID)
		assert.Empty(t, snap.Cues)
	})

	t.Run("fetch failure degrades silently", func(t *testing.T) {
		require.NoError(t, c.SwitchSubtitle("broken"))
		c.Wait()
		snap := c.Snapshot()
		assert.Equal(t, "broken", snap.ActiveSubtitleID)
		assert.Empty(t, snap.Cues)
		assert.Equal(t, StateReady, snap.State)
		assert.Empty(t, snap.Err)
	})

	t.Run("unknown track", func(t *testing.T) {
		assert.ErrorIs(t, c.SwitchSubtitle("xx"), ErrUnknownTrack)
		assert.Equal(t, "broken", c.Snapshot().ActiveSubtitleID)
	})

	t.Run("off clears cues", func(t *testing.T) {
		require.NoError(t, c.SwitchSubtitle("en"))
		require.Eventually(t, func() bool { return len(c.Snapshot().Cues) == 1 }, waitFor, tick)
		require.NoError(t, c.SwitchSubtitle(""))
		snap := c.Snapshot()
		assert.Empty(t, snap.ActiveSubtitleID)
		assert.Empty(t, snap.Cues)
	})

	t.Run("latest selection wins", func(t *testing.T) {
		gate := make(chan struct{})
		subs.mu.Lock()
		subs.gates["https://s.example/en.srt"] = gate
		subs.mu.Unlock()

		require.NoError(t, c.SwitchSubtitle("en"))
		require.NoError(t, c.SwitchSubtitle("fr"))
		require.Eventually(t, func() bool { return len(c.Snapshot().Cues) == 1 }, waitFor, tick)
		close(gate)
		c.Wait()

		snap := c.Snapshot()
		assert.Equal(t, "fr", snap.ActiveSubtitleID)
		require.Len(t, snap.Cues, 1)
		assert.Equal(t, "Bonjour", snap.Cues[0].Text)
	})
}

func TestController_Close(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewKeyHub()
	res := newFakeResolver()
	res.set(movieReq, src("a", "vidplus"))
	gate := res.gate(movieReq)

	c := NewController(res, nil, nil, Options{Keys: hub, ControlsTimeout: time.Hour})
	require.NoError(t, c.Start(movieReq))
	assert.Equal(t, 1, hub.Len())
	c.PointerMoved()

	c.Close()
	c.Close()
	c.Wait()
	close(gate)

	snap := c.Snapshot()
	assert.Equal(t, StateClosed, snap.State)
	assert.False(t, snap.ControlsVisible)
	assert.Nil(t, snap.Active)
	assert.Equal(t, 0, hub.Len())

	assert.ErrorIs(t, c.Start(movieReq), ErrSessionClosed)
	assert.ErrorIs(t, c.SwitchSource("a"), ErrSessionClosed)
	assert.ErrorIs(t, c.SwitchSubtitle(""), ErrSessionClosed)
	assert.ErrorIs(t, c.Retry(), ErrSessionClosed)
	assert.ErrorIs(t, c.ReportLoadFailure("x"), ErrSessionClosed)
	c.PointerMoved()
	assert.False(t, c.Snapshot().ControlsVisible)
}

func TestController_KeyBindings(t *testing.T) {
	hub := NewKeyHub()
	res := newFakeResolver()
	res.set(movieReq, src("a", "vidplus"))
	c := newTestController(t, res, nil, nil, Options{Keys: hub, ControlsTimeout: time.Hour})

	assert.False(t, hub.Dispatch("esc"), "no bindings before the first start")
	require.NoError(t, c.Start(movieReq))
	waitState(t, c, StateReady)

	assert.True(t, hub.Dispatch("space"))
	assert.True(t, c.Snapshot().ControlsVisible)
	assert.False(t, hub.Dispatch("x"))

	assert.True(t, hub.Dispatch("esc"))
	assert.Equal(t, StateClosed, c.Snapshot().State)
	assert.False(t, hub.Dispatch("esc"))
}

func TestController_ControlsAutoHide(t *testing.T) {
	var mu sync.Mutex
	var visibility []bool
	c := newTestController(t, newFakeResolver(), nil, nil, Options{
		ControlsTimeout: 30 * time.Millisecond,
		OnChange: func(s Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			visibility = append(visibility, s.ControlsVisible)
		},
	})

	c.PointerMoved()
	assert.True(t, c.Snapshot().ControlsVisible)
	require.Eventually(t, func() bool { return !c.Snapshot().ControlsVisible }, waitFor, tick)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, visibility)
}

// flakyAggregator fails its first call and answers afterwards
type flakyAggregator struct {
	calls atomic.Int32
}

func (f *flakyAggregator) ID() string { return "p-stream" }

func (f *flakyAggregator) Sources(ctx context.Context, req providers.SourceRequest) ([]providers.VideoSource, error) {
	if f.calls.Add(1) == 1 {
		return nil, errors.New("aggregator unavailable")
	}
	return []providers.VideoSource{src("p-stream-0", "p-stream")}, nil
}

func TestController_RetryReachesRecoveredAggregatorThroughCache(t *testing.T) {
	registry := providers.MustRegistry(providers.EmbedProviders(providers.DefaultEmbedTheme())...)
	agg := &flakyAggregator{}
	cached := resolver.NewCached(resolver.NewEngine(agg, registry, nil), 256, 10*time.Minute)

	c := newTestController(t, cached, nil, nil, Options{})
	require.NoError(t, c.Start(movieReq))
	snap := waitState(t, c, StateReady)
	assert.Equal(t, "vidplus-fallback", snap.Active.ID)

	require.NoError(t, c.ReportLoadFailure("blank player"))
	require.NoError(t, c.Retry())
	snap = waitState(t, c, StateReady)

	assert.Equal(t, int32(2), agg.calls.Load())
	assert.Equal(t, 1, snap.RetryCount)
	ids := make([]string, len(snap.Candidates))
	for i, s := range snap.Candidates {
		ids[i] = s.ID
	}
	assert.Contains(t, ids, "p-stream-0")
}

type invalidatingResolver struct {
	*fakeResolver
	invalidated []string
}

func (r *invalidatingResolver) Invalidate(req providers.SourceRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, req.Key())
}

func TestController_RetryInvalidatesResolver(t *testing.T) {
	res := &invalidatingResolver{fakeResolver: newFakeResolver()}
	res.set(movieReq, src("a", "vidplus"))
	c := newTestController(t, res, nil, nil, Options{})

	require.NoError(t, c.Start(movieReq))
	waitState(t, c, StateReady)

	res.mu.Lock()
	assert.Empty(t, res.invalidated, "first load reads through")
	res.mu.Unlock()

	require.NoError(t, c.ReportLoadFailure("boom"))
	require.NoError(t, c.Retry())
	waitState(t, c, StateReady)

	res.mu.Lock()
	defer res.mu.Unlock()
	assert.Equal(t, []string{movieReq.Key()}, res.invalidated)
}

func TestController_ParameterChangeCancelsInFlightLoad(t *testing.T) {
	other := providers.SourceRequest{Kind: providers.MediaKindMovie, MovieID: "551"}
	res := newFakeResolver()
	res.set(movieReq, src("old", "vidplus"))
	res.set(other, src("new", "vidplus"))
	res.gate(movieReq)

	c := newTestController(t, res, nil, nil, Options{})
	require.NoError(t, c.Start(movieReq))
	require.Eventually(t, func() bool { return res.callCount() == 1 }, waitFor, tick)

	require.NoError(t, c.Start(other))
	snap := waitState(t, c, StateReady)
	assert.Equal(t, "new", snap.Active.ID)

	// The gate for the first request is never opened; only cancellation ends it.
	require.Eventually(t, func() bool { return res.cancelCount() == 1 }, waitFor, tick)
	assert.Equal(t, StateReady, c.Snapshot().State)
}
