package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/justchokingaround/vidsource/internal/config"
	"github.com/justchokingaround/vidsource/internal/metrics"
	"github.com/justchokingaround/vidsource/internal/providers"
	"github.com/justchokingaround/vidsource/internal/subtitles"
)

// SourceResolver produces the candidate list for a request
type SourceResolver interface {
	Resolve(ctx context.Context, req providers.SourceRequest) []providers.VideoSource
}

// Invalidator is implemented by resolvers that keep results between calls.
// Retry invalidates the request before reloading it.
type Invalidator interface {
	Invalidate(req providers.SourceRequest)
}

// SubtitleSource lists tracks and fetches caption files
type SubtitleSource interface {
	TracksFor(ctx context.Context, req providers.SourceRequest) []subtitles.Track
	FetchCues(ctx context.Context, url string) ([]subtitles.Cue, error)
}

// Options configures a Controller
type Options struct {
	MaxRetries      int
	ControlsTimeout time.Duration
	CloseKey        string
	ShowControlsKey string
	// Keys receives the session-wide bindings on the first Start. Optional.
	Keys *KeyHub
	// OnChange receives a snapshot after every mutation, in mutation order and
	// without the controller lock held. It must not block.
	OnChange func(Snapshot)
	Logger   *slog.Logger
}

// OptionsFromConfig maps player configuration to controller options
func OptionsFromConfig(cfg config.PlayerConfig) Options {
	return Options{
		MaxRetries:      cfg.MaxRetries,
		ControlsTimeout: cfg.ControlsTimeout,
		CloseKey:        cfg.Keys.Close,
		ShowControlsKey: cfg.Keys.ShowControls,
	}
}

// Controller drives one playback session. All methods are safe for
// concurrent use. Asynchronous results are applied only if no parameter
// change, retry or close happened since they were requested.
type Controller struct {
	resolver  SourceResolver
	subtitles SubtitleSource
	fallback  *providers.FallbackGenerator
	opts      Options
	logger    *slog.Logger
	controls  *ControlsTimer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// cancelLoad aborts the resolution and track listing of the current generation
	cancelLoad context.CancelFunc

	deliverMu sync.Mutex
	pending   []Snapshot

	mu         sync.Mutex
	id         string
	generation uint64
	subToken   uint64
	started    bool
	keysBound  bool
	unbindKeys func()

	req        providers.SourceRequest
	candidates []providers.VideoSource
	activeID   string
	tracks     []subtitles.Track
	activeSub  string
	cues       []subtitles.Cue
	state      State
	retryCount int
	err        error
	menu       Menu
	banner     string
}

// NewController creates an idle session. fallback may be nil.
func NewController(resolver SourceResolver, subs SubtitleSource, fallback *providers.FallbackGenerator, opts Options) *Controller {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.CloseKey == "" {
		opts.CloseKey = "esc"
	}
	if opts.ShowControlsKey == "" {
		opts.ShowControlsKey = "space"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		resolver:  resolver,
		subtitles: subs,
		fallback:  fallback,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		id:        uuid.NewString(),
		state:     StateIdle,
	}
	c.logger = logger.With("session", c.id)
	c.controls = NewControlsTimer(opts.ControlsTimeout, func(bool) {
		c.mu.Lock()
		c.publishLocked()
		c.mu.Unlock()
		c.flush()
	})
	return c
}

// ID returns the session id
func (c *Controller) ID() string {
	return c.id
}

// Start loads sources for req. Starting again with the same parameters while
// a load is in flight or finished is a no-op; different parameters abandon
// any in-flight work and reset the session.
func (c *Controller) Start(req providers.SourceRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrSessionClosed
	}

	if !c.keysBound && c.opts.Keys != nil {
		c.unbindKeys = c.opts.Keys.Register(c.handleKey)
		c.keysBound = true
	}

	if c.started && c.req.Key() == req.Key() && c.state != StateIdle {
		c.mu.Unlock()
		return nil
	}

	c.started = true
	c.req = req
	c.candidates = nil
	c.activeID = ""
	c.tracks = nil
	c.activeSub = ""
	c.cues = nil
	c.retryCount = 0
	c.menu = MenuNone
	c.beginLoadLocked()
	c.publishLocked()
	c.mu.Unlock()

	c.logger.Info("starting session", "kind", req.Kind, "id", req.ContentID(), "season", req.Season, "episode", req.Episode, "dub", req.Dubbed)
	c.flush()
	return nil
}

// beginLoadLocked invalidates outstanding work and dispatches a new load
func (c *Controller) beginLoadLocked() {
	c.generation++
	c.subToken++
	c.err = nil
	c.banner = ""
	c.setStateLocked(StateLoading)

	if c.cancelLoad != nil {
		c.cancelLoad()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelLoad = cancel

	gen := c.generation
	req := c.req
	c.wg.Add(1)
	go c.load(ctx, gen, req)
}

func (c *Controller) load(ctx context.Context, gen uint64, req providers.SourceRequest) {
	defer c.wg.Done()

	var (
		sources []providers.VideoSource
		tracks  []subtitles.Track
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sources = c.resolver.Resolve(gctx, req)
		return gctx.Err()
	})
	if c.subtitles != nil {
		g.Go(func() error {
			tracks = c.subtitles.TracksFor(gctx, req)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.Debug("load abandoned", "generation", gen, "error", err)
		return
	}

	if len(sources) == 0 && c.fallback != nil {
		sources = c.fallback.Generate(req)
	}

	c.mu.Lock()
	if gen != c.generation || c.state == StateClosed {
		c.mu.Unlock()
		c.logger.Debug("dropping stale load result", "generation", gen)
		return
	}

	c.tracks = tracks
	c.activeSub = ""
	c.cues = nil

	if len(sources) == 0 {
		c.candidates = nil
		c.activeID = ""
		c.err = ErrNoSourcesAvailable
		c.banner = "No sources available for this title."
		c.setStateLocked(StateError)
	} else {
		c.candidates = sources
		if c.indexOfLocked(c.activeID) < 0 {
			c.activeID = sources[0].ID
		}
		c.err = nil
		c.setStateLocked(StateReady)
	}
	state := c.state
	c.publishLocked()
	c.mu.Unlock()

	c.logger.Info("session loaded", "state", state, "candidates", len(sources), "tracks", len(tracks))
	c.flush()
}

// SwitchSource makes the candidate with id active. It is allowed after a
// failure, including when retries are exhausted.
func (c *Controller) SwitchSource(id string) error {
	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		return ErrSessionClosed
	case StateReady, StateError:
	default:
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot switch source while %s", ErrInvalidState, state)
	}

	if c.indexOfLocked(id) < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}

	c.activeID = id
	c.menu = MenuNone
	c.banner = ""
	c.err = nil
	c.setStateLocked(StateReady)
	c.publishLocked()
	c.mu.Unlock()

	c.logger.Debug("switched source", "source", id)
	c.flush()
	return nil
}

// SwitchSubtitle selects a subtitle track by id; an empty id turns subtitles
// off. Caption download failures leave the track selected with no cues.
func (c *Controller) SwitchSubtitle(id string) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrSessionClosed
	}

	var track subtitles.Track
	if id != "" {
		found := false
		for _, t := range c.tracks {
			if t.ID == id {
				track, found = t, true
				break
			}
		}
		if !found {
			c.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrUnknownTrack, id)
		}
	}

	c.subToken++
	c.activeSub = id
	c.cues = nil
	c.menu = MenuNone

	if track.URL != "" && c.subtitles != nil {
		gen, token := c.generation, c.subToken
		c.wg.Add(1)
		go c.fetchCues(gen, token, track)
	}
	c.publishLocked()
	c.mu.Unlock()

	c.flush()
	return nil
}

func (c *Controller) fetchCues(gen, token uint64, track subtitles.Track) {
	defer c.wg.Done()

	cues, err := c.subtitles.FetchCues(c.ctx, track.URL)
	if err != nil {
		c.logger.Warn("subtitle unavailable", "track", track.ID, "error", fmt.Errorf("%w: %w", ErrSubtitleFetchFailure, err))
		cues = nil
	}

	c.mu.Lock()
	if gen != c.generation || token != c.subToken || c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.cues = cues
	c.publishLocked()
	c.mu.Unlock()

	c.flush()
}

// ReportLoadFailure records that the rendering surface could not play the
// active source. The session does not advance to another source on its own.
func (c *Controller) ReportLoadFailure(reason string) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	if c.state != StateReady {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot report failure while %s", ErrInvalidState, state)
	}

	name := c.activeID
	if i := c.indexOfLocked(c.activeID); i >= 0 {
		name = c.candidates[i].Name
	}
	if reason == "" {
		reason = "playback failed"
	}
	c.err = fmt.Errorf("%w: %s: %s", ErrSourceLoadFailure, name, reason)
	c.banner = fmt.Sprintf("%s failed to load. Try another source or retry.", name)
	c.setStateLocked(StateError)
	c.publishLocked()
	c.mu.Unlock()

	c.logger.Warn("source failed to load", "source", name, "reason", reason)
	c.flush()
	return nil
}

// Retry reloads the current request after a failure, up to MaxRetries times
// per parameter set
func (c *Controller) Retry() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	if c.state != StateError {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot retry while %s", ErrInvalidState, state)
	}
	if c.retryCount >= c.opts.MaxRetries {
		c.mu.Unlock()
		return ErrRetriesExhausted
	}

	if inv, ok := c.resolver.(Invalidator); ok {
		inv.Invalidate(c.req)
	}
	c.retryCount++
	attempt := c.retryCount
	c.setStateLocked(StateRetrying)
	c.publishLocked()
	c.beginLoadLocked()
	c.publishLocked()
	c.mu.Unlock()

	c.logger.Info("retrying session", "attempt", attempt, "max", c.opts.MaxRetries)
	c.flush()
	return nil
}

// ToggleMenu opens menu, or closes it if it is already open
func (c *Controller) ToggleMenu(menu Menu) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	if c.menu == menu {
		c.menu = MenuNone
	} else {
		c.menu = menu
	}
	c.publishLocked()
	c.mu.Unlock()

	c.flush()
}

// CloseMenu closes any open menu
func (c *Controller) CloseMenu() {
	c.mu.Lock()
	if c.state == StateClosed || c.menu == MenuNone {
		c.mu.Unlock()
		return
	}
	c.menu = MenuNone
	c.publishLocked()
	c.mu.Unlock()

	c.flush()
}

// PointerMoved shows the controls and restarts their hide countdown
func (c *Controller) PointerMoved() {
	c.controls.Show()
}

// Close ends the session. In-flight requests are cancelled and their results
// ignored. Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.generation++
	c.subToken++
	c.setStateLocked(StateClosed)
	c.menu = MenuNone
	unbind := c.unbindKeys
	c.unbindKeys = nil
	c.cancel()
	c.controls.Stop()
	c.publishLocked()
	c.mu.Unlock()

	if unbind != nil {
		unbind()
	}
	c.logger.Info("session closed")
	c.flush()
}

// Wait blocks until background loads and caption fetches have returned
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Snapshot returns a copy of the current session state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) handleKey(key string) bool {
	switch key {
	case c.opts.CloseKey:
		c.Close()
		return true
	case c.opts.ShowControlsKey:
		c.controls.Show()
		return true
	}
	return false
}

func (c *Controller) setStateLocked(state State) {
	if c.state == state {
		return
	}
	c.logger.Debug("session transition", "from", c.state, "to", state)
	c.state = state
	metrics.RecordSessionTransition(string(state))
}

func (c *Controller) indexOfLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, s := range c.candidates {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:               c.id,
		Request:          c.req,
		Candidates:       append([]providers.VideoSource(nil), c.candidates...),
		Tracks:           append([]subtitles.Track(nil), c.tracks...),
		ActiveSubtitleID: c.activeSub,
		Cues:             append([]subtitles.Cue(nil), c.cues...),
		State:            c.state,
		RetryCount:       c.retryCount,
		MaxRetries:       c.opts.MaxRetries,
		RetriesExhausted: c.retryCount >= c.opts.MaxRetries,
		Menu:             c.menu,
		Banner:           c.banner,
		ControlsVisible:  c.controls.Visible(),
	}
	if i := c.indexOfLocked(c.activeID); i >= 0 {
		active := c.candidates[i]
		snap.Active = &active
	}
	if c.err != nil {
		snap.Err = c.err.Error()
	}
	return snap
}

// publishLocked queues a snapshot of the current state for the observer
func (c *Controller) publishLocked() {
	if c.opts.OnChange != nil {
		c.pending = append(c.pending, c.snapshotLocked())
	}
}

// flush delivers queued snapshots in mutation order. A caller that finds
// another goroutine delivering leaves its snapshots to that goroutine, which
// keeps observers that call back into the controller from deadlocking.
func (c *Controller) flush() {
	for {
		if !c.deliverMu.TryLock() {
			return
		}
		for {
			c.mu.Lock()
			batch := c.pending
			c.pending = nil
			c.mu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, snap := range batch {
				c.opts.OnChange(snap)
			}
		}
		c.deliverMu.Unlock()

		c.mu.Lock()
		more := len(c.pending) > 0
		c.mu.Unlock()
		if !more {
			return
		}
	}
}
