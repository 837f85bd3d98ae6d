package mpv

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/diniamo/gopv"

	"github.com/justchokingaround/vidsource/internal/config"
	"github.com/justchokingaround/vidsource/internal/player"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	initTimeout      = 15 * time.Second
	progressInterval = time.Second
)

// Player hands direct sources to mpv and follows playback over its IPC socket
type Player struct {
	mu sync.RWMutex

	client    *gopv.Client
	cmd       *exec.Cmd
	ipcConfig *IPCConfig
	platform  Platform

	state      player.PlaybackState
	currentURL string

	onProgress func(player.PlaybackProgress)
	onEnd      func()
	onError    func(error)

	cancel       context.CancelFunc
	clientClosed bool

	extraArgs      []string
	loadUserConfig bool
	debug          bool
	logger         *slog.Logger
}

var _ player.Surface = (*Player)(nil)

// New creates an mpv player. It fails when no mpv executable is on PATH.
func New(cfg config.PlayerConfig, debug bool, logger *slog.Logger) (*Player, error) {
	platform := DetectPlatform()
	if _, err := FindMPVExecutable(platform); err != nil {
		return nil, fmt.Errorf("mpv not found: %w", err)
	}
	return newPlayer(platform, cfg, debug, logger), nil
}

func newPlayer(platform Platform, cfg config.PlayerConfig, debug bool, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		state:          player.StateStopped,
		platform:       platform,
		extraArgs:      cfg.MPVArgs,
		loadUserConfig: cfg.LoadUserConfig,
		debug:          debug,
		logger:         logger,
	}
}

// Play starts mpv for url and returns once the process is running. Failures
// after launch are reported through OnError.
func (p *Player) Play(ctx context.Context, url string, options player.PlayOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != player.StateStopped {
		if err := p.stopLocked(); err != nil {
			return fmt.Errorf("failed to stop existing playback: %w", err)
		}
	}

	mpvExec := GetMPVExecutable(p.platform)
	if _, err := exec.LookPath(mpvExec); err != nil {
		return fmt.Errorf("mpv executable not found in PATH (%s): %w", mpvExec, err)
	}

	ipcConfig, err := GetIPCConfig(p.platform)
	if err != nil {
		return fmt.Errorf("failed to generate IPC config: %w", err)
	}
	p.ipcConfig = ipcConfig

	p.cmd = exec.Command(mpvExec, p.buildArgs(url, options)...)
	// mpv must not share the terminal with the TUI
	p.cmd.Stdin = nil
	p.cmd.Stdout = nil
	p.cmd.Stderr = nil
	setupProcessAttributes(p.cmd)

	if err := p.cmd.Start(); err != nil {
		p.cleanupIPC()
		p.cmd = nil
		return fmt.Errorf("failed to start %s: %w", mpvExec, err)
	}

	p.logger.Debug("mpv started", "pid", p.cmd.Process.Pid, "ipc", ipcConfig.Address)

	p.currentURL = url
	p.state = player.StateLoading
	p.clientClosed = false

	runCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.connect(ctx, runCtx, ipcConfig, p.cmd)

	return nil
}

// connect waits for the IPC endpoint and starts the monitors
func (p *Player) connect(ctx, runCtx context.Context, ipcConfig *IPCConfig, cmd *exec.Cmd) {
	initCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()

	go p.monitorProcess(cmd)

	if err := p.waitForIPC(initCtx, ipcConfig); err != nil {
		p.fail(cmd, fmt.Errorf("timeout waiting for mpv IPC at %s: %w", ipcConfig.Address, err))
		return
	}

	client, err := gopv.Connect(GetGopvConnectionString(ipcConfig), func(err error) {
		p.logger.Debug("mpv IPC error", "error", err)
	})
	if err != nil {
		p.fail(cmd, fmt.Errorf("failed to connect to mpv IPC at %s: %w", ipcConfig.Address, err))
		return
	}

	p.mu.Lock()
	if p.cmd != cmd {
		// stopped or replaced while connecting
		p.mu.Unlock()
		return
	}
	p.client = client
	p.state = player.StatePlaying
	p.mu.Unlock()

	go p.monitorProgress(runCtx)
}

func (p *Player) fail(cmd *exec.Cmd, err error) {
	p.mu.Lock()
	if p.cmd != cmd {
		p.mu.Unlock()
		return
	}
	_ = p.stopLocked()
	p.state = player.StateError
	callback := p.onError
	p.mu.Unlock()

	p.logger.Warn("mpv playback failed", "error", err)
	if callback != nil {
		callback(err)
	}
}

// Stop quits mpv and releases the IPC endpoint
func (p *Player) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked()
}

// stopLocked must be called with the lock held
func (p *Player) stopLocked() error {
	if p.state == player.StateStopped || p.clientClosed {
		p.state = player.StateStopped
		return nil
	}
	p.clientClosed = true
	p.state = player.StateStopped

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}

	// gopv closes the client itself once mpv exits and the socket hits EOF
	if p.client != nil {
		client := p.client
		p.client = nil
		go func() {
			done := make(chan struct{})
			go func() {
				_, _ = client.Request("quit")
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(500 * time.Millisecond):
			}
		}()
	}

	// monitorProcess owns cmd.Wait
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	p.cmd = nil

	p.cleanupIPC()
	p.currentURL = ""
	return nil
}

func (p *Player) cleanupIPC() {
	if p.ipcConfig != nil && p.ipcConfig.IsSocket {
		_ = os.Remove(p.ipcConfig.Address)
	}
	p.ipcConfig = nil
}

// GetProgress returns the current playback position
func (p *Player) GetProgress(ctx context.Context) (*player.PlaybackProgress, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.client == nil || p.state == player.StateStopped {
		return nil, fmt.Errorf("player is not running")
	}

	progress, err := p.progressLocked()
	if err != nil {
		return nil, fmt.Errorf("mpv IPC error: %w", err)
	}
	return progress, nil
}

// progressLocked queries mpv properties, caller holds at least a read lock
func (p *Player) progressLocked() (*player.PlaybackProgress, error) {
	var failures int
	number := func(name string) float64 {
		result, err := p.client.Request("get_property", name)
		if err != nil {
			failures++
			return 0
		}
		val, _ := result.(float64)
		return val
	}
	flag := func(name string) bool {
		result, err := p.client.Request("get_property", name)
		if err != nil {
			failures++
			return false
		}
		val, _ := result.(bool)
		return val
	}

	timePos := number("time-pos")
	duration := number("duration")
	paused := flag("pause")
	eof := flag("eof-reached")

	if failures >= 3 {
		return nil, fmt.Errorf("IPC connection failed (%d properties unavailable)", failures)
	}

	return &player.PlaybackProgress{
		CurrentTime: time.Duration(timePos * float64(time.Second)),
		Duration:    time.Duration(duration * float64(time.Second)),
		Paused:      paused,
		EOF:         eof,
	}, nil
}

// Seek moves playback to position
func (p *Player) Seek(ctx context.Context, position time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return fmt.Errorf("player is not running")
	}
	if _, err := p.client.Request("set_property", "time-pos", position.Seconds()); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	return nil
}

// OnProgressUpdate sets the callback invoked about once a second while playing
func (p *Player) OnProgressUpdate(callback func(progress player.PlaybackProgress)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onProgress = callback
}

// OnPlaybackEnd sets the callback invoked when mpv reaches the end of the file
func (p *Player) OnPlaybackEnd(callback func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEnd = callback
}

// OnError sets the callback invoked when mpv fails to start or exits abnormally
func (p *Player) OnError(callback func(err error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onError = callback
}

// IsPlaying reports whether mpv is connected and playing
func (p *Player) IsPlaying() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state == player.StatePlaying
}

// State returns the current playback state
func (p *Player) State() player.PlaybackState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Player) monitorProgress(ctx context.Context) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.RLock()
			if p.client == nil {
				p.mu.RUnlock()
				return
			}
			progress, err := p.progressLocked()
			onProgress, onEnd := p.onProgress, p.onEnd
			p.mu.RUnlock()

			if err != nil {
				continue
			}
			if onProgress != nil {
				onProgress(*progress)
			}
			if progress.EOF {
				if onEnd != nil {
					onEnd()
				}
				return
			}
		}
	}
}

// monitorProcess reaps mpv and reports exits that were not requested
func (p *Player) monitorProcess(cmd *exec.Cmd) {
	err := cmd.Wait()

	p.mu.Lock()
	if p.cmd != cmd {
		p.mu.Unlock()
		return
	}
	wasLoading := p.state == player.StateLoading
	_ = p.stopLocked()
	if err != nil || wasLoading {
		p.state = player.StateError
	}
	callback := p.onError
	p.mu.Unlock()

	switch {
	case err != nil:
		err = fmt.Errorf("mpv exited unexpectedly: %w", err)
	case wasLoading:
		err = fmt.Errorf("mpv exited before playback started")
	default:
		return
	}
	p.logger.Warn("mpv playback failed", "error", err)
	if callback != nil {
		callback(err)
	}
}

// buildArgs builds the mpv command line, url last
func (p *Player) buildArgs(url string, opts player.PlayOptions) []string {
	args := []string{
		GetMPVIPCArgument(p.ipcConfig),
		"--idle=no",
		"--no-ytdl",
	}

	if !p.loadUserConfig {
		args = append(args, "--no-config")
	}
	if !p.debug {
		args = append(args, "--msg-level=all=warn")
	}

	if opts.StartTime > 0 {
		args = append(args, fmt.Sprintf("--start=%g", opts.StartTime.Seconds()))
	}
	if opts.Fullscreen {
		args = append(args, "--fullscreen")
	}
	if opts.SubtitleURL != "" {
		args = append(args, "--sub-file="+opts.SubtitleURL)
	}
	if opts.SubtitleLang != "" {
		args = append(args, "--slang="+opts.SubtitleLang)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	args = append(args, "--user-agent="+userAgent)

	if opts.Referer != "" {
		args = append(args, "--referrer="+opts.Referer)
	}

	var headers []string
	for key, value := range opts.Headers {
		if key != "User-Agent" && key != "Referer" {
			headers = append(headers, key+": "+value)
		}
	}
	if len(headers) > 0 {
		args = append(args, "--http-header-fields="+strings.Join(headers, ","))
	}

	if opts.Title != "" {
		args = append(args, "--force-media-title="+opts.Title)
	}

	args = append(args, p.extraArgs...)
	args = append(args, opts.ExtraArgs...)
	return append(args, url)
}

func (p *Player) waitForIPC(ctx context.Context, ipcConfig *IPCConfig) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			switch ipcConfig.Type {
			case IPCUnixSocket:
				if _, err := os.Stat(ipcConfig.Address); err == nil {
					return nil
				}
			case IPCTCP:
				conn, err := net.DialTimeout("tcp", ipcConfig.Address, 200*time.Millisecond)
				if err == nil {
					_ = conn.Close()
					return nil
				}
			case IPCNamedPipe:
				if isPipeReady(ipcConfig.Address) {
					return nil
				}
			}
		}
	}
}
