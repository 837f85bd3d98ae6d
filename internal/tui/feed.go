package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/justchokingaround/vidsource/internal/session"
)

// snapshotMsg carries the latest session state into the update loop
type snapshotMsg session.Snapshot

// snapshotFeed hands controller snapshots to the bubbletea loop without
// blocking the controller. Snapshots are complete, so only the newest pending
// one is kept.
type snapshotFeed struct {
	mu      sync.Mutex
	latest  session.Snapshot
	pending bool
	notify  chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newSnapshotFeed() *snapshotFeed {
	return &snapshotFeed{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// push records s and wakes the waiting command
func (f *snapshotFeed) push(s session.Snapshot) {
	f.mu.Lock()
	f.latest = s
	f.pending = true
	f.mu.Unlock()

	select {
	case f.notify <- struct{}{}:
	default:
	}
}

// wait returns a command that delivers the next snapshot
func (f *snapshotFeed) wait() tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case <-f.done:
				return nil
			case <-f.notify:
			}

			f.mu.Lock()
			s, ok := f.latest, f.pending
			f.pending = false
			f.mu.Unlock()
			if ok {
				return snapshotMsg(s)
			}
		}
	}
}

func (f *snapshotFeed) close() {
	f.once.Do(func() { close(f.done) })
}
