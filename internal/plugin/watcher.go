package plugin

import (
	"context"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the event bursts editors and package managers
// produce into a single reload signal.
const watchDebounce = 500 * time.Millisecond

// Watcher surfaces plugin-directory changes on a channel. It never reloads
// by itself: the host sequences reloads behind its own no-new-work barrier.
type Watcher struct {
	dir     string
	changes chan struct{}
}

func NewWatcher(dir string) *Watcher {
	return &Watcher{dir: dir, changes: make(chan struct{}, 1)}
}

// Changes delivers at most one pending signal; coalesced while unconsumed.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

// Run watches the plugin directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}

	// Single debounce timer, reset on each event; started stopped.
	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-timer.C:
			select {
			case w.changes <- struct{}{}:
			default:
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".go") {
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(watchDebounce)

		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}
