// Package watch signals when an export file is rewritten so the caller can
// run a fresh pass over it. There is no incremental parsing: every signal
// means "reopen and rescan from the start".
package watch

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/jkastner/convoscan/internal/logging"
)

var watchLog = logging.ForComponent(logging.CompWatch)

// Options tunes debounce and rescan pacing.
type Options struct {
	// Debounce is how long to wait after the last write event before
	// signalling. Export tools rewrite files in bursts of writes.
	Debounce time.Duration

	// RescansPerMinute caps the signal rate for files under constant churn.
	RescansPerMinute int
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = 300 * time.Millisecond
	}
	if o.RescansPerMinute <= 0 {
		o.RescansPerMinute = 12
	}
	return o
}

// Watcher watches a single export file for rewrites.
type Watcher struct {
	path    string
	base    string
	fsw     *fsnotify.Watcher
	limiter *rate.Limiter
	events  chan struct{}

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a watcher for the given export file. The containing directory
// is watched rather than the file itself, because exporters typically
// replace the file (write temp, rename) which would orphan a file watch.
func New(path string, opts Options) (*Watcher, error) {
	opts = opts.withDefaults()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		path:    path,
		base:    filepath.Base(path),
		fsw:     fsw,
		limiter: rate.NewLimiter(rate.Limit(float64(opts.RescansPerMinute)/60.0), 1),
		events:  make(chan struct{}, 1), // buffered so a slow consumer never blocks the loop
		done:    make(chan struct{}),
	}

	w.wg.Add(1)
	go w.loop(opts.Debounce)
	return w, nil
}

// Events returns the channel that signals when the file should be
// rescanned. Signals are coalesced: a pending signal absorbs later ones.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Close stops the watcher and releases the fsnotify handle.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.fsw.Close()
		w.wg.Wait()
	})
}

func (w *Watcher) loop(debounce time.Duration) {
	defer w.wg.Done()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce: restart the timer on every event in a burst
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, w.signal)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			watchLog.Warn("watch_error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) signal() {
	if !w.limiter.Allow() {
		watchLog.Debug("rescan_rate_limited", slog.String("path", w.path))
		return
	}
	select {
	case w.events <- struct{}{}:
	default:
	}
}
