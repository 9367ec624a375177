package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/moolen/faultline/internal/logging"
)

// PolicyReloadCallback receives every successfully loaded policy. An error
// is logged and the watcher keeps running.
type PolicyReloadCallback func(policy *Policy) error

// PolicyWatcherConfig configures a PolicyWatcher.
type PolicyWatcherConfig struct {
	FilePath string
	// Debounce coalesces bursts of file events. Default 500ms.
	Debounce time.Duration
	// OnError is called when a reload is rejected. Optional.
	OnError func(err error)
}

// PolicyWatcher reloads the policy file when it changes. Invalid files are
// logged and the previously applied policy stays in effect.
type PolicyWatcher struct {
	config   PolicyWatcherConfig
	callback PolicyReloadCallback
	logger   *logging.Logger

	cancel  context.CancelFunc
	stopped chan struct{}
	ready   chan struct{}

	mu            sync.Mutex
	debounceTimer *time.Timer
}

// NewPolicyWatcher creates a watcher for cfg.FilePath.
func NewPolicyWatcher(cfg PolicyWatcherConfig, callback PolicyReloadCallback) (*PolicyWatcher, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("FilePath cannot be empty")
	}
	if callback == nil {
		return nil, fmt.Errorf("callback cannot be nil")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}

	return &PolicyWatcher{
		config:   cfg,
		callback: callback,
		logger:   logging.GetLogger("config.policy"),
		stopped:  make(chan struct{}),
		ready:    make(chan struct{}),
	}, nil
}

// Name implements lifecycle.Component.
func (w *PolicyWatcher) Name() string {
	return "policy-watcher"
}

// Start loads the file once, hands it to the callback and begins watching.
// It returns after the fsnotify watch is in place.
func (w *PolicyWatcher) Start(ctx context.Context) error {
	initial, err := LoadPolicyFile(w.config.FilePath)
	if err != nil {
		return fmt.Errorf("failed to load initial policy: %w", err)
	}
	if err := w.callback(initial); err != nil {
		return fmt.Errorf("initial policy callback failed: %w", err)
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	go w.watchLoop(watchCtx)

	select {
	case <-w.ready:
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	case <-time.After(5 * time.Second):
		cancel()
		return fmt.Errorf("timeout waiting for policy watcher to initialize")
	}

	w.logger.Info("Watching %s for policy changes", w.config.FilePath)
	return nil
}

func (w *PolicyWatcher) signalReady() {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.ready:
	default:
		close(w.ready)
	}
}

func (w *PolicyWatcher) watchLoop(ctx context.Context) {
	defer close(w.stopped)
	defer w.signalReady()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Error("Failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(w.config.FilePath); err != nil {
		w.logger.Error("Failed to watch %s: %v", w.config.FilePath, err)
		return
	}
	w.signalReady()

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			// Atomic replacement unlinks the watched inode; watch the new one.
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				time.Sleep(50 * time.Millisecond)
				if err := watcher.Add(w.config.FilePath); err != nil {
					w.logger.Warn("Failed to re-add watch after %s: %v", event.Op, err)
				}
			}
			w.scheduleReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Policy watcher error: %v", err)
		}
	}
}

func (w *PolicyWatcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.config.Debounce, w.reload)
}

func (w *PolicyWatcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
}

func (w *PolicyWatcher) reload() {
	policy, err := LoadPolicyFile(w.config.FilePath)
	if err != nil {
		w.logger.Warn("Keeping previous policy: %v", err)
		w.reportError(err)
		return
	}
	if err := w.callback(policy); err != nil {
		w.logger.Warn("Policy callback failed: %v", err)
		w.reportError(err)
		return
	}
	w.logger.Info("Policy reloaded from %s", w.config.FilePath)
}

func (w *PolicyWatcher) reportError(err error) {
	if w.config.OnError != nil {
		w.config.OnError(err)
	}
}

// Stop ends the watch loop and waits up to 5 seconds for it to exit. It
// returns immediately when the watcher was never started.
func (w *PolicyWatcher) Stop(ctx context.Context) error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	select {
	case <-w.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for policy watcher to stop")
	}
}
