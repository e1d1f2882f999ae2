package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"assistbridge/internal/log"

	"github.com/fsnotify/fsnotify"
)

// Holder owns the current configuration and supports hot reload. Readers get
// an immutable copy; reloads swap the whole value under a write lock and
// notify registered listeners.
type Holder struct {
	mu        sync.RWMutex
	current   AppConfig
	loader    *Loader
	path      string
	listeners []chan<- AppConfig
}

// NewHolder creates a Holder seeded with cfg.
func NewHolder(cfg AppConfig, loader *Loader, path string) *Holder {
	return &Holder{current: cfg, loader: loader, path: path}
}

// Current returns a copy of the active configuration.
func (h *Holder) Current() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// RegisterListener adds a channel that receives every successfully applied
// configuration. Sends are non-blocking; slow listeners miss intermediate swaps.
func (h *Holder) RegisterListener(ch chan<- AppConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, ch)
}

// Reload re-runs the loader and swaps the configuration on success.
// A failed reload keeps the previous configuration active.
func (h *Holder) Reload(ctx context.Context) error {
	logger := log.WithComponentFromContext(ctx, "config")

	cfg, err := h.loader.Load()
	if err != nil {
		logger.Warn().
			Err(err).
			Str("event", "config.reload_rejected").
			Msg("reload produced invalid config, keeping previous")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	h.current = cfg
	listeners := make([]chan<- AppConfig, len(h.listeners))
	copy(listeners, h.listeners)
	h.mu.Unlock()

	for _, ch := range listeners {
		select {
		case ch <- cfg:
		default:
		}
	}

	logger.Info().
		Str("event", "config.reloaded").
		Str("path", h.path).
		Msg("configuration reloaded")
	return nil
}

// StartWatcher watches the config file and reloads on write events.
// It returns immediately; the watcher goroutine stops when ctx is cancelled.
func (h *Holder) StartWatcher(ctx context.Context) error {
	if h.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}

	// Watch the directory: editors and atomic writers replace the file,
	// which drops a watch placed on the file itself.
	dir := filepath.Dir(h.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir %q: %w", dir, err)
	}

	logger := log.WithComponent("config")
	go func() {
		defer func() {
			if cerr := watcher.Close(); cerr != nil {
				logger.Debug().Err(cerr).Msg("close config watcher")
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(h.path) {
					continue
				}
				if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
					continue
				}
				logger.Info().
					Str("event", "config.file_changed").
					Str("path", ev.Name).
					Msg("config file changed, reloading")
				if err := h.Reload(ctx); err != nil {
					logger.Warn().Err(err).Str("event", "config.reload_failed").Msg("config reload failed")
				}
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn().Err(werr).Str("event", "config.watch_error").Msg("config watcher error")
			}
		}
	}()

	return nil
}
