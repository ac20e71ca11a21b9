package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	domainconfig "github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/config"
)

const debounceDelay = 100 * time.Millisecond

// ConfigWatcher reloads the graph section of the YAML config file when it
// changes and hands the new tuning to the registered callbacks
type ConfigWatcher struct {
	path      string
	current   *domainconfig.GraphConfig
	callbacks []func(*domainconfig.GraphConfig)
	mu        sync.RWMutex
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

// NewConfigWatcher starts watching path. The directory is watched rather
// than the file so editors that replace the file are still seen.
func NewConfigWatcher(path string, initial *domainconfig.GraphConfig, logger *zap.Logger) (*ConfigWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	if initial == nil {
		initial = domainconfig.DefaultGraphConfig()
	}
	w := &ConfigWatcher{
		path:    abs,
		current: initial,
		logger:  logger,
		watcher: fsWatcher,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.watchLoop()

	logger.Info("Watching configuration file", zap.String("path", abs))
	return w, nil
}

// OnChange registers a callback invoked with every changed graph config
func (w *ConfigWatcher) OnChange(fn func(*domainconfig.GraphConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Current returns the last loaded graph config
func (w *ConfigWatcher) Current() *domainconfig.GraphConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Stop ends the watch loop and waits for it to exit
func (w *ConfigWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.done
}

func (w *ConfigWatcher) watchLoop() {
	defer close(w.done)
	defer w.watcher.Close()

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			w.logger.Info("Stopping configuration watcher")
			return
		}
	}
}

// reload keeps the previous config when the file is unreadable or invalid
func (w *ConfigWatcher) reload() {
	next, err := LoadGraphFile(w.path)
	if err != nil {
		w.logger.Error("Invalid configuration after reload, keeping previous", zap.Error(err))
		return
	}

	w.mu.Lock()
	if *next == *w.current {
		w.mu.Unlock()
		w.logger.Debug("Configuration unchanged after reload")
		return
	}
	w.current = next
	callbacks := append([]func(*domainconfig.GraphConfig){}, w.callbacks...)
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn(next)
	}
	w.logger.Info("Graph configuration reloaded",
		zap.Float64("similarityThreshold", next.SimilarityThreshold),
		zap.Duration("cacheTTL", next.CacheTTL),
		zap.Int("callbacksNotified", len(callbacks)),
	)
}
