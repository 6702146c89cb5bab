package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"scalpbot/internal/logger"
)

// Watcher reloads the config file on change and hands every valid result to
// the subscribers. Invalid edits are logged and the previous config is kept.
type Watcher struct {
	path string
	v    *viper.Viper

	mu      sync.RWMutex
	current *Config
	subs    []func(*Config)
}

func Watch(path string, initial *Config) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if initial == nil {
		if initial, err = Load(abs); err != nil {
			return nil, err
		}
	}
	w := &Watcher{path: abs, v: viper.New(), current: initial}
	w.v.SetConfigFile(abs)
	if err := w.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("watch config %s: %w", abs, err)
	}
	w.v.OnConfigChange(func(evt fsnotify.Event) {
		if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		w.reload(evt.Name)
	})
	w.v.WatchConfig()
	return w, nil
}

func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Subscribe registers fn for every successful reload.
func (w *Watcher) Subscribe(fn func(*Config)) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	w.subs = append(w.subs, fn)
	w.mu.Unlock()
}

func (w *Watcher) reload(name string) {
	cfg, err := Load(w.path)
	if err != nil {
		logger.Errorf("config reload failed (%s): %v", name, err)
		return
	}
	w.mu.Lock()
	w.current = cfg
	subs := append([]func(*Config){}, w.subs...)
	w.mu.Unlock()
	logger.Infof("config reloaded from %s", name)
	for _, fn := range subs {
		fn(cfg)
	}
}
