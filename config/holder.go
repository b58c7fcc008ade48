package config

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"reflect"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// defaultDebounce coalesces the burst of events editors emit for one save.
const defaultDebounce = 200 * time.Millisecond

// Holder keeps the live configuration and reloads it from disk.
// Only the price catalog and the log level take effect without a restart.
type Holder struct {
	mu        sync.RWMutex
	current   *Config
	path      string
	debounce  time.Duration
	listeners []func(*Config)
	failures  []func(error)
	logger    zerolog.Logger
}

// Diff describes what a reload changed.
type Diff struct {
	LogLevel bool
	Prices   bool
	// Restart lists changed fields that only apply after a restart.
	Restart []string
}

// Empty reports whether the reload changed nothing.
func (d Diff) Empty() bool {
	return !d.LogLevel && !d.Prices && len(d.Restart) == 0
}

// NewHolder loads path and returns a holder for it.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	return &Holder{current: cfg, path: abs, debounce: defaultDebounce, logger: logger}, nil
}

// Get returns the current configuration.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// OnChange registers fn to receive every successfully reloaded configuration.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// OnError registers fn to receive reload failures.
func (h *Holder) OnError(fn func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = append(h.failures, fn)
}

// Reload reads the file again. An invalid file leaves the current configuration in place.
func (h *Holder) Reload() (Diff, error) {
	next, err := Load(h.path)
	if err != nil {
		h.mu.RLock()
		failures := slices.Clone(h.failures)
		h.mu.RUnlock()
		for _, fn := range failures {
			fn(err)
		}
		return Diff{}, fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	prev := h.current
	h.current = next
	listeners := slices.Clone(h.listeners)
	h.mu.Unlock()

	diff := Compare(prev, next)
	for _, field := range diff.Restart {
		h.logger.Warn().Str("field", field).Msg("change takes effect after restart")
	}
	for _, fn := range listeners {
		fn(next)
	}
	return diff, nil
}

// Watch reloads on writes to the file and on SIGHUP until ctx is done.
// It returns an error only when the file watcher cannot start.
func (h *Holder) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// The directory survives the rename that atomic saves do.
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(h.path), err)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	h.logger.Info().Str("path", h.path).Msg("watching configuration")

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name == h.path && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				settle = time.After(h.debounce)
			}

		case <-settle:
			settle = nil
			h.reload("file")

		case <-hup:
			h.reload("sighup")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Error().Err(err).Msg("config watcher error")
		}
	}
}

func (h *Holder) reload(trigger string) {
	diff, err := h.Reload()
	if err != nil {
		h.logger.Error().Err(err).Str("trigger", trigger).Msg("config reload failed, keeping current config")
		return
	}
	h.logger.Info().
		Str("trigger", trigger).
		Bool("log_level", diff.LogLevel).
		Bool("prices", diff.Prices).
		Strs("restart_required", diff.Restart).
		Msg("configuration reloaded")
}

// Compare reports the differences between two configurations.
func Compare(prev, next *Config) Diff {
	d := Diff{
		LogLevel: prev.Logging.Level != next.Logging.Level,
		Prices:   !reflect.DeepEqual(prev.Billing.Prices, next.Billing.Prices),
	}
	restart := []struct {
		field   string
		changed bool
	}{
		{"server.host", prev.Server.Host != next.Server.Host},
		{"server.port", prev.Server.Port != next.Server.Port},
		{"server.tls", !reflect.DeepEqual(prev.Server.TLS, next.Server.TLS)},
		{"database", prev.Database != next.Database},
		{"billing.mode", prev.Billing.Mode != next.Billing.Mode},
		{"summarizer.mode", prev.Summarizer.Mode != next.Summarizer.Mode},
		{"export.mode", prev.Export != next.Export},
		{"auth.jwt_secret", prev.Auth.JWTSecret != next.Auth.JWTSecret},
	}
	for _, r := range restart {
		if r.changed {
			d.Restart = append(d.Restart, r.field)
		}
	}
	return d
}

// ReloadableFields returns the fields applied without a restart.
func ReloadableFields() []string {
	return []string{"billing.prices", "logging.level"}
}

// NonReloadableFields returns the fields Compare reports as restart-only.
func NonReloadableFields() []string {
	return []string{
		"server.host",
		"server.port",
		"server.tls",
		"database",
		"billing.mode",
		"summarizer.mode",
		"export.mode",
		"auth.jwt_secret",
	}
}
