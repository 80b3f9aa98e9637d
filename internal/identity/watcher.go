package identity

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// TokenEntry is one line of a tokens file.
type TokenEntry struct {
	User  string `yaml:"user"`
	Token string `yaml:"token"`
}

// LoadTokensFile parses a YAML list of user/token pairs.
func LoadTokensFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("identity: read tokens file: %w", err)
	}
	var entries []TokenEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("identity: parse tokens file %s: %w", path, err)
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Token == "" || e.User == "" {
			continue
		}
		out[e.Token] = e.User
	}
	return out, nil
}

// WatchTokensFile loads path into tokens and keeps it in sync until ctx is
// cancelled. The parent directory is watched so editors that replace the
// file by rename are picked up. A file that fails to parse leaves the
// previous table in place.
func WatchTokensFile(ctx context.Context, path string, tokens *Tokens, logger *slog.Logger) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("identity: resolve tokens file: %w", err)
	}

	reload := func() {
		entries, err := LoadTokensFile(abs)
		if err != nil {
			logger.Warn("tokens: reload failed", slog.String("path", abs), slog.String("error", err.Error()))
			return
		}
		tokens.Replace(entries)
		logger.Info("tokens: reloaded", slog.String("path", abs), slog.Int("count", tokens.Len()))
	}
	reload()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("identity: watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("identity: watch %s: %w", filepath.Dir(abs), err)
	}

	// Writes arrive in bursts; reload once the burst settles.
	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case <-timerCh:
			timerCh = nil
			reload()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(100 * time.Millisecond)
			} else {
				timer.Reset(100 * time.Millisecond)
			}
			timerCh = timer.C

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("tokens: watcher error", slog.String("error", werr.Error()))
		}
	}
}
