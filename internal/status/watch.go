package status

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dusk-indust/oversetsim/internal/orchestrator"
)

const defaultDebounce = 100 * time.Millisecond

// Watch calls fn with a fresh summary of dir every time one of the run logs
// changes, until ctx is done. Bursts of writes within debounce collapse into
// one call; a non-positive debounce uses the default. Directories that hold
// no artifacts yet are skipped silently.
func Watch(ctx context.Context, dir string, debounce time.Duration, fn func(*RunStatus)) error {
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("status: watch: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("status: watch %s: %w", dir, err)
	}

	report := func() error {
		st, err := Summarize(dir)
		if errors.Is(err, ErrNoArtifacts) {
			return nil
		}
		if err != nil {
			return err
		}
		fn(st)
		return nil
	}
	if err := report(); err != nil {
		return err
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isRunLog(event.Name) || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("status: watch %s: %w", dir, err)
		case <-timer.C:
			if err := report(); err != nil {
				return err
			}
		}
	}
}

func isRunLog(path string) bool {
	switch filepath.Base(path) {
	case orchestrator.TimingFile, orchestrator.MemoryFile:
		return true
	}
	return false
}
