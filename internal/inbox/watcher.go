package inbox

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/valet/internal/storage"
	"github.com/starford/valet/internal/transfer"
)

// DefaultDebounce is how long a file must stay quiet before it is imported.
const DefaultDebounce = 200 * time.Millisecond

// Watch imports files as they appear in the inbox until ctx is cancelled.
// Files already present are processed first. cb, if non-nil, is called
// after every processed file.
func Watch(ctx context.Context, imp Importer, files storage.Provider, logger *slog.Logger, debounce time.Duration, cb func(Result)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	dir, err := files.Abs(storage.InboxDir)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Info("inbox: watching", slog.String("dir", dir))

	initial, err := Sync(ctx, imp, files, logger)
	if err != nil {
		logger.Warn("inbox: initial sync failed", slog.String("error", err.Error()))
	}
	if cb != nil {
		for _, r := range initial {
			cb(r)
		}
	}

	// Writers often produce several events per file; each name gets its
	// own timer and is handled once the events stop.
	timers := make(map[string]*time.Timer)
	ready := make(chan string, 16)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("inbox: stopped")
			return nil

		case name := <-ready:
			delete(timers, name)
			if !files.Exists(filepath.ToSlash(filepath.Join(storage.InboxDir, name))) {
				continue
			}
			res, err := Process(ctx, imp, files, name)
			if err != nil {
				logger.Warn("inbox: import failed", slog.String("file", name), slog.String("error", err.Error()))
				continue
			}
			logResult(logger, res)
			if cb != nil {
				cb(res)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if filepath.Dir(ev.Name) != dir {
				continue
			}
			name := filepath.Base(ev.Name)
			if name[0] == '.' || !transfer.Supported(name) {
				continue
			}
			if t, ok := timers[name]; ok {
				t.Reset(debounce)
				continue
			}
			timers[name] = time.AfterFunc(debounce, func() {
				select {
				case ready <- name:
				case <-ctx.Done():
				}
			})

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("inbox: watch error", slog.String("error", werr.Error()))
		}
	}
}
