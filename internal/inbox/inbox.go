// Package inbox imports client spreadsheets dropped into the data area's
// inbox directory.
package inbox

import (
	"context"
	"log/slog"
	"path"
	"time"

	"github.com/starford/valet/internal/checksum"
	"github.com/starford/valet/internal/registry"
	"github.com/starford/valet/internal/storage"
	"github.com/starford/valet/internal/transfer"
)

// Importer is the part of the registry the inbox needs.
type Importer interface {
	Import(ctx context.Context, name string, data []byte) (*registry.ImportOutcome, error)
	ImportSeen(ctx context.Context, sum string) (bool, error)
}

// Result describes what happened to one inbox file.
type Result struct {
	Name      string
	Processed string
	Duplicate bool
	Outcome   *registry.ImportOutcome
}

// Sync processes every importable file already sitting in the inbox.
func Sync(ctx context.Context, imp Importer, files storage.Provider, logger *slog.Logger) ([]Result, error) {
	list, err := files.List(storage.InboxDir, transfer.Extensions...)
	if err != nil {
		return nil, err
	}
	var out []Result
	for _, f := range list {
		res, err := Process(ctx, imp, files, f.Name)
		if err != nil {
			logger.Warn("inbox: import failed", slog.String("file", f.Name), slog.String("error", err.Error()))
			continue
		}
		logResult(logger, res)
		out = append(out, res)
	}
	return out, nil
}

// Process imports inbox/<name> unless identical content was imported
// before, then moves it to inbox/processed.
func Process(ctx context.Context, imp Importer, files storage.Provider, name string) (Result, error) {
	rel := path.Join(storage.InboxDir, name)
	res := Result{Name: name}

	data, err := files.Read(rel)
	if err != nil {
		return res, err
	}
	seen, err := imp.ImportSeen(ctx, checksum.Sum(data))
	if err != nil {
		return res, err
	}
	if seen {
		res.Duplicate = true
	} else {
		out, err := imp.Import(ctx, name, data)
		if err != nil {
			return res, err
		}
		res.Outcome = out
	}

	res.Processed = path.Join(storage.ProcessedDir, time.Now().Format("20060102T150405")+"-"+name)
	if err := files.Move(rel, res.Processed); err != nil {
		return res, err
	}
	return res, nil
}

func logResult(logger *slog.Logger, res Result) {
	if res.Duplicate {
		logger.Info("inbox: already imported", slog.String("file", res.Name), slog.String("moved_to", res.Processed))
		return
	}
	logger.Info("inbox: imported",
		slog.String("file", res.Name),
		slog.Int("imported", len(res.Outcome.Imported)),
		slog.Int("skipped", res.Outcome.SkippedTotal()),
		slog.String("moved_to", res.Processed))
}
