package internal

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/valet/internal/registry"
	"github.com/starford/valet/internal/storage"
	"github.com/starford/valet/internal/store"
)

// NewLogger returns the structured JSON logger used by every command.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// Services is the storage stack behind one registry.
type Services struct {
	DB       *store.DB
	Files    *storage.FS
	Registry *registry.Service
}

// OpenServices prepares the data area, opens (and migrates) the database and
// builds the registry service on top of them.
func OpenServices(cfg *Config, opts ...registry.Option) (*Services, error) {
	loc, err := cfg.App.Location()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	files, err := storage.NewFS(cfg.Data.Dir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	opts = append([]registry.Option{registry.WithLegacyFile(cfg.Data.LegacyFile)}, opts...)
	return &Services{
		DB:       db,
		Files:    files,
		Registry: registry.NewService(db, files, loc, opts...),
	}, nil
}

// Close releases the database.
func (s *Services) Close() error {
	return s.DB.Close()
}
