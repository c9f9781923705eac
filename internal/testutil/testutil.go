// Package testutil provides shared test helpers for databases, data areas
// and a wired registry service.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/valet/internal/registry"
	"github.com/starford/valet/internal/storage"
	"github.com/starford/valet/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "valet-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestArea creates a temporary data area.
func TestArea(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	files, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return files.Root(), files
}

// Clock is a settable time source for registry.WithClock.
type Clock struct {
	T time.Time
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time { return c.T }

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// TestService wires a registry service over a temporary database and data area.
func TestService(t *testing.T, opts ...registry.Option) (*registry.Service, *storage.FS) {
	t.Helper()
	_, files := TestArea(t)
	opts = append([]registry.Option{registry.WithLegacyFile("legacy.json")}, opts...)
	return registry.NewService(TestDB(t), files, time.UTC, opts...), files
}
