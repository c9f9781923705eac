// Package registry is the service layer for clients, bicycles and the
// parking log. HTTP handlers, the MCP server, the inbox watcher and the CLI
// all go through it.
package registry

import (
	"sync"
	"time"

	"github.com/starford/valet/internal/storage"
	"github.com/starford/valet/internal/store"
)

// Event kinds passed to the notifier.
const (
	EventClientCreated   = "client.created"
	EventClientUpdated   = "client.updated"
	EventClientDeleted   = "client.deleted"
	EventCheckIn         = "registro.checkin"
	EventCheckOut        = "registro.checkout"
	EventImportCompleted = "import.completed"
	EventStorageReset    = "storage.reset"
)

// Notifier receives change events. Implementations must not block.
type Notifier func(kind string, payload any)

// Service coordinates the store, the data area and change notifications.
type Service struct {
	db         store.Storage
	files      storage.Provider
	loc        *time.Location
	legacyFile string
	now        func() time.Time
	notify     Notifier

	// mu serialises read-modify-write sequences: check-in, import, migration.
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotifier sets the change event callback.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notify = n
		}
	}
}

// WithLegacyFile sets the data-area path of the legacy JSON export.
func WithLegacyFile(path string) Option {
	return func(s *Service) { s.legacyFile = path }
}

// NewService creates a registry service. loc is the business time zone used
// for calendar days; nil means time.Local.
func NewService(db store.Storage, files storage.Provider, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.Local
	}
	s := &Service{
		db:     db,
		files:  files,
		loc:    loc,
		now:    time.Now,
		notify: func(string, any) {},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Location returns the business time zone.
func (s *Service) Location() *time.Location { return s.loc }

// Now returns the current time in the business time zone.
func (s *Service) Now() time.Time { return s.now().In(s.loc) }

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
