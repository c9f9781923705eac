package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/valet/internal/models"
)

// Storage is the persistence contract the registry service depends on.
type Storage interface {
	LoadClients(ctx context.Context) ([]models.Client, error)
	SaveClients(ctx context.Context, clients []models.Client) error
	GetClient(ctx context.Context, id string) (*models.Client, error)
	ClientByCPF(ctx context.Context, cpf string) (*models.Client, error)
	CreateClient(ctx context.Context, c models.Client) error
	UpdateClient(ctx context.Context, c models.Client) error
	DeleteClient(ctx context.Context, id string) error
	AddBicycle(ctx context.Context, clientID string, b models.Bicycle) error
	UpdateBicycle(ctx context.Context, clientID string, b models.Bicycle) error
	DeleteBicycle(ctx context.Context, clientID, bikeID string) error

	LoadRegistros(ctx context.Context) ([]models.LogEntry, error)
	RegistrosByClient(ctx context.Context, clientID string) ([]models.LogEntry, error)
	OpenRegistros(ctx context.Context) ([]models.LogEntry, error)
	GetRegistro(ctx context.Context, id string) (*models.LogEntry, error)
	InsertRegistro(ctx context.Context, e models.LogEntry) error
	CloseRegistro(ctx context.Context, id, saida string, accessRemoved, pernoite bool) error
	MarkPernoite(ctx context.Context, ids []string) (int, error)
	ImportLegacy(ctx context.Context, clients []models.Client, registros []models.LogEntry) (LegacyImport, error)

	RecordImport(ctx context.Context, rec ImportRecord) error
	ImportSeen(ctx context.Context, checksum string) (bool, error)
	ListImports(ctx context.Context, limit int) ([]ImportRecord, error)

	Reset(ctx context.Context) error
	Close() error
}

// Verify *DB satisfies Storage at compile time.
var _ Storage = (*DB)(nil)

// Reset deletes every stored record.
func (db *DB) Reset(ctx context.Context) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"registros", "bicycles", "clients", "imports"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return wrap("reset "+table, err)
		}
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func wrap(op string, err error) error {
	return fmt.Errorf("store: %s: %w", op, err)
}
