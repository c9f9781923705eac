package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/valet/internal/apperr"
	"github.com/starford/valet/internal/models"
)

const registroColumns = `id, client_id, bike_id, has_snapshot, snapshot_modelo, snapshot_marca,
	snapshot_cor, data_hora_entrada, data_hora_saida, access_removed, pernoite`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistro(s rowScanner) (models.LogEntry, error) {
	var (
		e                  models.LogEntry
		hasSnap            bool
		modelo, marca, cor string
	)
	err := s.Scan(&e.ID, &e.ClientID, &e.BikeID, &hasSnap, &modelo, &marca, &cor,
		&e.DataHoraEntrada, &e.DataHoraSaida, &e.AccessRemoved, &e.Pernoite)
	if err != nil {
		return e, err
	}
	if hasSnap {
		e.BikeSnapshot = &models.Snapshot{Modelo: modelo, Marca: marca, Cor: cor}
	}
	return e, nil
}

func (db *DB) queryRegistros(ctx context.Context, where string, args ...any) ([]models.LogEntry, error) {
	q := `SELECT ` + registroColumns + ` FROM registros`
	if where != "" {
		q += ` WHERE ` + where
	}
	q += ` ORDER BY rowid`

	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrap("query registros", err)
	}
	defer rows.Close()

	var out []models.LogEntry
	for rows.Next() {
		e, err := scanRegistro(rows)
		if err != nil {
			return nil, wrap("scan registro", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LoadRegistros returns every log entry in insertion order.
func (db *DB) LoadRegistros(ctx context.Context) ([]models.LogEntry, error) {
	return db.queryRegistros(ctx, "")
}

// RegistrosByClient returns the client's log entries in insertion order.
func (db *DB) RegistrosByClient(ctx context.Context, clientID string) ([]models.LogEntry, error) {
	return db.queryRegistros(ctx, `client_id = ?`, clientID)
}

// OpenRegistros returns entries whose bicycle has not left yet.
func (db *DB) OpenRegistros(ctx context.Context) ([]models.LogEntry, error) {
	return db.queryRegistros(ctx, `trim(data_hora_saida) = ''`)
}

// GetRegistro returns a single entry or apperr.ErrNotFound.
func (db *DB) GetRegistro(ctx context.Context, id string) (*models.LogEntry, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+registroColumns+` FROM registros WHERE id = ?`, id)
	e, err := scanRegistro(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, wrap("get registro", err)
	}
	return &e, nil
}

// InsertRegistro stores a new log entry.
func (db *DB) InsertRegistro(ctx context.Context, e models.LogEntry) error {
	if _, err := insertRegistro(ctx, db.conn, "INSERT", e); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("store: registro %s: %w", e.ID, apperr.ErrAlreadyExists)
		}
		return wrap("insert registro", err)
	}
	return nil
}

func insertRegistro(ctx context.Context, ex execer, verb string, e models.LogEntry) (sql.Result, error) {
	var snap models.Snapshot
	if e.BikeSnapshot != nil {
		snap = *e.BikeSnapshot
	}
	return ex.ExecContext(ctx, verb+` INTO registros (`+registroColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.ClientID, e.BikeID, boolInt(e.BikeSnapshot != nil), snap.Modelo, snap.Marca, snap.Cor,
		e.DataHoraEntrada, e.DataHoraSaida, boolInt(e.AccessRemoved), boolInt(e.Pernoite))
}

// CloseRegistro records the check-out of an open entry. Closing an entry
// twice yields apperr.ErrConflict.
func (db *DB) CloseRegistro(ctx context.Context, id, saida string, accessRemoved, pernoite bool) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE registros
		SET data_hora_saida = ?, access_removed = ?, pernoite = (pernoite OR ?)
		WHERE id = ? AND trim(data_hora_saida) = ''
	`, saida, boolInt(accessRemoved), boolInt(pernoite), id)
	if err != nil {
		return wrap("close registro", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("close registro", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.GetRegistro(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("store: registro %s already closed: %w", id, apperr.ErrConflict)
}

// MarkPernoite flags the given entries as overnight stays and returns how
// many changed.
func (db *DB) MarkPernoite(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	res, err := db.conn.ExecContext(ctx,
		`UPDATE registros SET pernoite = 1 WHERE pernoite = 0 AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, wrap("mark pernoite", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrap("mark pernoite", err)
	}
	return int(n), nil
}

// LegacyImport is the outcome of ImportLegacy.
type LegacyImport struct {
	// Clients are the legacy clients actually inserted.
	Clients []models.Client
	// Merged counts legacy clients whose CPF already belonged to another
	// client; their registros were moved onto that client.
	Merged    int
	Registros int
}

// ImportLegacy stores clients, bicycles and registros in one transaction,
// ignoring rows whose id already exists. A legacy client whose CPF is taken
// by a different client is not inserted; its registros are attached to the
// existing client instead.
func (db *DB) ImportLegacy(ctx context.Context, clients []models.Client, registros []models.LogEntry) (LegacyImport, error) {
	var out LegacyImport
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return out, wrap("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	owner := make(map[string]string)
	for _, c := range clients {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO clients (id, nome, cpf, telefone) VALUES (?, ?, ?, ?)`,
			c.ID, c.Nome, c.CPF, c.Telefone)
		if err != nil {
			return out, wrap("legacy client", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			id, err := existingOwner(ctx, tx, c)
			if err != nil {
				return out, err
			}
			if id != c.ID {
				owner[c.ID] = id
				out.Merged++
			}
			continue
		}
		out.Clients = append(out.Clients, c)
		for i, b := range c.Bicicletas {
			_, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO bicycles (id, client_id, position, modelo, marca, cor)
				VALUES (?, ?, ?, ?, ?, ?)
			`, b.ID, c.ID, i, b.Modelo, b.Marca, b.Cor)
			if err != nil {
				return out, wrap("legacy bicycle", err)
			}
		}
	}
	for _, e := range registros {
		if id, ok := owner[e.ClientID]; ok {
			e.ClientID = id
		}
		res, err := insertRegistro(ctx, tx, "INSERT OR IGNORE", e)
		if err != nil {
			return out, wrap("legacy registro", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			out.Registros++
		}
	}
	if err := tx.Commit(); err != nil {
		return out, wrap("commit legacy", err)
	}
	return out, nil
}

// existingOwner returns the id of the stored client that blocked inserting
// c: c itself when its id is already present, otherwise the holder of its CPF.
func existingOwner(ctx context.Context, tx *sql.Tx, c models.Client) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM clients WHERE id = ? UNION ALL SELECT id FROM clients WHERE cpf = ? LIMIT 1`,
		c.ID, c.CPF).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return c.ID, nil
	}
	if err != nil {
		return "", wrap("legacy client owner", err)
	}
	return id, nil
}
