package store

import (
	"context"
	"time"
)

// ImportRecord remembers a client import so the same file content is not
// processed twice.
type ImportRecord struct {
	Checksum   string    `json:"checksum"`
	Name       string    `json:"name"`
	Imported   int       `json:"imported"`
	Skipped    int       `json:"skipped"`
	ImportedAt time.Time `json:"importedAt"`
}

// RecordImport stores (or refreshes) an import record keyed by checksum.
func (db *DB) RecordImport(ctx context.Context, rec ImportRecord) error {
	if rec.ImportedAt.IsZero() {
		rec.ImportedAt = time.Now().UTC()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO imports (checksum, name, imported, skipped, imported_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(checksum) DO UPDATE SET
			name        = excluded.name,
			imported    = excluded.imported,
			skipped     = excluded.skipped,
			imported_at = excluded.imported_at
	`, rec.Checksum, rec.Name, rec.Imported, rec.Skipped, rec.ImportedAt)
	if err != nil {
		return wrap("record import", err)
	}
	return nil
}

// ImportSeen reports whether content with this checksum was imported before.
func (db *DB) ImportSeen(ctx context.Context, checksum string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM imports WHERE checksum = ?`, checksum).Scan(&n)
	if err != nil {
		return false, wrap("import seen", err)
	}
	return n > 0, nil
}

// ListImports returns the most recent imports first.
func (db *DB) ListImports(ctx context.Context, limit int) ([]ImportRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT checksum, name, imported, skipped, imported_at
		FROM imports ORDER BY imported_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, wrap("list imports", err)
	}
	defer rows.Close()

	var out []ImportRecord
	for rows.Next() {
		var r ImportRecord
		if err := rows.Scan(&r.Checksum, &r.Name, &r.Imported, &r.Skipped, &r.ImportedAt); err != nil {
			return nil, wrap("scan import", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
