package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/valet/internal/apperr"
	"github.com/starford/valet/internal/models"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// LoadClients returns every client with its bicycles, ordered by name.
func (db *DB) LoadClients(ctx context.Context) ([]models.Client, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, nome, cpf, telefone FROM clients ORDER BY nome COLLATE NOCASE, id`)
	if err != nil {
		return nil, wrap("load clients", err)
	}
	defer rows.Close()

	var out []models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.Nome, &c.CPF, &c.Telefone); err != nil {
			return nil, wrap("scan client", err)
		}
		c.Bicicletas = []models.Bicycle{}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("load clients", err)
	}

	bikes, err := loadBicycles(ctx, db.conn, "")
	if err != nil {
		return nil, err
	}
	for i := range out {
		if b, ok := bikes[out[i].ID]; ok {
			out[i].Bicicletas = b
		}
	}
	return out, nil
}

// loadBicycles groups bicycles by client id; clientID == "" loads all of them.
func loadBicycles(ctx context.Context, q queryer, clientID string) (map[string][]models.Bicycle, error) {
	query := `SELECT id, client_id, modelo, marca, cor FROM bicycles`
	var args []any
	if clientID != "" {
		query += ` WHERE client_id = ?`
		args = append(args, clientID)
	}
	query += ` ORDER BY client_id, position, rowid`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("load bicycles", err)
	}
	defer rows.Close()

	out := make(map[string][]models.Bicycle)
	for rows.Next() {
		var b models.Bicycle
		var owner string
		if err := rows.Scan(&b.ID, &owner, &b.Modelo, &b.Marca, &b.Cor); err != nil {
			return nil, wrap("scan bicycle", err)
		}
		out[owner] = append(out[owner], b)
	}
	return out, rows.Err()
}

// SaveClients upserts the given clients and replaces their bicycle lists.
// Clients not present in the slice are left untouched.
func (db *DB) SaveClients(ctx context.Context, clients []models.Client) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, c := range clients {
		if err := upsertClient(ctx, tx, c); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func upsertClient(ctx context.Context, tx *sql.Tx, c models.Client) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO clients (id, nome, cpf, telefone)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			nome     = excluded.nome,
			cpf      = excluded.cpf,
			telefone = excluded.telefone
	`, c.ID, c.Nome, c.CPF, c.Telefone)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("store: cpf %s: %w", c.CPF, apperr.ErrAlreadyExists)
		}
		return wrap("upsert client", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bicycles WHERE client_id = ?`, c.ID); err != nil {
		return wrap("clear bicycles", err)
	}
	for i, b := range c.Bicicletas {
		if err := insertBicycle(ctx, tx, c.ID, i, b); err != nil {
			return err
		}
	}
	return nil
}

func insertBicycle(ctx context.Context, ex execer, clientID string, pos int, b models.Bicycle) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO bicycles (id, client_id, position, modelo, marca, cor)
		VALUES (?, ?, ?, ?, ?, ?)
	`, b.ID, clientID, pos, b.Modelo, b.Marca, b.Cor)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("store: bicycle %s: %w", b.ID, apperr.ErrAlreadyExists)
		}
		return wrap("insert bicycle", err)
	}
	return nil
}

// GetClient returns the client with its bicycles or apperr.ErrNotFound.
func (db *DB) GetClient(ctx context.Context, id string) (*models.Client, error) {
	return db.clientWhere(ctx, `id = ?`, id)
}

// ClientByCPF looks a client up by its digits-only CPF.
func (db *DB) ClientByCPF(ctx context.Context, cpf string) (*models.Client, error) {
	return db.clientWhere(ctx, `cpf = ?`, cpf)
}

func (db *DB) clientWhere(ctx context.Context, cond string, arg any) (*models.Client, error) {
	var c models.Client
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, nome, cpf, telefone FROM clients WHERE `+cond, arg,
	).Scan(&c.ID, &c.Nome, &c.CPF, &c.Telefone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, wrap("get client", err)
	}
	bikes, err := loadBicycles(ctx, db.conn, c.ID)
	if err != nil {
		return nil, err
	}
	c.Bicicletas = bikes[c.ID]
	if c.Bicicletas == nil {
		c.Bicicletas = []models.Bicycle{}
	}
	return &c, nil
}

// CreateClient inserts a new client and its bicycles.
// A duplicate id or CPF yields apperr.ErrAlreadyExists.
func (db *DB) CreateClient(ctx context.Context, c models.Client) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO clients (id, nome, cpf, telefone) VALUES (?, ?, ?, ?)`,
		c.ID, c.Nome, c.CPF, c.Telefone)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("store: client %s: %w", c.CPF, apperr.ErrAlreadyExists)
		}
		return wrap("insert client", err)
	}
	for i, b := range c.Bicicletas {
		if err := insertBicycle(ctx, tx, c.ID, i, b); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpdateClient overwrites nome, CPF and telefone. Bicycles are not touched.
func (db *DB) UpdateClient(ctx context.Context, c models.Client) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE clients SET nome = ?, cpf = ?, telefone = ? WHERE id = ?`,
		c.Nome, c.CPF, c.Telefone, c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("store: cpf %s: %w", c.CPF, apperr.ErrAlreadyExists)
		}
		return wrap("update client", err)
	}
	return requireAffected(res, "update client")
}

// DeleteClient removes the client and, by cascade, its bicycles.
// Registros are kept.
func (db *DB) DeleteClient(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return wrap("delete client", err)
	}
	return requireAffected(res, "delete client")
}

// AddBicycle appends a bicycle to the client's list.
func (db *DB) AddBicycle(ctx context.Context, clientID string, b models.Bicycle) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var pos int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(position) + 1, 0) FROM bicycles WHERE client_id = ?
	`, clientID).Scan(&pos)
	if err != nil {
		return wrap("next position", err)
	}
	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM clients WHERE id = ?`, clientID).Scan(&exists); err != nil {
		return wrap("find client", err)
	}
	if exists == 0 {
		return apperr.ErrNotFound
	}
	if err := insertBicycle(ctx, tx, clientID, pos, b); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateBicycle overwrites a bicycle's attributes.
func (db *DB) UpdateBicycle(ctx context.Context, clientID string, b models.Bicycle) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE bicycles SET modelo = ?, marca = ?, cor = ?
		WHERE id = ? AND client_id = ?
	`, b.Modelo, b.Marca, b.Cor, b.ID, clientID)
	if err != nil {
		return wrap("update bicycle", err)
	}
	return requireAffected(res, "update bicycle")
}

// DeleteBicycle removes one bicycle of the client.
func (db *DB) DeleteBicycle(ctx context.Context, clientID, bikeID string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM bicycles WHERE id = ? AND client_id = ?`, bikeID, clientID)
	if err != nil {
		return wrap("delete bicycle", err)
	}
	return requireAffected(res, "delete bicycle")
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
