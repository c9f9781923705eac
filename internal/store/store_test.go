package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/starford/valet/internal/apperr"
	"github.com/starford/valet/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "valet-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleClient() models.Client {
	return models.Client{
		ID:       "c1",
		Nome:     "Maria Silva",
		CPF:      "12345678909",
		Telefone: "11987654321",
		Bicicletas: []models.Bicycle{
			{ID: "b1", Modelo: "Caloi 10", Marca: "Caloi", Cor: "Azul"},
			{ID: "b2", Modelo: "Speed", Marca: "Sense", Cor: "Preta"},
		},
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"clients", "bicycles", "registros", "imports"} {
		var n int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&n); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestOpenTwice(t *testing.T) {
	f, err := os.CreateTemp("", "valet-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	defer os.Remove(f.Name())

	for i := 0; i < 2; i++ {
		db, err := Open(f.Name())
		if err != nil {
			t.Fatalf("Open #%d: %v", i+1, err)
		}
		db.Close()
	}
}

func TestCreateAndGetClient(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.CreateClient(ctx, sampleClient()); err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	c, err := db.GetClient(ctx, "c1")
	if err != nil {
		t.Fatalf("GetClient: %v", err)
	}
	if c.Nome != "Maria Silva" || len(c.Bicicletas) != 2 {
		t.Fatalf("unexpected client: %+v", c)
	}
	if c.Bicicletas[0].ID != "b1" || c.Bicicletas[1].ID != "b2" {
		t.Errorf("bicycle order = %v", c.Bicicletas)
	}

	byCPF, err := db.ClientByCPF(ctx, "12345678909")
	if err != nil || byCPF.ID != "c1" {
		t.Errorf("ClientByCPF = %v, %v", byCPF, err)
	}
}

func TestCreateClientDuplicateCPF(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_ = db.CreateClient(ctx, sampleClient())

	dup := models.Client{ID: "c2", Nome: "Outra", CPF: "12345678909"}
	if err := db.CreateClient(ctx, dup); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestGetClientNotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetClient(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveClientsReplacesBicycles(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	c := sampleClient()
	if err := db.SaveClients(ctx, []models.Client{c}); err != nil {
		t.Fatalf("SaveClients: %v", err)
	}
	c.Nome = "Maria S."
	c.Bicicletas = c.Bicicletas[1:]
	if err := db.SaveClients(ctx, []models.Client{c}); err != nil {
		t.Fatalf("SaveClients again: %v", err)
	}
	all, err := db.LoadClients(ctx)
	if err != nil {
		t.Fatalf("LoadClients: %v", err)
	}
	if len(all) != 1 || all[0].Nome != "Maria S." {
		t.Fatalf("clients = %+v", all)
	}
	if len(all[0].Bicicletas) != 1 || all[0].Bicicletas[0].ID != "b2" {
		t.Errorf("bicycles = %+v", all[0].Bicicletas)
	}
}

func TestBicycleCRUD(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_ = db.CreateClient(ctx, sampleClient())

	if err := db.AddBicycle(ctx, "c1", models.Bicycle{ID: "b3", Modelo: "MTB"}); err != nil {
		t.Fatalf("AddBicycle: %v", err)
	}
	if err := db.AddBicycle(ctx, "ghost", models.Bicycle{ID: "b4"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("AddBicycle to missing client: %v", err)
	}
	if err := db.UpdateBicycle(ctx, "c1", models.Bicycle{ID: "b3", Modelo: "MTB 29", Cor: "Verde"}); err != nil {
		t.Fatalf("UpdateBicycle: %v", err)
	}
	c, _ := db.GetClient(ctx, "c1")
	if len(c.Bicicletas) != 3 || c.Bicicletas[2].Modelo != "MTB 29" {
		t.Fatalf("bicycles = %+v", c.Bicicletas)
	}
	if err := db.DeleteBicycle(ctx, "c1", "b3"); err != nil {
		t.Fatalf("DeleteBicycle: %v", err)
	}
	if err := db.DeleteBicycle(ctx, "c1", "b3"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second DeleteBicycle: %v", err)
	}
}

func TestDeleteClientKeepsRegistros(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_ = db.CreateClient(ctx, sampleClient())
	e := models.LogEntry{
		ID:              "r1",
		ClientID:        "c1",
		BikeID:          "b1",
		BikeSnapshot:    &models.Snapshot{Modelo: "Caloi 10", Marca: "Caloi", Cor: "Azul"},
		DataHoraEntrada: "2024-01-05T08:00:00Z",
	}
	if err := db.InsertRegistro(ctx, e); err != nil {
		t.Fatalf("InsertRegistro: %v", err)
	}
	if err := db.DeleteClient(ctx, "c1"); err != nil {
		t.Fatalf("DeleteClient: %v", err)
	}
	var bikes int
	_ = db.conn.QueryRow(`SELECT count(*) FROM bicycles`).Scan(&bikes)
	if bikes != 0 {
		t.Errorf("bicycles left after cascade: %d", bikes)
	}
	got, err := db.GetRegistro(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRegistro: %v", err)
	}
	if got.BikeSnapshot == nil || got.BikeSnapshot.Cor != "Azul" {
		t.Errorf("snapshot lost: %+v", got)
	}
}

func TestRegistroLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	e := models.LogEntry{ID: "r1", ClientID: "c1", BikeID: "b1", DataHoraEntrada: "2024-01-05T08:00:00Z"}
	if err := db.InsertRegistro(ctx, e); err != nil {
		t.Fatalf("InsertRegistro: %v", err)
	}
	if err := db.InsertRegistro(ctx, e); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate insert: %v", err)
	}

	open, _ := db.OpenRegistros(ctx)
	if len(open) != 1 {
		t.Fatalf("open = %d, want 1", len(open))
	}
	if open[0].BikeSnapshot != nil {
		t.Errorf("unexpected snapshot: %+v", open[0].BikeSnapshot)
	}

	if err := db.CloseRegistro(ctx, "r1", "2024-01-06T09:00:00Z", true, true); err != nil {
		t.Fatalf("CloseRegistro: %v", err)
	}
	if err := db.CloseRegistro(ctx, "r1", "2024-01-06T10:00:00Z", false, false); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("second close: %v", err)
	}
	if err := db.CloseRegistro(ctx, "ghost", "x", false, false); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("close missing: %v", err)
	}

	got, _ := db.GetRegistro(ctx, "r1")
	if got.DataHoraSaida != "2024-01-06T09:00:00Z" || !got.AccessRemoved || !got.Pernoite {
		t.Errorf("closed registro = %+v", got)
	}
	open, _ = db.OpenRegistros(ctx)
	if len(open) != 0 {
		t.Errorf("open after close = %d", len(open))
	}
}

func TestMarkPernoite(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	for _, id := range []string{"r1", "r2", "r3"} {
		_ = db.InsertRegistro(ctx, models.LogEntry{ID: id, ClientID: "c1", DataHoraEntrada: "2024-01-05T08:00:00Z"})
	}
	n, err := db.MarkPernoite(ctx, []string{"r1", "r2"})
	if err != nil || n != 2 {
		t.Fatalf("MarkPernoite = %d, %v", n, err)
	}
	n, _ = db.MarkPernoite(ctx, []string{"r1", "r2"})
	if n != 0 {
		t.Errorf("second MarkPernoite changed %d rows", n)
	}
	byClient, _ := db.RegistrosByClient(ctx, "c1")
	flagged := 0
	for _, e := range byClient {
		if e.Pernoite {
			flagged++
		}
	}
	if flagged != 2 {
		t.Errorf("flagged = %d, want 2", flagged)
	}
}

func TestImportLegacyIdempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	clients := []models.Client{sampleClient()}
	regs := []models.LogEntry{
		{ID: "r1", ClientID: "c1", BikeID: "b1", DataHoraEntrada: "2024-01-05T08:00:00Z"},
		{ID: "r2", ClientID: "c1", BikeID: "b2", DataHoraEntrada: "garbage"},
	}
	res, err := db.ImportLegacy(ctx, clients, regs)
	if err != nil || len(res.Clients) != 1 || res.Registros != 2 {
		t.Fatalf("ImportLegacy = %+v, %v", res, err)
	}
	res, err = db.ImportLegacy(ctx, clients, regs)
	if err != nil || len(res.Clients) != 0 || res.Merged != 0 || res.Registros != 0 {
		t.Fatalf("second ImportLegacy = %+v, %v", res, err)
	}
	all, _ := db.LoadRegistros(ctx)
	if len(all) != 2 || all[1].DataHoraEntrada != "garbage" {
		t.Errorf("registros = %+v", all)
	}
}

func TestImportLegacyMergesByCPF(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	if err := db.CreateClient(ctx, sampleClient()); err != nil {
		t.Fatal(err)
	}

	legacy := sampleClient()
	legacy.ID = "legacy-1"
	legacy.Bicicletas = nil
	regs := []models.LogEntry{
		{ID: "r1", ClientID: "legacy-1", BikeID: "old-bike", DataHoraEntrada: "2023-06-01T08:00:00Z",
			BikeSnapshot: &models.Snapshot{Modelo: "Velha"}},
	}
	res, err := db.ImportLegacy(ctx, []models.Client{legacy}, regs)
	if err != nil {
		t.Fatalf("ImportLegacy: %v", err)
	}
	if len(res.Clients) != 0 || res.Merged != 1 || res.Registros != 1 {
		t.Fatalf("ImportLegacy = %+v", res)
	}
	got, err := db.RegistrosByClient(ctx, "c1")
	if err != nil || len(got) != 1 || got[0].ID != "r1" {
		t.Fatalf("registros of existing client = %+v, %v", got, err)
	}
	if _, err := db.GetClient(ctx, "legacy-1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("legacy client stored: %v", err)
	}
}

func TestImportsAndReset(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_ = db.CreateClient(ctx, sampleClient())
	if err := db.RecordImport(ctx, ImportRecord{Checksum: "abc", Name: "clientes.csv", Imported: 3, Skipped: 1}); err != nil {
		t.Fatalf("RecordImport: %v", err)
	}
	seen, err := db.ImportSeen(ctx, "abc")
	if err != nil || !seen {
		t.Fatalf("ImportSeen = %v, %v", seen, err)
	}
	list, err := db.ListImports(ctx, 10)
	if err != nil || len(list) != 1 || list[0].Imported != 3 {
		t.Fatalf("ListImports = %+v, %v", list, err)
	}

	if err := db.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	clients, _ := db.LoadClients(ctx)
	if len(clients) != 0 {
		t.Errorf("clients after reset = %d", len(clients))
	}
	if seen, _ := db.ImportSeen(ctx, "abc"); seen {
		t.Error("import record survived reset")
	}
}
