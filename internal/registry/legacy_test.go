package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/starford/valet/internal/registry"
	"github.com/starford/valet/internal/testutil"
)

const legacyJSON = `{
  "clients": [
    {
      "id": "c1",
      "nome": "Maria",
      "cpf": "123.456.789-09",
      "telefone": "(11) 98765-4321",
      "bicicletas": [
        {
          "id": "b1", "modelo": "Caloi 10", "marca": "Caloi", "cor": "Azul",
          "registros": [
            {"dataHoraEntrada": "2023-12-31T22:00:00Z", "dataHoraSaida": "2024-01-01T09:00:00Z", "pernoite": true}
          ]
        }
      ]
    }
  ],
  "registros": [
    {"id": "r9", "clientId": "c1", "bikeId": "b1", "dataHoraEntrada": "2024-01-05T08:00:00Z"}
  ]
}`

func TestParseLegacyFlattensNestedRegistros(t *testing.T) {
	clients, registros, err := registry.ParseLegacy([]byte(legacyJSON))
	if err != nil {
		t.Fatalf("ParseLegacy: %v", err)
	}
	if len(clients) != 1 || clients[0].CPF != "12345678909" || clients[0].Telefone != "11987654321" {
		t.Fatalf("clients = %+v", clients)
	}
	if len(registros) != 2 {
		t.Fatalf("registros = %d, want 2", len(registros))
	}
	nested := registros[0]
	if nested.ID == "" || nested.ClientID != "c1" || nested.BikeID != "b1" {
		t.Errorf("nested registro = %+v", nested)
	}
	if nested.BikeSnapshot == nil || nested.BikeSnapshot.Cor != "Azul" || !nested.Pernoite {
		t.Errorf("nested snapshot = %+v", nested.BikeSnapshot)
	}
	if registros[1].ID != "r9" || registros[1].BikeSnapshot == nil || registros[1].BikeSnapshot.Modelo != "Caloi 10" {
		t.Errorf("top-level registro = %+v", registros[1])
	}
}

func TestParseLegacyStableIDs(t *testing.T) {
	doc := `{"clients":[{"nome":"Ana","cpf":"11144477735","bicicletas":[{"modelo":"MTB",
		"registros":[{"dataHoraEntrada":"2023-05-01T08:00:00Z"},{"dataHoraEntrada":"2023-05-01T08:00:00Z"}]}]}]}`
	c1, r1, err := registry.ParseLegacy([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	c2, r2, _ := registry.ParseLegacy([]byte(doc))
	if c1[0].ID != c2[0].ID || c1[0].Bicicletas[0].ID != c2[0].Bicicletas[0].ID {
		t.Errorf("client/bike ids differ between parses: %+v vs %+v", c1, c2)
	}
	if len(r1) != 2 || r1[0].ID != r2[0].ID || r1[1].ID != r2[1].ID {
		t.Errorf("registro ids differ between parses: %+v vs %+v", r1, r2)
	}
	if r1[0].ID == r1[1].ID {
		t.Error("identical entries in one bicycle share an id")
	}
}

func TestMigrateLegacyMergesExistingCPF(t *testing.T) {
	svc, files := testutil.TestService(t, registry.WithClock(func() time.Time {
		return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	}))
	ctx := context.Background()

	existing, err := svc.CreateClient(ctx, registry.ClientInput{Nome: "Maria Silva", CPF: "12345678909"})
	if err != nil {
		t.Fatal(err)
	}
	if err := files.Write("legacy.json", []byte(legacyJSON)); err != nil {
		t.Fatal(err)
	}
	res, err := svc.MigrateLegacy(ctx)
	if err != nil {
		t.Fatalf("MigrateLegacy: %v", err)
	}
	if res.ClientsAdded != 0 || res.ClientsMerged != 1 || res.RegistrosAdded != 2 || len(res.Clients) != 0 {
		t.Errorf("result = %+v", res)
	}

	report, err := svc.ClientRecords(ctx, existing.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Records) != 2 {
		t.Fatalf("existing client has %d records, want 2", len(report.Records))
	}
	if report.Records[0].Bicicleta.Modelo != "Caloi 10" || report.Records[1].Bicicleta.Modelo != "Caloi 10" {
		t.Errorf("bike info = %+v / %+v", report.Records[0].Bicicleta, report.Records[1].Bicicleta)
	}
}

func TestParseLegacyRejectsGarbage(t *testing.T) {
	if _, _, err := registry.ParseLegacy([]byte("{not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestMigrateLegacy(t *testing.T) {
	svc, files := testutil.TestService(t, registry.WithClock(func() time.Time {
		return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	}))
	ctx := context.Background()

	res, err := svc.MigrateLegacy(ctx)
	if err != nil || res != nil {
		t.Fatalf("without legacy file = %v, %v", res, err)
	}

	if err := files.Write("legacy.json", []byte(legacyJSON)); err != nil {
		t.Fatal(err)
	}
	res, err = svc.MigrateLegacy(ctx)
	if err != nil {
		t.Fatalf("MigrateLegacy: %v", err)
	}
	if res.ClientsAdded != 1 || res.RegistrosAdded != 2 {
		t.Errorf("result = %+v", res)
	}
	if files.Exists("legacy.json") || !files.Exists("legacy.json.migrated") {
		t.Error("legacy file not renamed")
	}

	// A second run is a no-op, and dropping the same document again adds nothing.
	if res, err := svc.MigrateLegacy(ctx); err != nil || res != nil {
		t.Fatalf("second run = %v, %v", res, err)
	}
	if err := files.Write("legacy.json", []byte(legacyJSON)); err != nil {
		t.Fatal(err)
	}
	res, err = svc.MigrateLegacy(ctx)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if res.ClientsAdded != 0 || res.RegistrosAdded != 0 || len(res.Clients) != 0 {
		t.Errorf("replay duplicated data: %+v", res)
	}

	sum, _ := svc.Summary(ctx)
	if sum == nil || sum.TotalRegistros != 2 {
		t.Errorf("summary after migration = %+v", sum)
	}
}
