package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/valet/internal/format"
	"github.com/starford/valet/internal/models"
)

// LegacyResult reports a completed legacy migration. Clients lists the
// clients actually added; Registros every registro found in the document.
type LegacyResult struct {
	Clients          []models.Client   `json:"clients"`
	Registros        []models.LogEntry `json:"registros"`
	ClientsAdded     int               `json:"clientsAdded"`
	ClientsMerged    int               `json:"clientsMerged"`
	RegistrosAdded   int               `json:"registrosAdded"`
	MigratedFilePath string            `json:"migratedFile"`
}

// legacyDocument is the JSON exported from the old browser storage. Older
// versions kept the registros of each bicycle inside the bicycle itself.
type legacyDocument struct {
	Clients   []legacyClient    `json:"clients"`
	Registros []models.LogEntry `json:"registros"`
}

type legacyClient struct {
	ID         string       `json:"id"`
	Nome       string       `json:"nome"`
	CPF        string       `json:"cpf"`
	Telefone   string       `json:"telefone"`
	Bicicletas []legacyBike `json:"bicicletas"`
}

type legacyBike struct {
	models.Bicycle
	Registros []models.LogEntry `json:"registros"`
}

// MigrateLegacy imports the legacy JSON file, if present, and renames it to
// <name>.migrated. Without a legacy file it returns nil, nil.
func (s *Service) MigrateLegacy(ctx context.Context) (*LegacyResult, error) {
	if s.legacyFile == "" || !s.files.Exists(s.legacyFile) {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.files.Read(s.legacyFile)
	if err != nil {
		return nil, err
	}
	clients, registros, err := ParseLegacy(data)
	if err != nil {
		return nil, err
	}
	imported, err := s.db.ImportLegacy(ctx, clients, registros)
	if err != nil {
		return nil, err
	}
	target := s.legacyFile + ".migrated"
	if err := s.files.Move(s.legacyFile, target); err != nil {
		return nil, err
	}
	nc, nr := len(imported.Clients), imported.Registros
	if nc > 0 || nr > 0 {
		s.notify(EventImportCompleted, map[string]int{"clients": nc, "registros": nr})
	}
	return &LegacyResult{
		Clients:          nonNil(imported.Clients),
		Registros:        registros,
		ClientsAdded:     nc,
		ClientsMerged:    imported.Merged,
		RegistrosAdded:   nr,
		MigratedFilePath: target,
	}, nil
}

// ParseLegacy decodes a legacy document into the current model. Nested
// per-bicycle registros are lifted to the top level with a snapshot of their
// bicycle, and top-level ones get the same snapshot when their bicycle is in
// the document; CPF and telefone are reduced to digits. Missing ids are derived
// from the row contents, so parsing the same document twice yields the same
// ids.
func ParseLegacy(data []byte) ([]models.Client, []models.LogEntry, error) {
	var doc legacyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("legacy: decode: %w", err)
	}

	clients := make([]models.Client, 0, len(doc.Clients))
	registros := make([]models.LogEntry, 0, len(doc.Registros))
	bikes := make(map[[2]string]models.Bicycle)
	for _, lc := range doc.Clients {
		cpf := format.Digits(lc.CPF)
		c := models.Client{
			ID:         legacyID(lc.ID, "client", cpf),
			Nome:       strings.TrimSpace(lc.Nome),
			CPF:        cpf,
			Telefone:   format.Digits(lc.Telefone),
			Bicicletas: make([]models.Bicycle, 0, len(lc.Bicicletas)),
		}
		for i, lb := range lc.Bicicletas {
			b := lb.Bicycle
			b.ID = legacyID(b.ID, "bike", c.ID, strconv.Itoa(i), b.Modelo)
			c.Bicicletas = append(c.Bicicletas, b)
			bikes[[2]string{c.ID, b.ID}] = b
			for j, e := range lb.Registros {
				e.ID = legacyID(e.ID, "registro", c.ID, b.ID, e.DataHoraEntrada, strconv.Itoa(j))
				e.ClientID = c.ID
				e.BikeID = b.ID
				if e.BikeSnapshot == nil {
					e.BikeSnapshot = models.SnapshotOf(b)
				}
				registros = append(registros, e)
			}
		}
		clients = append(clients, c)
	}
	for i, e := range doc.Registros {
		e.ID = legacyID(e.ID, "registro", e.ClientID, e.BikeID, e.DataHoraEntrada, strconv.Itoa(i))
		// The client may end up merged into one that lacks this bicycle.
		if b, ok := bikes[[2]string{e.ClientID, e.BikeID}]; ok && e.BikeSnapshot == nil {
			e.BikeSnapshot = models.SnapshotOf(b)
		}
		registros = append(registros, e)
	}
	return clients, registros, nil
}

// legacyNamespace seeds the name-based ids of legacy rows without one.
var legacyNamespace = uuid.MustParse("6f1c2b7e-3d4a-5e8f-9a0b-1c2d3e4f5a6b")

func legacyID(id string, parts ...string) string {
	if strings.TrimSpace(id) != "" {
		return id
	}
	return uuid.NewSHA1(legacyNamespace, []byte(strings.Join(parts, "\x1f"))).String()
}
