package registry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/starford/valet/internal/apperr"
	"github.com/starford/valet/internal/checksum"
	"github.com/starford/valet/internal/storage"
	"github.com/starford/valet/internal/store"
	"github.com/starford/valet/internal/transfer"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// ImportOutcome reports what an import did.
type ImportOutcome struct {
	transfer.ImportResult
	Name     string `json:"name"`
	Checksum string `json:"checksum"`
	Message  string `json:"message"`
}

// Import reads a CSV or spreadsheet of clients and stores the valid, new ones.
func (s *Service) Import(ctx context.Context, name string, data []byte) (*ImportOutcome, error) {
	rows, err := transfer.ReadRows(name, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrUnreadableFile, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.db.LoadClients(ctx)
	if err != nil {
		return nil, err
	}
	res := transfer.ProcessRows(rows, existing)
	if len(res.Imported) > 0 {
		if err := s.db.SaveClients(ctx, res.Imported); err != nil {
			return nil, err
		}
	}

	out := &ImportOutcome{
		ImportResult: res,
		Name:         name,
		Checksum:     checksum.Sum(data),
		Message:      res.Message(),
	}
	err = s.db.RecordImport(ctx, store.ImportRecord{
		Checksum: out.Checksum,
		Name:     name,
		Imported: len(res.Imported),
		Skipped:  res.SkippedTotal(),
	})
	if err != nil {
		return nil, err
	}
	s.notify(EventImportCompleted, out)
	return out, nil
}

// ImportSeen reports whether content with this checksum was already imported.
func (s *Service) ImportSeen(ctx context.Context, sum string) (bool, error) {
	return s.db.ImportSeen(ctx, sum)
}

// Imports lists recent imports.
func (s *Service) Imports(ctx context.Context, limit int) ([]store.ImportRecord, error) {
	recs, err := s.db.ListImports(ctx, limit)
	return nonNil(recs), err
}

// ExportClients writes the client list as CSV or XLSX and returns the
// suggested file name.
func (s *Service) ExportClients(ctx context.Context, w io.Writer, kind string) (string, error) {
	clients, err := s.db.LoadClients(ctx)
	if err != nil {
		return "", err
	}
	switch kind {
	case FormatCSV:
		err = transfer.WriteClientsCSV(w, clients)
	case FormatXLSX:
		err = transfer.WriteClientsXLSX(w, clients)
	default:
		return "", fmt.Errorf("unsupported client export format %q", kind)
	}
	if err != nil {
		return "", err
	}
	return transfer.ClientsFilename(kind, s.Now()), nil
}

// ExportReport writes a client's access report as PDF or XLSX and returns
// the suggested file name. A client without registros yields
// apperr.ErrNoRecords and no output.
func (s *Service) ExportReport(ctx context.Context, w io.Writer, clientID, kind string) (string, error) {
	r, err := s.ClientRecords(ctx, clientID)
	if err != nil {
		return "", err
	}
	now := s.Now()
	switch kind {
	case FormatPDF:
		err = transfer.WriteReportPDF(w, *r, now, s.loc)
	case FormatXLSX:
		err = transfer.WriteReportXLSX(w, *r, now, s.loc)
	default:
		return "", fmt.Errorf("unsupported report format %q", kind)
	}
	if err != nil {
		return "", err
	}
	return transfer.ReportFilename(r.Client.Nome, kind, now), nil
}

// SaveExport runs an export into the data area's exports directory and
// returns the relative path written.
func (s *Service) SaveExport(export func(io.Writer) (string, error)) (string, error) {
	var buf bytes.Buffer
	name, err := export(&buf)
	if err != nil {
		return "", err
	}
	rel := path.Join(storage.ExportsDir, name)
	if err := s.files.Write(rel, buf.Bytes()); err != nil {
		return "", err
	}
	return rel, nil
}

// Reset deletes every client, bicycle, registro and import record.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Reset(ctx); err != nil {
		return err
	}
	s.notify(EventStorageReset, nil)
	return nil
}
