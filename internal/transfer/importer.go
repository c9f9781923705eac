// Package transfer reads client spreadsheets and writes client lists and
// per-client access reports as CSV, XLSX and PDF.
package transfer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/starford/valet/internal/format"
	"github.com/starford/valet/internal/models"
)

// Extensions accepted by ReadRows.
var Extensions = []string{".csv", ".xlsx", ".xlsm"}

// Supported reports whether name has an importable extension.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// ReadRows parses a CSV or spreadsheet file into rows of trimmed cells.
// Spreadsheets are read from their first sheet.
func ReadRows(name string, r io.Reader) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return readCSV(r)
	}
	return readXLSX(r)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("transfer: read csv: %w", err)
		}
		rows = append(rows, trimCells(rec))
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("transfer: open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("transfer: spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("transfer: read sheet %s: %w", sheets[0], err)
	}
	for i := range rows {
		rows[i] = trimCells(rows[i])
	}
	return rows, nil
}

func trimCells(cells []string) []string {
	for i, c := range cells {
		cells[i] = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
	}
	return cells
}

// Skip reasons reported in ImportResult.Skipped.
const (
	SkipMissingColumns = "missing_columns"
	SkipInvalidCPF     = "invalid_cpf"
	SkipDuplicateCPF   = "duplicate_cpf"
)

// ImportResult is the outcome of mapping rows to clients.
type ImportResult struct {
	Imported []models.Client `json:"imported"`
	Skipped  map[string]int  `json:"skipped"`
}

// SkippedTotal sums every skip reason.
func (r ImportResult) SkippedTotal() int {
	n := 0
	for _, v := range r.Skipped {
		n += v
	}
	return n
}

// Message is the status line shown after an import.
func (r ImportResult) Message() string {
	if len(r.Imported) == 0 {
		return "Nenhum cliente válido encontrado no arquivo."
	}
	return strconv.Itoa(len(r.Imported)) + " cliente(s) importado(s) com sucesso!"
}

// ProcessRows maps rows in the column order nome, telefone, CPF to new
// clients. A header row is skipped when its first cell mentions "nome" or
// "name". Rows with a missing name or CPF, an invalid CPF, or a CPF already
// held by an existing client (or an earlier row) are skipped.
func ProcessRows(rows [][]string, existing []models.Client) ImportResult {
	res := ImportResult{Imported: []models.Client{}, Skipped: map[string]int{}}

	seen := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		seen[format.Digits(c.CPF)] = struct{}{}
	}

	for i, row := range rows {
		if i == 0 && isHeader(row) {
			continue
		}
		if blank(row) {
			continue
		}
		if len(row) < 3 || row[0] == "" || row[2] == "" {
			res.Skipped[SkipMissingColumns]++
			continue
		}
		nome := strings.TrimSpace(row[0])
		cpf := format.Digits(row[2])
		if !format.ValidateCPF(cpf) {
			res.Skipped[SkipInvalidCPF]++
			continue
		}
		if _, dup := seen[cpf]; dup {
			res.Skipped[SkipDuplicateCPF]++
			continue
		}
		seen[cpf] = struct{}{}
		res.Imported = append(res.Imported, models.Client{
			ID:         models.NewID(),
			Nome:       nome,
			CPF:        cpf,
			Telefone:   format.Digits(row[1]),
			Bicicletas: []models.Bicycle{},
		})
	}
	return res
}

func isHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToLower(row[0])
	return strings.Contains(first, "nome") || strings.Contains(first, "name")
}

func blank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
