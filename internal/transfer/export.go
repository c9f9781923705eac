package transfer

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/starford/valet/internal/format"
	"github.com/starford/valet/internal/models"
)

const (
	clientsSheet = "Clientes"
	reportSheet  = "Registros"
)

// ClientsTable is the header plus one row per client with masked phone and CPF.
func ClientsTable(clients []models.Client) [][]string {
	rows := make([][]string, 0, len(clients)+1)
	rows = append(rows, []string{"Nome", "Número", "CPF"})
	for _, c := range clients {
		tel := ""
		if c.Telefone != "" {
			tel = format.FormatTelefone(c.Telefone)
		}
		rows = append(rows, []string{c.Nome, tel, format.FormatCPF(c.CPF)})
	}
	return rows
}

// WriteClientsCSV writes the client table with every cell quoted and rows
// separated by a bare newline.
func WriteClientsCSV(w io.Writer, clients []models.Client) error {
	bw := bufio.NewWriter(w)
	for i, row := range ClientsTable(clients) {
		if i > 0 {
			bw.WriteByte('\n')
		}
		for j, cell := range row {
			if j > 0 {
				bw.WriteByte(',')
			}
			bw.WriteByte('"')
			bw.WriteString(strings.ReplaceAll(cell, `"`, `""`))
			bw.WriteByte('"')
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("transfer: write csv: %w", err)
	}
	return nil
}

// WriteClientsXLSX writes the client table to a workbook with a single
// "Clientes" sheet.
func WriteClientsXLSX(w io.Writer, clients []models.Client) error {
	f, err := newWorkbook(clientsSheet)
	if err != nil {
		return err
	}
	defer f.Close()

	for i, row := range ClientsTable(clients) {
		if err := setRow(f, clientsSheet, i+1, stringsToCells(row)); err != nil {
			return err
		}
	}
	return writeWorkbook(f, w)
}

// WriteReportXLSX writes the access report of one client.
func WriteReportXLSX(w io.Writer, r Report, now time.Time, loc *time.Location) error {
	if err := r.Check(); err != nil {
		return err
	}
	f, err := newWorkbook(reportSheet)
	if err != nil {
		return err
	}
	defer f.Close()

	rows := [][]any{
		{"RELATÓRIO DE REGISTROS DE ACESSO"},
		{},
		{"Cliente:", r.Client.Nome},
		{"CPF:", format.FormatCPF(r.Client.CPF)},
		{"Telefone:", format.FormatTelefone(r.Client.Telefone)},
		{"Total de Registros:", len(r.Records)},
		{"Gerado em:", now.In(loc).Format("02/01/2006 15:04:05")},
		{},
		{"Data/Hora Entrada", "Data/Hora Saída", "Status", "Bicicleta", "Marca", "Cor"},
	}
	for _, rec := range r.Records {
		saida := "-"
		if !rec.Open() {
			saida = FormatDateTime(rec.DataHoraSaida, loc)
		}
		rows = append(rows, []any{
			FormatDateTime(rec.DataHoraEntrada, loc),
			saida,
			rec.Status,
			rec.Bicicleta.Modelo,
			rec.Bicicleta.Marca,
			rec.Bicicleta.Cor,
		})
	}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if err := setRow(f, reportSheet, i+1, row); err != nil {
			return err
		}
	}

	widths := []float64{20, 20, 18, 20, 15, 12}
	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(reportSheet, col, col, width); err != nil {
			return fmt.Errorf("transfer: column width: %w", err)
		}
	}
	return writeWorkbook(f, w)
}

func newWorkbook(sheet string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("transfer: name sheet: %w", err)
	}
	return f, nil
}

func setRow(f *excelize.File, sheet string, n int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return fmt.Errorf("transfer: cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("transfer: set row %d: %w", n, err)
	}
	return nil
}

func writeWorkbook(f *excelize.File, w io.Writer) error {
	if err := f.Write(w); err != nil {
		return fmt.Errorf("transfer: write workbook: %w", err)
	}
	return nil
}

func stringsToCells(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}
