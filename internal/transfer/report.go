package transfer

import (
	"sort"
	"strings"
	"time"

	"github.com/starford/valet/internal/apperr"
	"github.com/starford/valet/internal/models"
)

// Status labels used in access reports.
const (
	StatusParked        = "No estacionamento"
	StatusAccessRemoved = "Acesso Removido"
	StatusNormalExit    = "Saída Normal"
)

// NoRecordsMessage is shown instead of an empty report.
const NoRecordsMessage = "Nenhum registro de acesso encontrado para este cliente."

// Record is a log entry joined with its client and resolved bicycle.
type Record struct {
	models.LogEntry
	ClientName string          `json:"clientName"`
	ClientCPF  string          `json:"clientCPF"`
	Bicicleta  models.Snapshot `json:"bicicleta"`
	Status     string          `json:"status"`
}

// Report is the access history of one client, newest entry first.
type Report struct {
	Client  models.Client `json:"client"`
	Records []Record      `json:"records"`
}

// BuildReport resolves the bicycle of every entry against c and sorts the
// result by entrada, most recent first. Unparsable entradas sort last.
func BuildReport(c models.Client, entries []models.LogEntry, loc *time.Location) Report {
	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, Record{
			LogEntry:   e,
			ClientName: c.Nome,
			ClientCPF:  c.CPF,
			Bicicleta:  models.ResolveBike(e.Bike(), &c),
			Status:     Status(e),
		})
	}
	sort.SliceStable(records, func(i, j int) bool {
		ti, okI := models.ParseTimestamp(records[i].DataHoraEntrada, loc)
		tj, okJ := models.ParseTimestamp(records[j].DataHoraEntrada, loc)
		if okI != okJ {
			return okI
		}
		return ti.After(tj)
	})
	return Report{Client: c, Records: records}
}

// Check returns apperr.ErrNoRecords when there is nothing to export.
func (r Report) Check() error {
	if len(r.Records) == 0 {
		return apperr.ErrNoRecords
	}
	return nil
}

// Status describes where the bicycle of e is.
func Status(e models.LogEntry) string {
	switch {
	case e.Open():
		return StatusParked
	case e.AccessRemoved:
		return StatusAccessRemoved
	default:
		return StatusNormalExit
	}
}

// FormatDateTime renders a stored timestamp as DD/MM/YYYY HH:MM:SS in loc.
// Unparsable values are returned unchanged.
func FormatDateTime(s string, loc *time.Location) string {
	t, ok := models.ParseTimestamp(s, loc)
	if !ok {
		return s
	}
	return t.Format("02/01/2006 15:04:05")
}

// ClientsFilename is the download name of a client list export.
func ClientsFilename(ext string, now time.Time) string {
	return "clientes_" + now.Format("2006-01-02") + "." + ext
}

// ReportFilename is the download name of a client access report.
func ReportFilename(nome, ext string, now time.Time) string {
	return "registros_" + strings.Join(strings.Fields(nome), "_") + "_" + now.Format("2006-01-02") + "." + ext
}
