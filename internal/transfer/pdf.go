package transfer

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/starford/valet/internal/format"
)

const (
	pdfMargin     = 14.0
	pdfBreakSpace = 40.0
)

// WriteReportPDF renders the access report of one client on A4 pages.
func WriteReportPDF(w io.Writer, r Report, now time.Time, loc *time.Location) error {
	if err := r.Check(); err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, pageH := pdf.GetPageSize()

	text := func(x, y float64, s string) { pdf.Text(x, y, tr(s)) }
	centered := func(y float64, s string) {
		s = tr(s)
		pdf.Text((pageW-pdf.GetStringWidth(s))/2, y, s)
	}

	y := pdfMargin
	pdf.SetFont("Helvetica", "B", 18)
	centered(y, "Relatório de Registros de Acesso")

	y += 10
	pdf.SetFont("Helvetica", "", 10)
	centered(y, "Gerado em: "+now.In(loc).Format("02/01/2006 15:04:05"))

	y += 15
	pdf.SetFont("Helvetica", "B", 12)
	text(pdfMargin, y, "Informações do Cliente")

	y += 7
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range []string{
		"Nome: " + r.Client.Nome,
		"CPF: " + format.FormatCPF(r.Client.CPF),
		"Telefone: " + format.FormatTelefone(r.Client.Telefone),
		"Total de Registros: " + strconv.Itoa(len(r.Records)),
	} {
		text(pdfMargin+5, y, line)
		y += 5
	}

	y += 7
	pdf.SetFont("Helvetica", "B", 12)
	text(pdfMargin, y, "Histórico de Registros")
	y += 8

	pdf.SetDrawColor(200, 200, 200)
	for i, rec := range r.Records {
		if y > pageH-pdfBreakSpace {
			pdf.AddPage()
			y = pdfMargin
		}
		pdf.SetFont("Helvetica", "B", 10)
		text(pdfMargin, y, fmt.Sprintf("Registro #%d", i+1))

		y += 6
		pdf.SetFont("Helvetica", "", 10)
		b := rec.Bicicleta
		text(pdfMargin+5, y, fmt.Sprintf("Bicicleta: %s (%s - %s)", b.Modelo, b.Marca, b.Cor))

		y += 5
		text(pdfMargin+5, y, "Entrada: "+FormatDateTime(rec.DataHoraEntrada, loc))

		y += 5
		if rec.Open() {
			text(pdfMargin+5, y, "Saída: Ainda no estacionamento")
		} else {
			text(pdfMargin+5, y, fmt.Sprintf("Saída: %s (%s)", FormatDateTime(rec.DataHoraSaida, loc), rec.Status))
		}

		y += 8
		pdf.Line(pdfMargin, y-2, pageW-pdfMargin, y-2)
		y += 2
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("transfer: write pdf: %w", err)
	}
	return nil
}
