package history

import (
	"fmt"
	"io"
)

const (
	collapsedMark = "▸"
	expandedMark  = "▾"
)

// WriteText prints v as an indented tree. Children of collapsed nodes are
// not printed.
func WriteText(w io.Writer, v View) error {
	if v.TotalRegistros == 0 {
		if _, err := fmt.Fprintln(w, "Nenhum registro encontrado"); err != nil {
			return err
		}
		return writeSkipped(w, v.Skipped)
	}
	if _, err := fmt.Fprintf(w, "Total de Registros: %d\n", v.TotalRegistros); err != nil {
		return err
	}
	if err := writeSkipped(w, v.Skipped); err != nil {
		return err
	}
	for _, y := range v.Years {
		if _, err := fmt.Fprintf(w, "%s %d (%d %s)  %d registros\n",
			mark(y.Expanded), y.Year, y.TotalMeses, plural(y.TotalMeses, "mês", "meses"), y.TotalRegistros); err != nil {
			return err
		}
		if !y.Expanded {
			continue
		}
		for _, m := range y.Months {
			if _, err := fmt.Fprintf(w, "  %s %s (%d %s)  %d\n",
				mark(m.Expanded), m.Nome, m.TotalDias, plural(m.TotalDias, "dia", "dias"), m.TotalRegistros); err != nil {
				return err
			}
			if !m.Expanded {
				continue
			}
			for _, d := range m.Days {
				line := fmt.Sprintf("      %s (%s)  %d %s", d.Date, Capitalize(d.Weekday),
					d.TotalRegistros, plural(d.TotalRegistros, "registro", "registros"))
				if d.Pernoites > 0 {
					line += fmt.Sprintf("  %d %s", d.Pernoites, plural(d.Pernoites, "pernoite", "pernoites"))
				}
				if _, err := fmt.Fprintln(w, line); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func writeSkipped(w io.Writer, n int) error {
	if n == 0 {
		return nil
	}
	_, err := fmt.Fprintf(w, "Registros com data inválida: %d\n", n)
	return err
}

func mark(expanded bool) string {
	if expanded {
		return expandedMark
	}
	return collapsedMark
}
