package history

import (
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	monthNames = [...]string{
		"janeiro", "fevereiro", "março", "abril", "maio", "junho",
		"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
	}
	weekdayNames = [...]string{
		"domingo", "segunda-feira", "terça-feira", "quarta-feira",
		"quinta-feira", "sexta-feira", "sábado",
	}
	title = cases.Title(language.BrazilianPortuguese)
)

// MonthName returns the capitalised pt-BR name of month (1-12).
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return title.String(monthNames[month-1])
}

// WeekdayName returns the lower case pt-BR weekday name.
func WeekdayName(d time.Weekday) string {
	return weekdayNames[d]
}

// Capitalize title-cases a label for display.
func Capitalize(s string) string {
	return title.String(s)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
