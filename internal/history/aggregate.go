// Package history groups parking log entries by year, month and day and
// renders the collapsible history view built on top of that grouping.
package history

import (
	"time"

	"github.com/starford/valet/internal/models"
)

// Tree buckets entries by year → month (1-12) → day (1-31).
type Tree map[int]map[int]map[int][]models.LogEntry

// Summary carries the per-node counts of a Tree.
type Summary struct {
	TotalRegistros int                 `json:"totalRegistros"`
	Skipped        int                 `json:"skipped"`
	Anos           map[int]YearSummary `json:"anos"`
}

// YearSummary counts the months of one year.
type YearSummary struct {
	TotalMeses int                  `json:"totalMeses"`
	Meses      map[int]MonthSummary `json:"meses"`
}

// MonthSummary counts the days and entries of one month.
type MonthSummary struct {
	Nome           string      `json:"nome"`
	TotalDias      int         `json:"totalDias"`
	TotalRegistros int         `json:"totalRegistros"`
	Dias           map[int]int `json:"dias"`
}

// TotalRegistros sums the entries of every month in the year.
func (y YearSummary) TotalRegistros() int {
	n := 0
	for _, m := range y.Meses {
		n += m.TotalRegistros
	}
	return n
}

// Organize groups entries by the local calendar date of their entrada
// timestamp. Entries whose entrada cannot be parsed are left out of the tree
// and counted in Summary.Skipped.
func Organize(entries []models.LogEntry, loc *time.Location) (Tree, Summary) {
	tree := make(Tree)
	skipped := 0

	for _, e := range entries {
		t, ok := models.ParseTimestamp(e.DataHoraEntrada, loc)
		if !ok {
			skipped++
			continue
		}
		y, m, d := t.Year(), int(t.Month()), t.Day()
		months, ok := tree[y]
		if !ok {
			months = make(map[int]map[int][]models.LogEntry)
			tree[y] = months
		}
		days, ok := months[m]
		if !ok {
			days = make(map[int][]models.LogEntry)
			months[m] = days
		}
		days[d] = append(days[d], e)
	}

	sum := Summarize(tree)
	sum.Skipped = skipped
	return tree, sum
}

// Summarize derives the counts of tree bottom-up.
func Summarize(tree Tree) Summary {
	sum := Summary{Anos: make(map[int]YearSummary, len(tree))}
	for y, months := range tree {
		ys := YearSummary{TotalMeses: len(months), Meses: make(map[int]MonthSummary, len(months))}
		for m, days := range months {
			ms := MonthSummary{Nome: MonthName(m), TotalDias: len(days), Dias: make(map[int]int, len(days))}
			for d, list := range days {
				ms.Dias[d] = len(list)
				ms.TotalRegistros += len(list)
			}
			ys.Meses[m] = ms
			sum.TotalRegistros += ms.TotalRegistros
		}
		sum.Anos[y] = ys
	}
	return sum
}

// PernoiteCount returns how many entries were flagged as overnight stays.
func PernoiteCount(entries []models.LogEntry) int {
	n := 0
	for _, e := range entries {
		if e.Pernoite {
			n++
		}
	}
	return n
}
