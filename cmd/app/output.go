package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/starford/valet/internal/history"
	"github.com/starford/valet/internal/registry"
)

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func printImport(out *registry.ImportOutcome) {
	fmt.Println(out.Message)
	reasons := make([]string, 0, len(out.Skipped))
	for k := range out.Skipped {
		reasons = append(reasons, k)
	}
	sort.Strings(reasons)
	rows := [][2]string{{"imported", strconv.Itoa(len(out.Imported))}}
	for _, k := range reasons {
		rows = append(rows, [2]string{"skipped." + k, strconv.Itoa(out.Skipped[k])})
	}
	printKV(rows)
}

func descKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))
	return keys
}

func printSummary(sum history.Summary) {
	var rows [][]string
	for _, y := range descKeys(sum.Anos) {
		year := sum.Anos[y]
		for _, m := range descKeys(year.Meses) {
			month := year.Meses[m]
			rows = append(rows, []string{
				strconv.Itoa(y), month.Nome,
				strconv.Itoa(month.TotalDias), strconv.Itoa(month.TotalRegistros),
			})
		}
	}
	printTable([]string{"ANO", "MÊS", "DIAS", "REGISTROS"}, rows)
	fmt.Printf("total: %d\n", sum.TotalRegistros)
}
