package history

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Expanded maps node keys ("YYYY" for years, "YYYY-MM" for months) to their
// expand state. Absent keys are collapsed.
type Expanded map[string]bool

// YearKey is the expand-state key of a year node.
func YearKey(year int) string {
	return fmt.Sprintf("%04d", year)
}

// MonthKey is the expand-state key of a month node.
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// ParseKey reads a node key typed by a user, "YYYY" or "YYYY-M[M]". month is
// zero for a year key.
func ParseKey(s string) (year, month int, err error) {
	ys, ms, hasMonth := strings.Cut(strings.TrimSpace(s), "-")
	year, err = strconv.Atoi(ys)
	if err != nil || year < 1 {
		return 0, 0, fmt.Errorf("invalid history key %q", s)
	}
	if !hasMonth {
		return year, 0, nil
	}
	month, err = strconv.Atoi(ms)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid history key %q", s)
	}
	return year, month, nil
}

// ExpandState tracks which nodes the user has opened during this process.
// It is never persisted.
type ExpandState struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewExpandState returns a state with every node collapsed.
func NewExpandState() *ExpandState {
	return &ExpandState{keys: make(map[string]struct{})}
}

// ToggleYear flips a year node and returns its new state.
func (s *ExpandState) ToggleYear(year int) bool {
	return s.toggle(YearKey(year))
}

// ToggleMonth flips a month node and returns its new state.
func (s *ExpandState) ToggleMonth(year, month int) bool {
	return s.toggle(MonthKey(year, month))
}

func (s *ExpandState) toggle(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		delete(s.keys, key)
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

// YearExpanded reports whether the year node is open.
func (s *ExpandState) YearExpanded(year int) bool {
	return s.has(YearKey(year))
}

// MonthExpanded reports whether the month node is open.
func (s *ExpandState) MonthExpanded(year, month int) bool {
	return s.has(MonthKey(year, month))
}

func (s *ExpandState) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok
}

// Snapshot copies the current state for a render pass.
func (s *ExpandState) Snapshot() Expanded {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(Expanded, len(s.keys))
	for k := range s.keys {
		out[k] = true
	}
	return out
}

// View is the rendered history tree.
type View struct {
	TotalRegistros int        `json:"totalRegistros"`
	Skipped        int        `json:"skipped"`
	Years          []YearNode `json:"years"`
}

// YearNode is a top-level folder.
type YearNode struct {
	Year           int         `json:"year"`
	Key            string      `json:"key"`
	Expanded       bool        `json:"expanded"`
	TotalMeses     int         `json:"totalMeses"`
	TotalRegistros int         `json:"totalRegistros"`
	Months         []MonthNode `json:"months"`
}

// MonthNode is a folder inside a year.
type MonthNode struct {
	Month          int       `json:"month"`
	Key            string    `json:"key"`
	Nome           string    `json:"nome"`
	Expanded       bool      `json:"expanded"`
	TotalDias      int       `json:"totalDias"`
	TotalRegistros int       `json:"totalRegistros"`
	Days           []DayNode `json:"days"`
}

// DayNode is a leaf row.
type DayNode struct {
	Day            int    `json:"day"`
	Date           string `json:"date"`
	Weekday        string `json:"weekday"`
	TotalRegistros int    `json:"totalRegistros"`
	Pernoites      int    `json:"pernoites"`
}

// Render builds the full view from scratch. Every level is ordered most
// recent first; collapsed nodes keep their children so a client can reveal
// them without another round trip.
func Render(tree Tree, sum Summary, expanded Expanded) View {
	v := View{TotalRegistros: sum.TotalRegistros, Skipped: sum.Skipped, Years: []YearNode{}}

	for _, y := range sortedDesc(tree) {
		ys := sum.Anos[y]
		yn := YearNode{
			Year:           y,
			Key:            YearKey(y),
			Expanded:       expanded[YearKey(y)],
			TotalMeses:     ys.TotalMeses,
			TotalRegistros: ys.TotalRegistros(),
		}
		for _, m := range sortedDesc(tree[y]) {
			ms := ys.Meses[m]
			mn := MonthNode{
				Month:          m,
				Key:            MonthKey(y, m),
				Nome:           ms.Nome,
				Expanded:       expanded[MonthKey(y, m)],
				TotalDias:      ms.TotalDias,
				TotalRegistros: ms.TotalRegistros,
			}
			for _, d := range sortedDesc(tree[y][m]) {
				date := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
				mn.Days = append(mn.Days, DayNode{
					Day:            d,
					Date:           fmt.Sprintf("%02d/%02d/%04d", d, m, y),
					Weekday:        WeekdayName(date.Weekday()),
					TotalRegistros: ms.Dias[d],
					Pernoites:      PernoiteCount(tree[y][m][d]),
				})
			}
			yn.Months = append(yn.Months, mn)
		}
		v.Years = append(v.Years, yn)
	}
	return v
}

func sortedDesc[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))
	return keys
}
