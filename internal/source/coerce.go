package source

import (
	"math"
	"strconv"
	"strings"
	"time"
)

var columnNameSanitizer = strings.NewReplacer(
	" ", "", "_", "", ".", "", "-", "", "/", "",
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n",
)

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	name = strings.TrimPrefix(name, "\ufeff")
	return columnNameSanitizer.Replace(name)
}

// columns resolves header positions by alias.
type columns struct {
	index map[string]int
}

func newColumns(header []string) columns {
	c := columns{index: make(map[string]int, len(header))}
	for i, h := range header {
		key := normalizeColumnName(h)
		if _, dup := c.index[key]; !dup {
			c.index[key] = i
		}
	}
	return c
}

// find returns the position of the first alias present, -1 when none is.
func (c columns) find(names ...string) int {
	for _, name := range names {
		if i, ok := c.index[normalizeColumnName(name)]; ok {
			return i
		}
	}
	return -1
}

// record wraps one row for typed access by column position.
type record []string

func (r record) str(idx int) string {
	if idx < 0 || idx >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[idx])
}

// float coerces the cell to a number, 0 when blank or malformed.
func (r record) float(idx int) float64 {
	v := parseFloat(r.str(idx))
	if v == nil {
		return 0
	}
	return *v
}

func (r record) optFloat(idx int) *float64 {
	return parseFloat(r.str(idx))
}

func (r record) date(idx int) (time.Time, bool) {
	return parseDate(r.str(idx))
}

func (r record) boolean(idx int, fallback bool) bool {
	return parseBool(r.str(idx), fallback)
}

// parseFloat reads plain and Spanish-locale numbers. Any comma is the decimal
// separator and dots are then thousands separators; several dots without a
// comma are thousands separators too. It returns nil for blank, malformed or
// non-finite input.
func parseFloat(raw string) *float64 {
	v := strings.TrimSpace(raw)
	switch strings.ToLower(v) {
	case "", "nan", "null", "none", "n/a", "-":
		return nil
	}
	v = strings.ReplaceAll(v, " ", "")

	switch {
	case strings.Contains(v, ","):
		v = strings.ReplaceAll(v, ".", "")
		v = strings.Replace(v, ",", ".", 1)
	case strings.Count(v, ".") > 1:
		v = strings.ReplaceAll(v, ".", "")
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// nullableFloat is parseFloat over a nullable database text column.
func nullableFloat(valid bool, s string) *float64 {
	if !valid {
		return nil
	}
	return parseFloat(s)
}

func coerceFloat(valid bool, s string) float64 {
	if v := nullableFloat(valid, s); v != nil {
		return *v
	}
	return 0
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	"20060102",
	"2006-01",
}

// parseDate accepts ISO, day-first and compact layouts and returns the UTC
// calendar day.
func parseDate(raw string) (time.Time, bool) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	// Spreadsheet serial day numbers
	if f := parseFloat(v); f != nil && *f > 20000 && *f < 80000 {
		base := time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
		return base.AddDate(0, 0, int(*f)), true
	}
	return time.Time{}, false
}

func parseBool(raw string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "y", "si", "sí", "s", "x", "valid", "valido", "válido":
		return true
	case "false", "0", "no", "n", "invalid", "invalido", "inválido":
		return false
	}
	return fallback
}

// monthKey normalizes a month cell to YYYY-MM.
func monthKey(raw string) string {
	if t, ok := parseDate(raw); ok {
		return t.Format("2006-01")
	}
	return strings.TrimSpace(raw)
}
