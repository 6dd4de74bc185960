package source

import (
	"testing"
	"time"
)

func TestParseFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12", 12, true},
		{" 12.5 ", 12.5, true},
		{"12,5", 12.5, true},
		{"1.234,5", 1234.5, true},
		{"0,125", 0.125, true},
		{"2,500", 2.5, true},
		{"1.234,567", 1234.567, true},
		{"1.234.567", 1234567, true},
		{"1,2,3", 0, false},
		{"-40", -40, true},
		{"", 0, false},
		{"NaN", 0, false},
		{"abc", 0, false},
		{"Inf", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseFloat(tt.in)
			if (got != nil) != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, got)
			}
			if got != nil && *got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, *got)
			}
		})
	}
}

func TestNormalizeColumnNameStripsBOM(t *testing.T) {
	if got := normalizeColumnName("\ufeffCódigo_Item"); got != "codigoitem" {
		t.Errorf("Expected codigoitem, got %q", got)
	}
}

func TestRecordFloatCoercesToZero(t *testing.T) {
	r := record{"x", "n/a"}
	if got := r.float(1); got != 0 {
		t.Errorf("Expected 0 for malformed cell, got %v", got)
	}
	if got := r.float(7); got != 0 {
		t.Errorf("Expected 0 for missing cell, got %v", got)
	}
	if r.optFloat(1) != nil {
		t.Errorf("Expected nil optional value for malformed cell")
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, time.September, 3, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2025-09-03", "2025-09-03 14:30:00", "03/09/2025", "20250903", "45903"} {
		got, ok := parseDate(in)
		if !ok || !got.Equal(want) {
			t.Errorf("%s: Expected %v, got %v (ok=%v)", in, want, got, ok)
		}
	}
	if _, ok := parseDate("someday"); ok {
		t.Errorf("Expected invalid date to fail")
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		in       string
		fallback bool
		want     bool
	}{
		{"SI", false, true},
		{"sí", false, true},
		{"NO", true, false},
		{"1", false, true},
		{"", true, true},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		if got := parseBool(tt.in, tt.fallback); got != tt.want {
			t.Errorf("%q: Expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestColumnsFindAliases(t *testing.T) {
	cols := newColumns([]string{"Código", "CANTIDAD DIARIA", "Fecha"})
	if got := cols.find("item_id", "codigo"); got != 0 {
		t.Errorf("Expected item column 0, got %d", got)
	}
	if got := cols.find("quantity", "cantidad_diaria"); got != 1 {
		t.Errorf("Expected quantity column 1, got %d", got)
	}
	if got := cols.find("warehouse"); got != -1 {
		t.Errorf("Expected missing column -1, got %d", got)
	}
}
