package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/ddmrp-planner/internal/storage"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat defaults to CSV.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), ".")) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

// Options controls number rendering.
type Options struct {
	Decimals int32
	Locale   Locale
}

func DefaultOptions() Options {
	return Options{Decimals: 2}
}

// Write encodes t to w in the given format.
func Write(w io.Writer, format Format, t Table, opts Options) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, t, opts)
	case FormatXLSX:
		return writeXLSX(w, t, opts)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// Save writes t under dir and returns the file path.
func Save(dir string, format Format, t Table, opts Options) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed creating export directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, t.Name+"."+string(format))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file %s: %w", path, err)
	}
	defer f.Close()

	if err := Write(f, format, t, opts); err != nil {
		return "", err
	}
	log.Info().Str("file", path).Int("rows", len(t.Rows)).Msg("Export written")
	return path, nil
}

// Publish uploads t to object storage under prefix and returns the key.
func Publish(ctx context.Context, store storage.ObjectStorage, prefix string, format Format, t Table, opts Options) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, format, t, opts); err != nil {
		return "", err
	}
	key := strings.TrimPrefix(strings.TrimSuffix(prefix, "/")+"/"+t.Name+"."+string(format), "/")
	if err := store.UploadObject(ctx, key, buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to upload export: %w", err)
	}
	log.Info().Str("key", key).Int("rows", len(t.Rows)).Msg("Export uploaded")
	return key, nil
}

func writeCSV(w io.Writer, t Table, opts Options) error {
	cw := csv.NewWriter(w)
	if opts.Locale == LocaleES {
		cw.Comma = ';'
	}
	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	record := make([]string, len(t.Headers))
	for _, row := range t.Rows {
		record = record[:0]
		for _, cell := range row {
			record = append(record, cellText(cell, opts))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func cellText(cell interface{}, opts Options) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return formatNumber(v, opts.Decimals, opts.Locale)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func writeXLSX(w io.Writer, t Table, opts Options) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(t.Name)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write xlsx header: %w", err)
	}

	for i, row := range t.Rows {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = xlsxValue(cell, opts)
		}
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, addr, &cells); err != nil {
			return fmt.Errorf("failed to write xlsx row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

// xlsxValue keeps numbers numeric; spreadsheets cannot hold infinities.
func xlsxValue(cell interface{}, opts Options) interface{} {
	v, ok := cell.(float64)
	if !ok {
		return cell
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return formatNumber(v, opts.Decimals, LocalePlain)
	}
	return round(v, opts.Decimals)
}

// sheetName trims to the 31 characters spreadsheets allow.
func sheetName(name string) string {
	if name == "" {
		return "Sheet1"
	}
	if len(name) > 31 {
		return name[:31]
	}
	return name
}
