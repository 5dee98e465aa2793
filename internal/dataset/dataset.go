package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/maltedev/gmaps-poi-scraper/internal/models"
)

const sheetName = "Sheet1"

var ErrEmptyBatch = errors.New("no places to write")

// FileName returns the dataset file name for a city.
func FileName(city string) string {
	return "dataset_" + strings.ToLower(city) + ".xlsx"
}

type WriteResult struct {
	Path     string
	Existing int
	Added    int
	Total    int
}

// Writer merges scraped places into one spreadsheet per city.
type Writer struct {
	dir    string
	logger *slog.Logger
}

func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{
		dir:    dir,
		logger: logger.With("component", "dataset_writer"),
	}
}

func (w *Writer) Path(city string) string {
	return filepath.Join(w.dir, FileName(city))
}

// Write appends places to the city's dataset, keeping existing rows first and
// dropping rows that duplicate an earlier one in every column.
// An empty batch leaves the file untouched and returns ErrEmptyBatch.
func (w *Writer) Write(city string, places []models.Place) (*WriteResult, error) {
	if len(places) == 0 {
		return nil, ErrEmptyBatch
	}

	path := w.Path(city)

	existing, err := ReadRows(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read existing dataset: %w", err)
	}

	rows := make([][]string, 0, len(existing)+len(places))
	rows = append(rows, existing...)
	for i := range places {
		rows = append(rows, places[i].Row())
	}

	merged := Dedupe(rows)

	if err := writeAtomic(path, merged); err != nil {
		return nil, err
	}

	result := &WriteResult{
		Path:     path,
		Existing: len(existing),
		Added:    len(merged) - len(Dedupe(existing)),
		Total:    len(merged),
	}

	w.logger.Info("dataset written",
		"city", city,
		"path", path,
		"existing", result.Existing,
		"added", result.Added,
		"total", result.Total,
	)

	return result, nil
}

// Dedupe drops rows equal in every cell to an earlier row, preserving order.
func Dedupe(rows [][]string) [][]string {
	seen := make(map[string]struct{}, len(rows))
	out := make([][]string, 0, len(rows))

	for _, row := range rows {
		key := strings.Join(row, "\x1f")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}
	return out
}

// ReadRows loads the data rows of a dataset file in column order.
// Columns are matched by header name, so files with reordered columns still merge.
func ReadRows(path string) ([][]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	index := make(map[string]int, len(raw[0]))
	for i, name := range raw[0] {
		index[strings.TrimSpace(name)] = i
	}

	rows := make([][]string, 0, len(raw)-1)
	for _, r := range raw[1:] {
		row := make([]string, len(models.Columns))
		empty := true
		for c, name := range models.Columns {
			src, ok := index[name]
			if !ok || src >= len(r) {
				continue
			}
			row[c] = r[src]
			if row[c] != "" {
				empty = false
			}
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func writeAtomic(path string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := fill(f, rows); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".dataset-*.xlsx")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func fill(f *excelize.File, rows [][]string) error {
	sheet := f.GetSheetName(0)
	if sheet != sheetName {
		if err := f.SetSheetName(sheet, sheetName); err != nil {
			return err
		}
	}

	for c, name := range models.Columns {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(sheetName, cell, name); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for r, row := range rows {
		for c, value := range row {
			if value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}

			if c == models.PriceColumn {
				if n, err := strconv.ParseFloat(value, 64); err == nil {
					err = f.SetCellFloat(sheetName, cell, n, -1, 64)
					if err != nil {
						return fmt.Errorf("failed to write cell %s: %w", cell, err)
					}
					continue
				}
			}

			if err := f.SetCellStr(sheetName, cell, value); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	return nil
}
