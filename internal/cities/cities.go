package cities

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadColumn returns the non-empty, trimmed values below the named header.
// An empty sheet means the first sheet; an empty column means the first column.
func ReadColumn(path, sheet, column string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	col := 0
	if column != "" {
		col = -1
		for i, name := range rows[0] {
			if strings.EqualFold(strings.TrimSpace(name), column) {
				col = i
				break
			}
		}
		if col < 0 {
			return nil, fmt.Errorf("column %q not found in sheet %q", column, sheet)
		}
	}

	var cities []string
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		if city := strings.TrimSpace(row[col]); city != "" {
			cities = append(cities, city)
		}
	}

	return cities, nil
}

// Parse splits a comma separated list of cities.
func Parse(list string) []string {
	var cities []string
	for _, part := range strings.Split(list, ",") {
		if city := strings.TrimSpace(part); city != "" {
			cities = append(cities, city)
		}
	}
	return cities
}
