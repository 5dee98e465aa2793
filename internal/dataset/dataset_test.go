package dataset

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/maltedev/gmaps-poi-scraper/internal/models"
)

func newTestWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	dir := t.TempDir()
	return NewWriter(dir, slog.New(slog.NewTextHandler(io.Discard, nil))), dir
}

func place(name, price, lat, lng string) models.Place {
	p := models.Place{
		Place:     models.StringPtr(name),
		Category:  models.StringPtr("Tourist attraction"),
		City:      "Bandung",
		Latitude:  models.StringPtr(lat),
		Longitude: models.StringPtr(lng),
	}
	if price == "" {
		p.Price = models.FreePrice()
	} else {
		p.Price = models.Price{Amount: 50000, Text: price, Numeric: true}
	}
	return p
}

func TestFileName(t *testing.T) {
	tests := []struct {
		city string
		want string
	}{
		{"Bandung", "dataset_bandung.xlsx"},
		{"bandung", "dataset_bandung.xlsx"},
		{"DKI Jakarta", "dataset_dki jakarta.xlsx"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FileName(tt.city))
	}
}

func TestDedupe(t *testing.T) {
	rows := [][]string{
		{"a", "1"},
		{"b", "2"},
		{"a", "1"},
		{"a", "2"},
		{"b", "2"},
	}

	got := Dedupe(rows)

	assert.Equal(t, [][]string{{"a", "1"}, {"b", "2"}, {"a", "2"}}, got)
}

func TestWriteEmptyBatchIsNoop(t *testing.T) {
	w, dir := newTestWriter(t)

	result, err := w.Write("Bandung", nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
	assert.Nil(t, result)

	_, statErr := os.Stat(filepath.Join(dir, "dataset_bandung.xlsx"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteEmptyBatchKeepsExistingFile(t *testing.T) {
	w, _ := newTestWriter(t)

	_, err := w.Write("Bandung", []models.Place{place("Gedung Sate", "", "-6.9025", "107.6188")})
	require.NoError(t, err)

	before, err := os.ReadFile(w.Path("Bandung"))
	require.NoError(t, err)

	_, err = w.Write("Bandung", []models.Place{})
	assert.ErrorIs(t, err, ErrEmptyBatch)

	after, err := os.ReadFile(w.Path("Bandung"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestWriteCreatesFileWithHeader(t *testing.T) {
	w, dir := newTestWriter(t)
	places := []models.Place{
		place("Gedung Sate", "", "-6.9025", "107.6188"),
		place("Kawah Putih", "Rp 50.000", "-7.1662", "107.4021"),
	}

	result, err := w.Write("Bandung", places)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "dataset_bandung.xlsx"), result.Path)
	assert.Equal(t, 0, result.Existing)
	assert.Equal(t, 2, result.Added)
	assert.Equal(t, 2, result.Total)

	f, err := excelize.OpenFile(result.Path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, models.Columns, rows[0])
	assert.Equal(t, "Gedung Sate", rows[1][0])
	assert.Equal(t, "Bandung", rows[1][4])
	assert.Equal(t, "0", rows[1][models.PriceColumn])
	assert.Equal(t, "50000", rows[2][models.PriceColumn])

	priceCell, err := excelize.CoordinatesToCellName(models.PriceColumn+1, 3)
	require.NoError(t, err)
	cellType, err := f.GetCellType(f.GetSheetName(0), priceCell)
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, cellType)
	assert.NotEqual(t, excelize.CellTypeInlineString, cellType)
}

func TestWriteMergeIsIdempotent(t *testing.T) {
	w, _ := newTestWriter(t)
	batch := []models.Place{
		place("Gedung Sate", "", "-6.9025", "107.6188"),
		place("Kawah Putih", "Rp 50.000", "-7.1662", "107.4021"),
	}

	_, err := w.Write("Bandung", batch)
	require.NoError(t, err)

	result, err := w.Write("Bandung", batch)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Existing)
	assert.Equal(t, 0, result.Added)
	assert.Equal(t, 2, result.Total)

	rows, err := ReadRows(result.Path)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestWriteMergeKeepsExistingFirst(t *testing.T) {
	w, _ := newTestWriter(t)

	_, err := w.Write("Bandung", []models.Place{place("Gedung Sate", "", "-6.9025", "107.6188")})
	require.NoError(t, err)

	result, err := w.Write("Bandung", []models.Place{
		place("Braga", "", "-6.9175", "107.6096"),
		place("Gedung Sate", "", "-6.9025", "107.6188"),
		place("Braga", "", "-6.9175", "107.6096"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)

	rows, err := ReadRows(result.Path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Gedung Sate", rows[0][0])
	assert.Equal(t, "Braga", rows[1][0])
}

func TestWriteNilFieldsAreEmptyCells(t *testing.T) {
	w, _ := newTestWriter(t)
	sparse := models.Place{Place: models.StringPtr("Curug Cimahi"), City: "Bandung", Price: models.FreePrice()}

	result, err := w.Write("Bandung", []models.Place{sparse})
	require.NoError(t, err)

	rows, err := ReadRows(result.Path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"Curug Cimahi", "", "", "", "Bandung", "0", "", "", "", ""}, rows[0])
}

func TestReadRowsMatchesColumnsByHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dataset_bandung.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]string{"City", "Place"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]string{"Bandung", "Braga"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	rows, err := ReadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Braga", rows[0][0])
	assert.Equal(t, "Bandung", rows[0][4])
}

func TestReadRowsMissingFile(t *testing.T) {
	_, err := ReadRows(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	w, dir := newTestWriter(t)

	_, err := w.Write("Bandung", []models.Place{place("Gedung Sate", "", "-6.9025", "107.6188")})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "dataset_bandung.xlsx", entries[0].Name())
}

func TestWriteKeepsFileMode(t *testing.T) {
	w, dir := newTestWriter(t)
	path := filepath.Join(dir, "dataset_bandung.xlsx")

	_, err := w.Write("Bandung", []models.Place{place("Gedung Sate", "", "-6.9025", "107.6188")})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	require.NoError(t, os.Chmod(path, 0o640))
	_, err = w.Write("Bandung", []models.Place{place("Kawah Putih", "Rp 50.000", "-7.1662", "107.4021")})
	require.NoError(t, err)

	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}
