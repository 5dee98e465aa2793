package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/gmaps-poi-scraper/internal/models"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewWithConn(sqlDB), mock
}

func testPlaces() []models.Place {
	scrapedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return []models.Place{
		{
			Place:     models.StringPtr("Gedung Sate"),
			Category:  models.StringPtr("Historical landmark"),
			City:      "Bandung",
			Price:     models.FreePrice(),
			Rating:    models.StringPtr("4.7"),
			Latitude:  models.StringPtr("-6.9025"),
			Longitude: models.StringPtr("107.6188"),
			SourceURL: "https://www.google.com/maps/place/Gedung+Sate",
			ScrapedAt: scrapedAt,
		},
		{
			Place:     models.StringPtr("No URL"),
			City:      "Bandung",
			Price:     models.FreePrice(),
			ScrapedAt: scrapedAt,
		},
	}
}

func TestEnsureSchema(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS places").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, db.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePlaces(t *testing.T) {
	db, mock := newMockDB(t)
	places := testPlaces()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO places")
	prep.ExpectExec().
		WithArgs(
			"https://www.google.com/maps/place/Gedung+Sate",
			"Bandung",
			"Gedung Sate",
			nil,
			"Historical landmark",
			nil,
			"0",
			"4.7",
			nil,
			-6.9025,
			107.6188,
			"run-1",
			places[0].ScrapedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := db.SavePlaces(context.Background(), "run-1", places)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePlacesRollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO places")
	prep.ExpectExec().WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	n, err := db.SavePlaces(context.Background(), "run-1", testPlaces())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upsert place")
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePlacesEmptyBatch(t *testing.T) {
	db, mock := newMockDB(t)

	n, err := db.SavePlaces(context.Background(), "run-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordCityRun(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("INSERT INTO city_runs").
		WithArgs("run-1", "Medan", "failed", 0, "navigation failed").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO city_runs").
		WithArgs("run-1", "Bandung", "completed", 12, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, db.RecordCityRun(context.Background(), "run-1", "Medan", "failed", 0, errors.New("navigation failed")))
	require.NoError(t, db.RecordCityRun(context.Background(), "run-1", "Bandung", "completed", 12, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNullFloat(t *testing.T) {
	assert.False(t, nullFloat(nil).Valid)
	assert.False(t, nullFloat(models.StringPtr("north")).Valid)

	f := nullFloat(models.StringPtr("-6.9025"))
	assert.True(t, f.Valid)
	assert.Equal(t, -6.9025, f.Float64)
}
