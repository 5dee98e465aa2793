package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/maltedev/gmaps-poi-scraper/internal/models"
)

const upsertPlace = `
	INSERT INTO places (
		source_url, city, place, overview, category, address,
		price, rating, review_count, latitude, longitude, run_id, scraped_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (source_url) DO UPDATE SET
		city = EXCLUDED.city,
		place = EXCLUDED.place,
		overview = EXCLUDED.overview,
		category = EXCLUDED.category,
		address = EXCLUDED.address,
		price = EXCLUDED.price,
		rating = EXCLUDED.rating,
		review_count = EXCLUDED.review_count,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		run_id = EXCLUDED.run_id,
		scraped_at = EXCLUDED.scraped_at,
		updated_at = CURRENT_TIMESTAMP`

// SavePlaces upserts places keyed on their source URL and returns how many
// rows were written. Places without a source URL are skipped.
func (db *DB) SavePlaces(ctx context.Context, runID string, places []models.Place) (int, error) {
	if len(places) == 0 {
		return 0, nil
	}

	total := 0
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertPlace)
		if err != nil {
			return fmt.Errorf("failed to prepare upsert: %w", err)
		}
		defer stmt.Close()

		for i := range places {
			p := &places[i]
			if p.SourceURL == "" {
				continue
			}

			scrapedAt := p.ScrapedAt
			if scrapedAt.IsZero() {
				scrapedAt = time.Now().UTC()
			}

			if _, err := stmt.ExecContext(ctx,
				p.SourceURL,
				p.City,
				nullString(p.Place),
				nullString(p.Overview),
				nullString(p.Category),
				nullString(p.Address),
				p.Price.String(),
				nullString(p.Rating),
				nullString(p.ReviewCount),
				nullFloat(p.Latitude),
				nullFloat(p.Longitude),
				runID,
				scrapedAt,
			); err != nil {
				return fmt.Errorf("failed to upsert place %q: %w", p.SourceURL, err)
			}
			total++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}

// RecordCityRun stores the outcome of one city within a run.
func (db *DB) RecordCityRun(ctx context.Context, runID, city, status string, places int, cause error) error {
	query := `
		INSERT INTO city_runs (run_id, city, status, places, error)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id, city) DO UPDATE SET
			status = EXCLUDED.status,
			places = EXCLUDED.places,
			error = EXCLUDED.error,
			updated_at = CURRENT_TIMESTAMP`

	var errMsg sql.NullString
	if cause != nil {
		errMsg = sql.NullString{String: cause.Error(), Valid: true}
	}

	if _, err := db.db.ExecContext(ctx, query, runID, city, status, places, errMsg); err != nil {
		return fmt.Errorf("failed to record city run: %w", err)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(s *string) sql.NullFloat64 {
	if s == nil {
		return sql.NullFloat64{}
	}
	f, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}
