package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/gmaps-poi-scraper/internal/models"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypePlacesScraped is published once per city after its dataset was written
	EventTypePlacesScraped EventType = "PLACES_SCRAPED"
)

const DefaultStream = "stream:places"

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

type PlaceSummary struct {
	Place     string   `json:"place"`
	Category  string   `json:"category,omitempty"`
	SourceURL string   `json:"source_url"`
	Price     string   `json:"price"`
	Free      bool     `json:"free"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// PlacesScrapedPayload represents the payload for PLACES_SCRAPED event
type PlacesScrapedPayload struct {
	EventID     string         `json:"event_id"`
	EventType   string         `json:"event_type"`
	Timestamp   time.Time      `json:"timestamp"`
	RunID       string         `json:"run_id"`
	City        string         `json:"city"`
	DatasetPath string         `json:"dataset_path"`
	PlaceCount  int            `json:"place_count"`
	Added       int            `json:"added"`
	Places      []PlaceSummary `json:"places"`
	Source      string         `json:"source"`
}

// NewPlacesScrapedPayload summarises a city's batch.
func NewPlacesScrapedPayload(runID, city, datasetPath string, added int, places []models.Place) *PlacesScrapedPayload {
	summaries := make([]PlaceSummary, 0, len(places))
	for i := range places {
		p := &places[i]
		s := PlaceSummary{
			SourceURL: p.SourceURL,
			Price:     p.Price.String(),
			Free:      p.Price.IsFree(),
		}
		if p.HasCoordinates() {
			s.Latitude = parseCoord(p.Latitude)
			s.Longitude = parseCoord(p.Longitude)
		}
		if p.Place != nil {
			s.Place = *p.Place
		}
		if p.Category != nil {
			s.Category = *p.Category
		}
		summaries = append(summaries, s)
	}

	return &PlacesScrapedPayload{
		RunID:       runID,
		City:        city,
		DatasetPath: datasetPath,
		PlaceCount:  len(places),
		Added:       added,
		Places:      summaries,
	}
}

// Publisher writes scrape events to a Redis stream
type Publisher struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
	now    func() time.Time
}

func NewPublisher(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &Publisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
		now:    time.Now,
	}
}

// PublishPlacesScraped publishes a PLACES_SCRAPED event and returns the stream entry id
func (p *Publisher) PublishPlacesScraped(ctx context.Context, payload *PlacesScrapedPayload) (string, error) {
	// Set event metadata
	if payload.EventID == "" {
		payload.EventID = uuid.New().String()
	}
	if payload.EventType == "" {
		payload.EventType = string(EventTypePlacesScraped)
	}
	if payload.Timestamp.IsZero() {
		payload.Timestamp = p.now()
	}
	if payload.Source == "" {
		payload.Source = "gmaps-scraper"
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":         string(data),
			"type":         payload.EventType,
			"event_id":     payload.EventID,
			"aggregate_id": payload.City,
			"run_id":       payload.RunID,
			"timestamp":    fmt.Sprintf("%d", payload.Timestamp.UnixNano()),
		},
	}

	id, err := p.redis.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Info("event published",
		"type", payload.EventType,
		"event_id", payload.EventID,
		"city", payload.City,
		"stream", p.stream,
		"stream_id", id,
	)

	return id, nil
}

func (p *Publisher) Close() error {
	return p.redis.Close()
}

func parseCoord(s *string) *float64 {
	if s == nil {
		return nil
	}
	f, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return nil
	}
	return &f
}
