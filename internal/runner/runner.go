package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/gmaps-poi-scraper/internal/dataset"
	"github.com/maltedev/gmaps-poi-scraper/internal/events"
	"github.com/maltedev/gmaps-poi-scraper/internal/models"
	"github.com/maltedev/gmaps-poi-scraper/internal/progress"
	"github.com/maltedev/gmaps-poi-scraper/internal/queue"
	"github.com/maltedev/gmaps-poi-scraper/internal/scraper"
)

type CityScraper interface {
	ScrapeCity(ctx context.Context, city string) (*scraper.Result, error)
}

type DatasetWriter interface {
	Write(city string, places []models.Place) (*dataset.WriteResult, error)
}

type PlaceStore interface {
	SavePlaces(ctx context.Context, runID string, places []models.Place) (int, error)
	RecordCityRun(ctx context.Context, runID, city, status string, places int, cause error) error
}

type EventPublisher interface {
	PublishPlacesScraped(ctx context.Context, payload *events.PlacesScrapedPayload) (string, error)
}

type Options struct {
	// AbortOnNavFailure stops the whole run when a city's search page cannot be loaded.
	AbortOnNavFailure bool
	// CityRetries is how many times a failed city is put back at the end of the queue.
	CityRetries int
	Resume      bool
}

type Summary struct {
	RunID        string
	Cities       int
	Completed    int
	Failed       int
	Skipped      int
	Places       int
	Written      int
	SinkErrors   int
	FailedCities []string
	Duration     time.Duration
}

type Runner struct {
	scraper   CityScraper
	writer    DatasetWriter
	tracker   *progress.Tracker
	store     PlaceStore
	publisher EventPublisher
	opts      Options
	logger    *slog.Logger
	newRunID  func() string
}

type Option func(*Runner)

func WithTracker(t *progress.Tracker) Option {
	return func(r *Runner) { r.tracker = t }
}

func WithStore(s PlaceStore) Option {
	return func(r *Runner) { r.store = s }
}

func WithPublisher(p EventPublisher) Option {
	return func(r *Runner) { r.publisher = p }
}

func New(s CityScraper, w DatasetWriter, opts Options, logger *slog.Logger, options ...Option) *Runner {
	r := &Runner{
		scraper:  s,
		writer:   w,
		opts:     opts,
		logger:   logger.With("component", "runner"),
		newRunID: func() string { return uuid.New().String() },
	}
	for _, o := range options {
		o(r)
	}
	return r
}

// Run scrapes the cities one after another. It returns an error only when the
// run was aborted; per-city failures are reported in the summary.
func (r *Runner) Run(ctx context.Context, cities []string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: r.newRunID(), Cities: len(cities)}
	logger := r.logger.With("run_id", summary.RunID)

	defer func() {
		summary.Duration = time.Since(start)
	}()

	if r.tracker != nil {
		if err := r.tracker.Register(cities); err != nil {
			logger.Warn("failed to save progress", "error", err)
		}
		if r.opts.Resume {
			remaining := r.tracker.Remaining(cities)
			summary.Skipped = len(cities) - len(remaining)
			if summary.Skipped > 0 {
				logger.Info("resuming run", "skipped", summary.Skipped, "remaining", len(remaining))
			}
			cities = remaining
		}
	}

	q := queue.NewCityQueue(cities)
	defer q.Close()

	logger.Info("starting run", "cities", q.Size())

	for {
		if err := ctx.Err(); err != nil {
			logger.Info("run cancelled", "remaining", q.Size())
			return summary, err
		}

		task, err := q.Pop()
		if err != nil {
			break
		}

		abort := r.processCity(ctx, q, task, summary, logger)
		if abort != nil {
			return summary, abort
		}
	}

	logger.Info("run finished",
		"completed", summary.Completed,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"places", summary.Places,
	)

	return summary, nil
}

// processCity scrapes and persists one city. A non-nil return aborts the run.
func (r *Runner) processCity(ctx context.Context, q *queue.CityQueue, task *queue.Task, summary *Summary, logger *slog.Logger) error {
	city := task.City
	logger = logger.With("city", city)
	logger.Info("processing city", "attempt", task.Attempt+1)

	result, err := r.scraper.ScrapeCity(ctx, city)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var navErr *scraper.NavigationError
		if errors.As(err, &navErr) && r.opts.AbortOnNavFailure {
			r.markFailed(ctx, summary, city, err, logger)
			return fmt.Errorf("aborting run at %s: %w", city, err)
		}

		if task.Attempt < r.opts.CityRetries {
			logger.Warn("city failed, requeueing", "error", err, "attempt", task.Attempt+1)
			if qErr := q.Requeue(task, err); qErr == nil {
				return nil
			}
		}

		r.markFailed(ctx, summary, city, err, logger)
		return nil
	}

	summary.Places += len(result.Places)

	if len(result.Places) == 0 {
		if result.WalkErr != nil {
			r.markFailed(ctx, summary, city, result.WalkErr, logger)
			return nil
		}
		logger.Info("nothing to write", "error", scraper.ErrNoResults)
		r.markCompleted(ctx, summary, city, 0, logger)
		return nil
	}

	written, err := r.writer.Write(city, result.Places)
	if err != nil {
		if errors.Is(err, dataset.ErrEmptyBatch) {
			r.markCompleted(ctx, summary, city, 0, logger)
			return nil
		}
		r.markFailed(ctx, summary, city, fmt.Errorf("failed to write dataset: %w", err), logger)
		return nil
	}

	summary.Written += written.Added
	r.deliver(ctx, summary, city, written, result.Places, logger)
	r.markCompleted(ctx, summary, city, len(result.Places), logger)

	return nil
}

// deliver hands a written batch to the optional sinks. Sink failures are logged only.
func (r *Runner) deliver(ctx context.Context, summary *Summary, city string, written *dataset.WriteResult, places []models.Place, logger *slog.Logger) {
	if r.store != nil {
		n, err := r.store.SavePlaces(ctx, summary.RunID, places)
		if err != nil {
			summary.SinkErrors++
			logger.Error("failed to save places to database", "error", err)
		} else {
			logger.Debug("places saved to database", "count", n)
		}
	}

	if r.publisher != nil {
		payload := events.NewPlacesScrapedPayload(summary.RunID, city, written.Path, written.Added, places)
		if _, err := r.publisher.PublishPlacesScraped(ctx, payload); err != nil {
			summary.SinkErrors++
			logger.Error("failed to publish event", "error", err)
		}
	}
}

func (r *Runner) markCompleted(ctx context.Context, summary *Summary, city string, places int, logger *slog.Logger) {
	summary.Completed++

	if r.tracker != nil {
		if err := r.tracker.MarkCompleted(city, summary.RunID, places); err != nil {
			logger.Warn("failed to save progress", "error", err)
		}
	}
	r.recordRun(ctx, summary, city, progress.StatusCompleted, places, nil, logger)

	logger.Info("city completed", "places", places)
}

func (r *Runner) markFailed(ctx context.Context, summary *Summary, city string, cause error, logger *slog.Logger) {
	summary.Failed++
	summary.FailedCities = append(summary.FailedCities, city)

	if r.tracker != nil {
		if err := r.tracker.MarkFailed(city, summary.RunID, cause); err != nil {
			logger.Warn("failed to save progress", "error", err)
		}
	}
	r.recordRun(ctx, summary, city, progress.StatusFailed, 0, cause, logger)

	logger.Error("city failed", "error", cause)
}

func (r *Runner) recordRun(ctx context.Context, summary *Summary, city, status string, places int, cause error, logger *slog.Logger) {
	if r.store == nil {
		return
	}
	if err := r.store.RecordCityRun(ctx, summary.RunID, city, status, places, cause); err != nil {
		summary.SinkErrors++
		logger.Error("failed to record city run", "error", err)
	}
}
