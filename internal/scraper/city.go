package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/gmaps-poi-scraper/internal/parser"
	"github.com/maltedev/gmaps-poi-scraper/internal/ratelimit"
)

type CityScraper struct {
	open   PageOpener
	parser parser.Parser
	pacer  ratelimit.Pacer
	opts   Options
	logger *slog.Logger
}

func NewCityScraper(open PageOpener, p parser.Parser, pacer ratelimit.Pacer, opts Options, logger *slog.Logger) *CityScraper {
	def := DefaultOptions()
	if opts.MaxRetries < 1 {
		opts.MaxRetries = def.MaxRetries
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = def.NavigationTimeout
	}
	if opts.DetailTimeout <= 0 {
		opts.DetailTimeout = def.DetailTimeout
	}
	if opts.FeedTimeout <= 0 {
		opts.FeedTimeout = def.FeedTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}

	return &CityScraper{
		open:   open,
		parser: p,
		pacer:  pacer,
		opts:   opts,
		logger: logger.With("component", "city_scraper"),
	}
}

// ScrapeCity loads the search page for a city and walks its result feed.
// The returned error is only set when the page could not be opened or loaded;
// failures during the walk are reported in Result.WalkErr.
func (s *CityScraper) ScrapeCity(ctx context.Context, city string) (*Result, error) {
	searchURL := SearchURL(city)
	logger := s.logger.With("city", city)

	page, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	if err := s.navigate(ctx, page, searchURL, logger); err != nil {
		return nil, err
	}

	if err := sleep(ctx, s.opts.SettleDelay); err != nil {
		return nil, err
	}

	result := &Result{City: city, SearchURL: searchURL}

	if !s.opts.SkipLocale {
		result.LocaleSet = s.switchToEnglish(ctx, page, logger)
	}

	w := newWalker(page, s.parser, s.pacer, s.opts, city, logger)
	walkErr := w.run(ctx)
	if walkErr != nil {
		logger.Error("error during clicking or extracting data", "error", walkErr, "collected", len(w.places))
	}

	result.Places = w.places
	result.Clicked = w.clicked
	result.Skipped = w.skipped
	result.WalkErr = walkErr

	logger.Info("city walk finished", "places", len(result.Places), "clicked", result.Clicked, "skipped", result.Skipped)

	return result, nil
}

func (s *CityScraper) navigate(ctx context.Context, page Page, url string, logger *slog.Logger) error {
	var lastErr error

	for attempt := 1; attempt <= s.opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if attempt > 1 {
			logger.Info("retrying navigation", "attempt", attempt, "url", url)
			if err := sleep(ctx, time.Duration(attempt-1)*s.opts.RetryBackoff); err != nil {
				return err
			}
		}

		err := page.Goto(url, s.opts.NavigationTimeout)
		if err == nil {
			err = page.WaitForSelector(bodySelector, s.opts.NavigationTimeout)
		}
		if err == nil {
			return nil
		}

		lastErr = err
		logger.Error("navigation failed", "error", err, "attempt", attempt, "url", url)
	}

	return &NavigationError{URL: url, Attempts: s.opts.MaxRetries, Err: lastErr}
}

type localeStep struct {
	name     string
	selector string
	delay    time.Duration
}

// switchToEnglish opens the menu, the language settings and picks English.
// Each step is optional: a missing element ends the sequence without error.
func (s *CityScraper) switchToEnglish(ctx context.Context, page Page, logger *slog.Logger) bool {
	steps := []localeStep{
		{name: "menu button", selector: menuButtonSelector, delay: s.opts.LocaleDelay},
		{name: "language button", selector: languageButtonSelector, delay: s.opts.LocaleDelay / 2},
		{name: "English option", selector: englishOptionSelector, delay: s.opts.SettleDelay},
	}

	for _, step := range steps {
		elements, err := page.QueryAll(step.selector)
		if err != nil {
			logger.Warn("error during language change", "step", step.name, "error", err)
			return false
		}
		if len(elements) == 0 {
			logger.Info(step.name + " not found, skipping language change")
			return false
		}

		logger.Debug("clicking locale step", "step", step.name)
		if err := elements[0].Click(); err != nil {
			logger.Warn("error during language change", "step", step.name, "error", err)
			return false
		}

		if err := sleep(ctx, step.delay); err != nil {
			return false
		}
	}

	logger.Info("switched interface language to English")
	return true
}
