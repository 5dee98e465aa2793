package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maltedev/gmaps-poi-scraper/internal/browser"
	"github.com/maltedev/gmaps-poi-scraper/internal/models"
	"github.com/maltedev/gmaps-poi-scraper/internal/parser"
	"github.com/maltedev/gmaps-poi-scraper/internal/ratelimit"
)

// feedback is implemented by pacers that adapt to failures.
type feedback interface {
	RecordSuccess()
	RecordError()
}

// walker scans the result feed, clicking every anchor it has not seen during
// this city's run.
type walker struct {
	page    Page
	parser  parser.Parser
	pacer   ratelimit.Pacer
	opts    Options
	city    string
	logger  *slog.Logger
	visited map[string]struct{}
	places  []models.Place
	clicked int
	skipped int
	lastURL string
}

func newWalker(page Page, p parser.Parser, pacer ratelimit.Pacer, opts Options, city string, logger *slog.Logger) *walker {
	return &walker{
		page:    page,
		parser:  p,
		pacer:   pacer,
		opts:    opts,
		city:    city,
		logger:  logger,
		visited: make(map[string]struct{}),
		lastURL: page.URL(),
	}
}

func (w *walker) run(ctx context.Context) error {
	for {
		outcome, err := w.scan(ctx)
		if outcome == Halt {
			return err
		}
	}
}

// scan clicks through one snapshot of the feed. It halts when the feed is
// empty or when nothing new appeared since the previous scan.
func (w *walker) scan(ctx context.Context) (Outcome, error) {
	anchors, err := w.page.QueryAll(resultAnchorSelector)
	if err != nil {
		return Halt, fmt.Errorf("failed to query result links: %w", err)
	}

	if len(anchors) == 0 {
		w.logger.Info("no more clickable items found")
		return Halt, nil
	}

	fresh := 0
	for i, anchor := range anchors {
		if w.limitReached() {
			w.logger.Info("place limit reached", "limit", w.opts.MaxPlaces)
			return Halt, nil
		}

		href, err := anchor.Attribute("href")
		if err != nil {
			w.logger.Warn("failed to read result link", "index", i, "error", err)
			w.skipped++
			continue
		}
		if href == "" {
			continue
		}
		if _, seen := w.visited[href]; seen {
			continue
		}
		fresh++

		outcome, err := w.visit(ctx, i, href, anchor)
		switch outcome {
		case Halt:
			return Halt, err
		case RecoveredSkip:
			w.skipped++
			w.logger.Warn("skipped result", "index", i+1, "url", href, "error", err)
			if fb, ok := w.pacer.(feedback); ok {
				fb.RecordError()
			}
		case Continue:
			if fb, ok := w.pacer.(feedback); ok {
				fb.RecordSuccess()
			}
		}
	}

	if fresh == 0 {
		w.logger.Info("no new clickable items found")
		return Halt, nil
	}

	if err := w.page.ScrollToBottom(feedSelector); err != nil {
		w.logger.Debug("failed to scroll result feed", "error", err)
	}

	// Results load asynchronously after a scroll.
	err = WaitUntil(ctx, w.opts.FeedTimeout, w.opts.PollInterval, w.hasUnvisited)
	switch {
	case errors.Is(err, ErrWaitTimeout):
		w.logger.Info("no new clickable items found after scroll")
		return Halt, nil
	case err != nil:
		return Halt, err
	}

	return Continue, nil
}

// hasUnvisited reports whether the feed shows an anchor not clicked yet.
func (w *walker) hasUnvisited() (bool, error) {
	anchors, err := w.page.QueryAll(resultAnchorSelector)
	if err != nil {
		return false, err
	}
	for _, anchor := range anchors {
		href, err := anchor.Attribute("href")
		if err != nil || href == "" {
			continue
		}
		if _, seen := w.visited[href]; !seen {
			return true, nil
		}
	}
	return false, nil
}

func (w *walker) visit(ctx context.Context, index int, href string, anchor browser.Element) (Outcome, error) {
	if w.pacer != nil {
		if err := w.pacer.Wait(ctx); err != nil {
			return Halt, err
		}
	}

	w.logger.Info("clicking item", "index", index+1, "url", href)
	w.visited[href] = struct{}{}
	if err := anchor.Click(); err != nil {
		return Halt, fmt.Errorf("failed to click item %d: %w", index+1, err)
	}
	w.clicked++

	// A panel still showing under an unchanged URL belongs to the previous place.
	err := WaitUntil(ctx, w.opts.DetailTimeout, w.opts.PollInterval, w.detailReady)
	switch {
	case errors.Is(err, ErrWaitTimeout):
		return RecoveredSkip, fmt.Errorf("detail panel did not render: %w", err)
	case err != nil:
		return Halt, err
	}

	content, err := w.page.Content()
	if err != nil {
		return Halt, fmt.Errorf("failed to read page content: %w", err)
	}

	pageURL := w.page.URL()
	w.lastURL = pageURL

	place, err := w.parser.ParseDetailPanel(content, pageURL, w.city)
	if err != nil {
		return RecoveredSkip, err
	}
	place.SourceURL = href
	if !place.HasCoordinates() {
		w.logger.Warn("no coordinates in place url", "url", pageURL)
	}

	w.places = append(w.places, *place)
	w.logger.Info("extracted data", "place", place.Row(), "url", href)

	return Continue, nil
}

// detailReady reports whether a new detail panel replaced the previous page state.
func (w *walker) detailReady() (bool, error) {
	if w.page.URL() == w.lastURL {
		return false, nil
	}

	titles, err := w.page.QueryAll(detailReadySelector)
	if err != nil {
		return false, err
	}
	return len(titles) > 0, nil
}

func (w *walker) limitReached() bool {
	return w.opts.MaxPlaces > 0 && len(w.places) >= w.opts.MaxPlaces
}
