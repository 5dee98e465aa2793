package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/maltedev/gmaps-poi-scraper/internal/browser"
	"github.com/maltedev/gmaps-poi-scraper/internal/models"
)

const searchURLPrefix = "https://www.google.com/maps/search/destinasi+wisata+di+"

// Selectors for the Google Maps UI. XPath selectors are passed straight to playwright.
const (
	bodySelector           = "body"
	menuButtonSelector     = "//button[@aria-label='Menu']"
	languageButtonSelector = `//button[@class="aAaxGf T2ozWe"]`
	englishOptionSelector  = `//a[contains(@href, "hl=en")]`
	resultAnchorSelector   = "//div[@role='feed']//a[@aria-label and starts-with(@href, 'https://www.google.com/maps')]"
	feedSelector           = `div[role="feed"]`
	detailReadySelector    = "h1.DUwDvf"
)

var (
	ErrWaitTimeout = errors.New("condition not met before timeout")
	ErrNoResults   = errors.New("no clickable results")
)

// NavigationError is returned when the search page could not be loaded after
// every attempt.
type NavigationError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("failed to load %s after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// Page is the subset of a browser tab the scraper drives.
type Page interface {
	Goto(url string, timeout time.Duration) error
	WaitForSelector(selector string, timeout time.Duration) error
	QueryAll(selector string) ([]browser.Element, error)
	Content() (string, error)
	URL() string
	ScrollToBottom(cssSelector string) error
	Close() error
}

// PageOpener opens a fresh page for one city.
type PageOpener func() (Page, error)

// Outcome is the result of one walker step.
type Outcome int

const (
	Continue Outcome = iota
	Halt
	RecoveredSkip
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case Halt:
		return "halt"
	case RecoveredSkip:
		return "recovered_skip"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type Options struct {
	MaxRetries        int
	RetryBackoff      time.Duration
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	LocaleDelay       time.Duration
	DetailTimeout     time.Duration
	// FeedTimeout bounds the wait for new results after scrolling the feed.
	FeedTimeout  time.Duration
	PollInterval time.Duration
	MaxPlaces    int
	SkipLocale   bool
}

func DefaultOptions() Options {
	return Options{
		MaxRetries:        3,
		RetryBackoff:      time.Second,
		NavigationTimeout: 30 * time.Second,
		SettleDelay:       5 * time.Second,
		LocaleDelay:       2 * time.Second,
		DetailTimeout:     10 * time.Second,
		FeedTimeout:       5 * time.Second,
		PollInterval:      250 * time.Millisecond,
	}
}

// Result holds everything scraped for one city. WalkErr is set when the walk
// ended early; Places still holds what was collected before that.
type Result struct {
	City      string
	SearchURL string
	Places    []models.Place
	Clicked   int
	Skipped   int
	LocaleSet bool
	WalkErr   error
}

// SearchURL builds the tourist-destination search for a city.
func SearchURL(city string) string {
	query := url.QueryEscape(strings.ToLower(strings.TrimSpace(city)))
	return searchURLPrefix + query
}
