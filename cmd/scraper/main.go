package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/gmaps-poi-scraper/internal/browser"
	"github.com/maltedev/gmaps-poi-scraper/internal/cities"
	"github.com/maltedev/gmaps-poi-scraper/internal/config"
	"github.com/maltedev/gmaps-poi-scraper/internal/database"
	"github.com/maltedev/gmaps-poi-scraper/internal/dataset"
	"github.com/maltedev/gmaps-poi-scraper/internal/events"
	"github.com/maltedev/gmaps-poi-scraper/internal/parser"
	"github.com/maltedev/gmaps-poi-scraper/internal/progress"
	"github.com/maltedev/gmaps-poi-scraper/internal/ratelimit"
	"github.com/maltedev/gmaps-poi-scraper/internal/runner"
	"github.com/maltedev/gmaps-poi-scraper/internal/scraper"
	"github.com/maltedev/gmaps-poi-scraper/pkg/logger"
)

func main() {
	var (
		inputFile = flag.String("input", "", "Spreadsheet with the list of cities (overrides SCRAPER_INPUT_FILE)")
		column    = flag.String("column", "", "Header of the city column (overrides SCRAPER_INPUT_COLUMN)")
		outputDir = flag.String("out", "", "Directory for dataset_<city>.xlsx files (overrides SCRAPER_OUTPUT_DIR)")
		cityList  = flag.String("cities", "", "Comma-separated list of cities; skips the input spreadsheet")
		headless  = flag.Bool("headless", true, "Run browser in headless mode")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *inputFile != "" {
		cfg.Scraper.InputFile = *inputFile
	}
	if *column != "" {
		cfg.Scraper.InputColumn = *column
	}
	if *outputDir != "" {
		cfg.Scraper.OutputDir = *outputDir
	}
	if *cityList != "" {
		cfg.Scraper.Cities = cities.Parse(*cityList)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting Google Maps POI scraper")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	cityNames := cfg.Scraper.Cities
	if len(cityNames) == 0 {
		cityNames, err = cities.ReadColumn(cfg.Scraper.InputFile, cfg.Scraper.InputSheet, cfg.Scraper.InputColumn)
		if err != nil {
			logger.Error("Failed to read cities", "file", cfg.Scraper.InputFile, "error", err)
			os.Exit(1)
		}
	}
	if len(cityNames) == 0 {
		fmt.Println("No cities to process. Use -cities or -input to specify them.")
		flag.Usage()
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.Scraper.OutputDir, 0o755); err != nil {
		logger.Error("Failed to create output directory", "dir", cfg.Scraper.OutputDir, "error", err)
		os.Exit(1)
	}

	if flagSet(flag.CommandLine, "headless") {
		cfg.Browser.Headless = *headless
	}

	b, err := browser.New(&browser.Options{
		Headless:       cfg.Browser.Headless,
		ExecutablePath: cfg.Browser.ExecutablePath,
		Timeout:        cfg.Browser.Timeout,
		UserAgent:      cfg.Browser.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
	})
	if err != nil {
		logger.Error("Failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	openPage := func() (scraper.Page, error) {
		page, err := b.OpenPage()
		if err != nil {
			return nil, err
		}
		return page, nil
	}

	pacer := ratelimit.NewAdaptivePacer(cfg.Scraper.ClickDelayMin, cfg.Scraper.ClickDelayMax)

	cityScraper := scraper.NewCityScraper(openPage, parser.NewMapsParser(), pacer, scraper.Options{
		MaxRetries:        cfg.Scraper.MaxRetries,
		RetryBackoff:      time.Second,
		NavigationTimeout: cfg.Scraper.NavigationTimeout,
		SettleDelay:       cfg.Scraper.SettleDelay,
		LocaleDelay:       cfg.Scraper.LocaleDelay,
		DetailTimeout:     cfg.Scraper.DetailTimeout,
		FeedTimeout:       cfg.Scraper.FeedTimeout,
		PollInterval:      cfg.Scraper.PollInterval,
		MaxPlaces:         cfg.Scraper.MaxPlaces,
	}, logger)

	progressFile := cfg.Scraper.ProgressFile
	if !filepath.IsAbs(progressFile) {
		progressFile = filepath.Join(cfg.Scraper.OutputDir, progressFile)
	}
	tracker, err := progress.NewTracker(progressFile)
	if err != nil {
		logger.Error("Failed to load progress", "file", progressFile, "error", err)
		os.Exit(1)
	}

	options := []runner.Option{runner.WithTracker(tracker)}
	var closers []func() error

	if cfg.Database.Enabled() {
		db, err := database.New(ctx, database.Config{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			Database:    cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			MaxConns:    5,
			MaxConnLife: 30 * time.Minute,
		})
		if err != nil {
			logger.Warn("Database sink disabled", "error", err)
		} else {
			closers = append(closers, db.Close)
			options = append(options, runner.WithStore(db))
			logger.Info("Database sink enabled", "host", cfg.Database.Host)
		}
	}

	if cfg.Redis.Enabled() {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis sink disabled", "addr", cfg.Redis.Addr, "error", err)
			redisClient.Close()
		} else {
			publisher := events.NewPublisher(redisClient, cfg.Redis.Stream, logger)
			closers = append(closers, publisher.Close)
			options = append(options, runner.WithPublisher(publisher))
			logger.Info("Redis sink enabled", "addr", cfg.Redis.Addr, "stream", cfg.Redis.Stream)
		}
	}

	r := runner.New(cityScraper, dataset.NewWriter(cfg.Scraper.OutputDir, logger), runner.Options{
		AbortOnNavFailure: cfg.Scraper.AbortOnNavFailure,
		CityRetries:       cfg.Scraper.CityRetries,
		Resume:            cfg.Scraper.Resume,
	}, logger, options...)

	logger.Info("Starting scraping", "cities", len(cityNames), "output_dir", cfg.Scraper.OutputDir)

	summary, err := r.Run(ctx, cityNames)

	logger.Info("Scraping finished",
		"run_id", summary.RunID,
		"completed", summary.Completed,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"places", summary.Places,
		"new_rows", summary.Written,
		"duration", summary.Duration,
		"progress", tracker.Stats(),
		"failed_cities", tracker.Failed(),
	)

	closeAll(closers, logger)

	if err != nil {
		logger.Error("Run aborted", "error", err)
		b.Close()
		os.Exit(1)
	}
}

// flagSet reports whether the named flag was given on the command line.
func flagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func closeAll(closers []func() error, logger *slog.Logger) {
	for _, c := range closers {
		if err := c(); err != nil {
			logger.Warn("Failed to close sink", "error", err)
		}
	}
}
