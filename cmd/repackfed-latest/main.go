// Command repackfed-latest prints the newest releases from the site feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pevans/repackfed/config"
	"github.com/pevans/repackfed/discovery"
	"github.com/pevans/repackfed/logging"
	"github.com/pevans/repackfed/repack"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config", getEnv("REPACKFED_CONFIG", ""), "Path to config file, defaults to ~/.repackfed/config.yaml (REPACKFED_CONFIG)")
	limit := flag.Int("limit", 0, "Maximum number of releases to print, 0 uses latest_limit from the config")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *limit > 0 {
		cfg.Crawl.LatestLimit = *limit
	}

	feedURL := cfg.Profile.ListConfig.FeedURL
	if feedURL == "" {
		fmt.Fprintln(os.Stderr, "Error: profile has no feed_url")
		os.Exit(1)
	}

	log := logging.New(cfg.Logging.Level)
	fetcher := discovery.NewFetcher(cfg.Profile, cfg.Crawl.Timeout, log)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Crawl.Timeout)
	defer cancel()

	records, err := fetcher.FetchLatest(ctx, feedURL, cfg.Profile.ArticleConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to fetch latest releases: %v\n", err)
		os.Exit(1)
	}

	printLatest(os.Stdout, records, cfg.Crawl.LatestLimit)
}

// printLatest prints a short summary of at most limit records.
func printLatest(w io.Writer, records []repack.Record, limit int) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No releases found.")
		return
	}

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	for _, record := range records {
		fmt.Fprintf(w, "Title: %s\n", record.Title)
		fmt.Fprintf(w, "Date Published: %s\n", record.Date)
		fmt.Fprintf(w, "Categories: %d\n", len(record.Categories))
		fmt.Fprintf(w, "Download Links: %d\n", len(record.DownloadLinks))
		fmt.Fprintf(w, "Screenshots: %d\n", len(record.Screenshots))
		fmt.Fprintf(w, "Features: %d\n", len(record.Features))
		fmt.Fprintln(w)
	}
}
