// Command repackfed-scrape crawls the listing pages of a repack site and
// writes every extracted record to a JSON collection.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pevans/repackfed/config"
	"github.com/pevans/repackfed/discovery"
	"github.com/pevans/repackfed/history"
	"github.com/pevans/repackfed/logging"
	"github.com/pevans/repackfed/repack"
	"github.com/sirupsen/logrus"
)

// options holds the command line overrides. A field only replaces the
// config file value when its flag was given or its env var is set.
type options struct {
	configPath  string
	output      string
	historyDSN  string
	logLevel    string
	start       int
	end         int
	concurrency int
	timeout     time.Duration
	set         map[string]bool
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("repackfed-scrape", flag.ContinueOnError)

	opts := &options{set: map[string]bool{}}
	fs.StringVar(&opts.configPath, "config", getEnv("REPACKFED_CONFIG", ""), "Path to config file, defaults to ~/.repackfed/config.yaml (REPACKFED_CONFIG)")
	fs.StringVar(&opts.output, "output", getEnv("REPACKFED_OUTPUT", ""), "Path of the JSON collection to write (REPACKFED_OUTPUT)")
	fs.StringVar(&opts.historyDSN, "history", getEnv("REPACKFED_HISTORY_DSN", ""), "Path to run history database, empty disables it (REPACKFED_HISTORY_DSN)")
	fs.StringVar(&opts.logLevel, "log-level", getEnv("REPACKFED_LOG_LEVEL", ""), "Log level: debug, info, warn or error (REPACKFED_LOG_LEVEL)")
	fs.IntVar(&opts.start, "start", getEnvInt("REPACKFED_START_PAGE", 0), "First page to crawl (REPACKFED_START_PAGE)")
	fs.IntVar(&opts.end, "end", getEnvInt("REPACKFED_END_PAGE", 0), "Last page to crawl, inclusive; 0 discovers it (REPACKFED_END_PAGE)")
	fs.IntVar(&opts.concurrency, "concurrency", getEnvInt("REPACKFED_CONCURRENCY", 0), "Maximum number of pages fetched at once (REPACKFED_CONCURRENCY)")
	fs.DurationVar(&opts.timeout, "timeout", getEnvDuration("REPACKFED_FETCH_TIMEOUT", 0), "Timeout per page fetch (REPACKFED_FETCH_TIMEOUT)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		opts.set[f.Name] = true
	})
	for name, env := range map[string]string{
		"output":      "REPACKFED_OUTPUT",
		"history":     "REPACKFED_HISTORY_DSN",
		"log-level":   "REPACKFED_LOG_LEVEL",
		"start":       "REPACKFED_START_PAGE",
		"end":         "REPACKFED_END_PAGE",
		"concurrency": "REPACKFED_CONCURRENCY",
		"timeout":     "REPACKFED_FETCH_TIMEOUT",
	} {
		if os.Getenv(env) != "" {
			opts.set[name] = true
		}
	}

	return opts, nil
}

// apply copies the overrides onto cfg and revalidates it.
func (o *options) apply(cfg *config.FileConfig) error {
	if o.set["output"] {
		cfg.Output.Path = o.output
	}
	if o.set["history"] {
		cfg.History.DSN = o.historyDSN
	}
	if o.set["log-level"] {
		cfg.Logging.Level = o.logLevel
	}
	if o.set["start"] {
		cfg.Crawl.StartPage = o.start
	}
	if o.set["end"] {
		cfg.Crawl.EndPage = o.end
	}
	if o.set["concurrency"] {
		cfg.Crawl.Concurrency = o.concurrency
	}
	if o.set["timeout"] {
		cfg.Crawl.Timeout = o.timeout
	}

	return cfg.Validate()
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := opts.apply(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid options: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Logging.Level)

	// Setup signal handling so an interrupt stops dispatching new pages
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigChan
		log.WithField("signal", sig.String()).Warn("Received signal, finishing pages in flight")
		cancel()
	}()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Error("Scrape failed")
		os.Exit(1)
	}
}

// run discovers the page range, crawls it and writes the collection. Only a
// failure to write the collection is returned; page failures are logged and
// recorded in the run history.
func run(ctx context.Context, cfg *config.FileConfig, log *logrus.Logger) error {
	profile := cfg.Profile
	fetcher := discovery.NewFetcher(profile, cfg.Crawl.Timeout, log)

	discovered, found := 0, false
	if !profile.ListConfig.IsStatic() && cfg.Crawl.EndPage == 0 {
		discovered, found = fetcher.DiscoverTotalPages(ctx, profile.ListConfig.SeedURL())
	}
	if found && discovered < cfg.Crawl.StartPage {
		log.WithFields(logrus.Fields{
			"discovered": discovered,
			"start_page": cfg.Crawl.StartPage,
			"fallback":   cfg.Crawl.FallbackPages,
		}).Warn("Discovered page count is below the start page, using fallback_pages")
	}
	start, end := cfg.PageRange(discovered, found)

	log.WithFields(logrus.Fields{
		"profile":     profile.Name,
		"start_page":  start,
		"end_page":    end - 1,
		"concurrency": cfg.Crawl.Concurrency,
	}).Info("Starting crawl")

	crawler := discovery.NewCrawler(fetcher, profile, cfg.Crawl.Concurrency, log)
	result := crawler.Crawl(ctx, start, end)

	if err := repack.SaveCollection(cfg.Output.Path, result.Records); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"run_id":    result.RunID.String(),
		"records":   len(result.Records),
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"output":    cfg.Output.Path,
		"elapsed":   result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond).String(),
	}).Info("Crawl complete")

	if cfg.History.DSN != "" {
		if err := recordRun(cfg, result); err != nil {
			log.WithError(err).Warn("Failed to record run history")
		}
	}

	return nil
}

func recordRun(cfg *config.FileConfig, result *discovery.CrawlResult) error {
	store, err := history.NewRunStore(cfg.History.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.RecordRun(history.RunFromCrawl(result, cfg.Profile.Name, cfg.Output.Path))
}
