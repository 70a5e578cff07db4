package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-shelf/config"
	"github.com/aluiziolira/go-scrape-shelf/discover"
	"github.com/aluiziolira/go-scrape-shelf/fetch"
	"github.com/aluiziolira/go-scrape-shelf/models"
	"github.com/aluiziolira/go-scrape-shelf/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// detailHeaders mimic a browser session; the GraphQL endpoint rejects
// requests without an origin.
var detailHeaders = map[string]string{
	"accept":          "*/*",
	"accept-language": "en-US,en;q=0.9",
	"origin":          "https://www.senscritique.com",
}

func main() {
	defaultCfg := config.DefaultConfig()
	userDefault := ""
	if value, ok := config.EnvString("SHELF_USER"); ok {
		userDefault = value
	}
	workersDefault := defaultCfg.Workers
	if value, ok, err := config.EnvInt("SHELF_WORKERS"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SHELF_WORKERS: %v\n", err)
		os.Exit(1)
	} else if ok {
		workersDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("SHELF_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SHELF_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	username := flag.String("user", userDefault, "Collection owner username")
	universe := flag.String("universe", defaultCfg.Universe, "Media category (2 = books)")
	sortOrder := flag.String("sort", defaultCfg.SortOrder, "Collection sort order")
	strategy := flag.String("strategy", defaultCfg.Strategy, "Discovery strategy: pages or api")
	workers := flag.Int("workers", workersDefault, "Number of concurrent detail fetches")
	delayMs := flag.Int("delay", int(defaultCfg.Delay/time.Millisecond), "Per-task delay before each fetch (milliseconds)")
	batchSize := flag.Int("batch", defaultCfg.BatchSize, "API pagination batch size")
	maxPages := flag.Int("pages", defaultCfg.MaxPages, "Maximum listing pages to scan")
	timeoutSec := flag.Int("timeout", int(defaultCfg.Timeout/time.Second), "Per-request timeout (seconds)")
	categoryID := flag.Int("category", 0, "Filter by category id (0 = no filter)")
	genreID := flag.Int("genre", 0, "Filter by genre id (0 = no filter)")
	keywords := flag.String("keywords", "", "Filter by keywords")
	yearDone := flag.Int("year-done", 0, "Filter by year marked done (0 = no filter)")
	yearRelease := flag.Int("year-release", 0, "Filter by release year (0 = no filter)")
	outputFile := flag.String("output", outputDefault, "Output file path")
	outputFormat := flag.String("format", "json", "Output format: json, csv, or dual")
	baseURL := flag.String("base-url", defaultCfg.BaseURL, "Site base URL")
	apiURL := flag.String("api-url", defaultCfg.APIURL, "GraphQL endpoint URL")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := defaultCfg
	cfg.Username = *username
	cfg.Universe = *universe
	cfg.SortOrder = *sortOrder
	cfg.Strategy = strings.ToLower(*strategy)
	cfg.Workers = *workers
	cfg.Delay = time.Duration(*delayMs) * time.Millisecond
	cfg.BatchSize = *batchSize
	cfg.MaxPages = *maxPages
	cfg.Timeout = time.Duration(*timeoutSec) * time.Second
	cfg.CategoryID = *categoryID
	cfg.GenreID = *genreID
	cfg.Keywords = *keywords
	cfg.YearDone = *yearDone
	cfg.YearRelease = *yearRelease
	cfg.OutputFile = *outputFile
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.BaseURL = *baseURL
	cfg.APIURL = *apiURL
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting export",
		slog.String("user", cfg.Username),
		slog.String("strategy", cfg.Strategy),
		slog.Int("workers", cfg.Workers),
		slog.Duration("delay", cfg.Delay),
	)

	client := fetch.NewClient(cfg.Timeout, cfg.UserAgent, fetch.WithHeaders(detailHeaders))

	discoverer, err := newDiscoverer(cfg, client)
	if err != nil {
		slog.Error("initialising discovery", slog.Any("error", err))
		os.Exit(1)
	}

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, draining in-flight work")
	}()

	p := pipeline.NewPipeline(cfg, client)

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(p.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	refs, err := discoverer.Discover(ctx)
	if err != nil {
		// discovery failures are not fatal: export what was gathered
		slog.Error("discovery terminated early",
			slog.Int("gathered", len(refs)),
			slog.Any("error", err),
		)
	}
	p.Metrics.AddDiscovered(len(refs))
	slog.Info("discovery complete", slog.Int("references", len(refs)))

	run := p.Run(ctx, refs)

	models.SortByID(run.Results)
	if err := writer.Write(run.Results); err != nil {
		slog.Error("writing output", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(run, cfg.OutputFile)
}

func newDiscoverer(cfg *config.Config, client *fetch.Client) (discover.Discoverer, error) {
	switch cfg.Strategy {
	case config.StrategyPages:
		return discover.NewPageScanner(cfg)
	case config.StrategyAPI:
		return discover.NewAPIScanner(cfg, client), nil
	default:
		return nil, fmt.Errorf("unsupported strategy: %s", cfg.Strategy)
	}
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		csvFilename := strings.TrimSuffix(filename, ".json") + ".csv"
		return pipeline.NewDualWriter(filename, csvFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(run *models.Run, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Export complete")

	duration := run.EndTime.Sub(run.StartTime)
	itemsPerSec := 0.0
	if duration.Seconds() > 0 {
		itemsPerSec = float64(len(run.Results)) / duration.Seconds()
	}

	fmt.Printf("  References:    %d\n", run.RefCount)
	fmt.Printf("  Records:       %d\n", len(run.Results))
	fmt.Printf("  Absent:        %d\n", run.Absent)
	fmt.Printf("  Failures:      %d\n", run.Failures())
	if len(run.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", run.ErrorsByType)
	}
	for _, failed := range run.Failed {
		fmt.Printf("    failed id=%d url=%s: %s\n", failed.ID, failed.URL, failed.Reason)
	}
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Items/sec:     %.2f\n", itemsPerSec)
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
