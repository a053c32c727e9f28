package main

import (
	"encoding/json"
	"os"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/copilot/internal/models"
	"github.com/xhad/copilot/pkg/scraper"
	"github.com/xhad/copilot/pkg/tickets"
)

var (
	ingestTicketsFile   string
	ingestTicketsIntake bool
	ingestJSON          bool

	ingestDocsURL      string
	ingestDocsSeeds    []string
	ingestDocsMaxDepth int
	ingestDocsMaxPages int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load tickets or documentation into the vector indexes",
}

var ingestTicketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "Classify tickets and store them in the tickets index",
	Args:  cobra.NoArgs,
	RunE:  runIngestTickets,
}

var ingestDocsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Crawl the documentation site and store its chunks",
	Args:  cobra.NoArgs,
	RunE:  runIngestDocs,
}

func init() {
	ingestTicketsCmd.Flags().StringVarP(&ingestTicketsFile, "file", "f", "", "ticket JSON file (defaults to tickets.seed_file)")
	ingestTicketsCmd.Flags().BoolVar(&ingestTicketsIntake, "intake", false, "also ingest tickets from the SQLite intake store")

	ingestDocsCmd.Flags().StringVar(&ingestDocsURL, "url", "", "documentation base URL (defaults to scraper.base_url)")
	ingestDocsCmd.Flags().StringSliceVar(&ingestDocsSeeds, "seed", nil, "start URLs (defaults to scraper.seeds or the base URL)")
	ingestDocsCmd.Flags().IntVar(&ingestDocsMaxDepth, "max-depth", 0, "maximum crawl depth")
	ingestDocsCmd.Flags().IntVar(&ingestDocsMaxPages, "max-pages", 0, "maximum number of pages")

	ingestCmd.PersistentFlags().BoolVar(&ingestJSON, "json", false, "print the ingestion report as JSON")
	ingestCmd.AddCommand(ingestTicketsCmd, ingestDocsCmd)
	rootCmd.AddCommand(ingestCmd)
}

func runIngestTickets(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	path := cfg.Tickets.SeedFile
	if ingestTicketsFile != "" {
		path = ingestTicketsFile
	}
	sources := tickets.Combined{tickets.NewFileSource(path)}
	if ingestTicketsIntake {
		intake, err := a.openIntake(ctx)
		if err != nil {
			return err
		}
		defer intake.Close()
		sources = append(sources, intake)
	}

	list, err := sources.ListTickets(ctx)
	if err != nil {
		return err
	}
	color.Blue("Classifying %d tickets with %s", len(list), cfg.LLM.Model)

	bar := getProgressBar(len(list), "🏷  Classifying tickets...")
	report := a.ingester(func(models.IngestItem) { _ = bar.Add(1) }).IngestTickets(ctx, list)
	_ = bar.Finish()

	if ingestJSON {
		return printJSON(report)
	}
	printReport("tickets", report)
	return nil
}

func runIngestDocs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	sc := cfg.Scraper
	if ingestDocsURL != "" {
		sc.BaseURL = ingestDocsURL
	}
	if len(ingestDocsSeeds) > 0 {
		sc.Seeds = ingestDocsSeeds
	}
	if ingestDocsMaxDepth > 0 {
		sc.MaxDepth = ingestDocsMaxDepth
	}
	if ingestDocsMaxPages > 0 {
		sc.MaxPages = ingestDocsMaxPages
	}

	var crawled atomic.Int32
	crawler, err := scraper.NewWithConfig(scraper.ScraperConfig{
		BaseURL:           sc.BaseURL,
		MaxDepth:          sc.MaxDepth,
		MaxPages:          sc.MaxPages,
		RateLimit:         sc.RateLimit,
		IgnorePatterns:    sc.IgnorePatterns,
		AllowedExtensions: sc.AllowedExtensions,
		Timeout:           sc.Timeout,
		OnProgress:        func(string) { crawled.Add(1) },
		Logger:            a.logger,
	})
	if err != nil {
		return err
	}

	color.Blue("\nStarting documentation pipeline for %s\n", sc.BaseURL)
	scrapingBar := getProgressBar(-1, "📄 Scraping documentation...")
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = scrapingBar.Set(int(crawled.Load()))
			}
		}
	}()

	docs, err := crawler.Scrape(ctx, sc.Seeds...)
	close(done)
	_ = scrapingBar.Finish()
	if err != nil {
		return err
	}
	color.Green("\n✓ Scraped %d documents\n", len(docs))

	storageBar := getProgressBar(len(docs), "💾 Chunking and storing documents...")
	report := a.ingester(func(models.IngestItem) { _ = storageBar.Add(1) }).IngestDocuments(ctx, docs)
	_ = storageBar.Finish()

	if ingestJSON {
		return printJSON(report)
	}
	printReport("documents", report)
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
