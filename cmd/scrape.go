package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/doulist-movies/internal/scraper"
)

func newScrapeCmd() *cobra.Command {
	var (
		doulistID string
		maxPages  int
	)
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Replace the stored movies with a fresh scrape of a doulist",
		Long: `Drops and recreates the movie table, then walks the doulist one page of
25 items at a time until an empty page, a failed request, or the page cap.
Rows inserted before a failure are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScrapeCommand(cmd, doulistID, maxPages)
		},
	}
	cmd.Flags().StringVar(&doulistID, "doulist", "", "doulist id (default scraper.doulist_id)")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "page cap (default scraper.max_pages)")
	return cmd
}

func runScrapeCommand(cmd *cobra.Command, doulistID string, maxPages int) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.GetConfig()
	logger := appInstance.GetLogger()

	if doulistID == "" {
		doulistID = cfg.Scraper.DoulistID
	}
	if maxPages <= 0 {
		maxPages = cfg.Scraper.MaxPages
	}

	fetcher, err := appInstance.NewListingFetcher()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := fetcher.Close(); cerr != nil {
			logger.Warn("close fetcher", zap.Error(cerr))
		}
	}()

	s := scraper.New(scraper.Config{
		BaseURL:  cfg.Scraper.BaseURL,
		MaxPages: maxPages,
		Delay:    cfg.Scraper.Delay(),
		Headers:  scraper.BrowserHeaders(cfg.Scraper.UserAgent),
	}, fetcher, appInstance.GetOpener(), logger.Named("scraper"))

	summary, runErr := s.Run(cmd.Context(), doulistID)
	fmt.Fprintf(cmd.OutOrStdout(), "Scraped %d movies from doulist %s (pages=%d skipped=%d reason=%s)\n",
		summary.Inserted, summary.ListingID, summary.PagesFetched, summary.Skipped, summary.Reason)

	switch {
	case runErr == nil:
		return nil
	case scraper.IsCanceled(runErr):
		logger.Warn("scrape interrupted", zap.Error(runErr))
		return nil
	default:
		return fmt.Errorf("scrape: %w", runErr)
	}
}
