package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/doulist-movies/internal/movie"
)

const defaultShowLimit = 10

type showOptions struct {
	doulistID string
	all       bool
	limit     int
	search    string
}

func newShowCmd() *cobra.Command {
	var opts showOptions
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print stored movies",
		Long: `Prints the stored movies of a doulist, newest first. Without --doulist the
configured scraper.doulist_id is used; --all covers every listing instead.
--search keeps movies whose title or abstract contains the keyword
(case-sensitive), and --limit caps how many are printed (0 prints all).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if opts.doulistID == "" && !opts.all {
				opts.doulistID = appInstance.GetConfig().Scraper.DoulistID
			}
			if opts.all {
				opts.doulistID = ""
			}
			return withStore(cmd.Context(), appInstance, func(store movie.Store) error {
				records, err := loadRecords(cmd.Context(), store, opts)
				if err != nil {
					return err
				}
				return printRecords(cmd.OutOrStdout(), records, opts)
			})
		},
	}
	cmd.Flags().StringVar(&opts.doulistID, "doulist", "", "doulist to show (default scraper.doulist_id)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "show movies from every doulist")
	cmd.Flags().IntVar(&opts.limit, "limit", defaultShowLimit, "maximum movies to print, 0 for all")
	cmd.Flags().StringVar(&opts.search, "search", "", "keyword to look for")
	return cmd
}

// loadRecords returns every match; printRecords applies the limit so it can
// report how many were left out.
func loadRecords(ctx context.Context, store movie.Store, opts showOptions) ([]movie.Record, error) {
	if err := store.InitializeSchema(ctx); err != nil {
		return nil, err
	}

	var (
		records []movie.Record
		err     error
	)
	switch {
	case opts.search != "":
		records, err = store.Search(ctx, opts.search)
		if err == nil && opts.doulistID != "" {
			records = filterListing(records, opts.doulistID)
		}
	case opts.doulistID != "":
		records, err = store.ListByListing(ctx, opts.doulistID)
	default:
		// SQLite treats a negative LIMIT as no limit.
		records, err = store.ListAll(ctx, -1, 0)
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}

func filterListing(records []movie.Record, doulistID string) []movie.Record {
	out := records[:0]
	for _, r := range records {
		if r.DoulistID != nil && *r.DoulistID == doulistID {
			out = append(out, r)
		}
	}
	return out
}

func printRecords(w io.Writer, records []movie.Record, opts showOptions) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No movies found.")
		return err
	}

	scope := "every doulist"
	if opts.doulistID != "" {
		scope = "doulist " + opts.doulistID
	}
	shown := records
	if opts.limit > 0 && len(shown) > opts.limit {
		shown = shown[:opts.limit]
	}

	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	fmt.Fprintf(tw, "%d movie(s) in %s\n", len(records), scope)
	for i, r := range shown {
		fmt.Fprintln(tw, strings.Repeat("-", 50))
		fmt.Fprintf(tw, "[%d] %s (id %d)\n", i+1, r.Title, r.ID)
		fmt.Fprintf(tw, "  rating:\t%s\n", dash(r.Rating))
		fmt.Fprintf(tw, "  added:\t%s\n", dash(r.Time))
		fmt.Fprintf(tw, "  poster:\t%s\n", dash(r.Image))
		fmt.Fprintf(tw, "  abstract:\t%s\n", dash(oneLine(r.Abstract)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if rest := len(records) - len(shown); rest > 0 {
		_, err := fmt.Fprintf(w, "... %d more\n", rest)
		return err
	}
	return nil
}

// oneLine joins the abstract's stored lines for single-line display.
func oneLine(s string) string {
	var parts []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " / ")
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
