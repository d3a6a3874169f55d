package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/doulist-movies/internal/app"
	"github.com/JakeFAU/doulist-movies/internal/config"
	"github.com/JakeFAU/doulist-movies/internal/logging"
	"github.com/JakeFAU/doulist-movies/internal/movie"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const (
	appKey    appKeyType = "app"
	holderKey appKeyType = "app-holder"
)

// appHolder hands the App built in PersistentPreRunE back to runRoot.
type appHolder struct {
	app App
}

// App defines the services commands use, so tests can swap in their own.
type App interface {
	Close()
	GetConfig() config.Config
	GetLogger() *zap.Logger
	GetOpener() movie.Opener
	GetImageFetcher() movie.Fetcher
	NewListingFetcher() (app.ListingFetcher, error)
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(cfg config.Config, logger *zap.Logger) (App, error) {
	return app.NewApp(cfg, logger)
}

// newRootCmd creates the root command and its subcommands.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "doulist-movies",
		Short: "Scrape a Douban doulist into SQLite and serve it over HTTP.",
		Long: `doulist-movies pulls the movies of a public Douban doulist into a local
SQLite database and serves them through a small JSON API with sorting,
pagination, search, a random pick and an image proxy.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Runs before every subcommand: load config, build the logger and the App.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)

			appInstance, err := newApp(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			if holder, ok := cmd.Context().Value(holderKey).(*appHolder); ok {
				holder.app = appInstance
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")

	cmd.AddCommand(
		newServeCmd(),
		newScrapeCmd(),
		newShowCmd(),
		newRmCmd(),
	)
	return cmd
}

// Execute runs the CLI until it finishes or the process receives SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := runRoot(ctx, newRootCmd())
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// runRoot executes root and then closes the App it built. Cobra skips
// PersistentPostRun when a command fails, so the close happens here.
func runRoot(ctx context.Context, root *cobra.Command) error {
	holder := &appHolder{}
	err := root.ExecuteContext(context.WithValue(ctx, holderKey, holder))
	if holder.app != nil {
		holder.app.Close()
	}
	return err
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// withStore opens one store handle for fn and closes it afterwards.
func withStore(ctx context.Context, a App, fn func(movie.Store) error) error {
	store, err := a.GetOpener().Open(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			a.GetLogger().Warn("close store", zap.Error(cerr))
		}
	}()
	return fn(store)
}
