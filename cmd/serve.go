package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/doulist-movies/internal/api"
	"github.com/JakeFAU/doulist-movies/internal/movie"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the movie API server",
		Long: `Serves the stored movies as JSON on server.host:server.port until SIGINT
or SIGTERM, then drains in-flight requests.`,
		Args: cobra.NoArgs,
		RunE: runServeCommand,
	}
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	cfg := appInstance.GetConfig()
	logger := appInstance.GetLogger()

	if err := withStore(ctx, appInstance, func(store movie.Store) error {
		return store.InitializeSchema(ctx)
	}); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}

	apiServer := api.NewServer(
		appInstance.GetOpener(),
		appInstance.GetImageFetcher(),
		cfg,
		logger.Named("api"),
	)
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return serve(ctx, srv, logger)
}

// serve runs srv until ctx is done or ListenAndServe fails, then shuts it down.
func serve(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
