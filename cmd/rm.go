package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/doulist-movies/internal/movie"
)

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm ID",
		Short: "Delete one stored movie by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), appInstance, func(store movie.Store) error {
				deleted, err := store.Delete(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("movie %d: %w", id, movie.ErrNotFound)
				}
				appInstance.GetLogger().Info("movie deleted", zap.Int64("id", id))
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted movie %d\n", id)
				return err
			})
		},
	}
}
