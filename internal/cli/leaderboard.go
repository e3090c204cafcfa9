package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"movie-trivia/internal/app"
	"movie-trivia/internal/config"
)

// NewLeaderboardCmd groups the offline leaderboard operations.
func NewLeaderboardCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Inspect or reset the leaderboard",
	}
	cmd.AddCommand(newLeaderboardShowCmd(configPath), newLeaderboardResetCmd(configPath))
	return cmd
}

func newLeaderboardShowCmd(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the top scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			b, err := openBackends(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.Close()
			board, err := newLeaderboardStore(cfg, b)
			if err != nil {
				return err
			}

			scores, err := board.Load(ctx)
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = cfg.Leaderboard.TopK
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tPLAYER\tSCORE")
			for _, e := range app.Rank(scores, limit).Entries {
				fmt.Fprintf(w, "%d\t%s\t%d\n", e.Rank, e.PlayerName, e.Score)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of entries to print (default leaderboard.topK)")
	return cmd
}

func newLeaderboardResetCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Remove every score",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			b, err := openBackends(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.Close()
			board, err := newLeaderboardStore(cfg, b)
			if err != nil {
				return err
			}
			if err := board.Reset(ctx); err != nil {
				return err
			}
			log.Info().Str("backend", cfg.Leaderboard.Backend).Msg("leaderboard reset")
			return nil
		},
	}
}
