package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yexiu0529666/gobang/internal/model"
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Browse recorded games",
	}

	cmd.AddCommand(newReplayListCmd())
	cmd.AddCommand(newReplayShowCmd())

	return cmd
}

func newReplayListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the move records of your games",
		RunE: func(cmd *cobra.Command, args []string) error {
			replays, err := app.Match.ListReplays(cmd.Context())
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(replays)
			return nil
		},
	}
}

func newReplayShowCmd() *cobra.Command {
	var upTo int

	cmd := &cobra.Command{
		Use:   "show <game-id>",
		Short: "Show a recorded game, optionally stepped to a given move",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}

			rep, err := app.Match.FetchReplay(cmd.Context(), model.MatchID(id))
			if err != nil {
				return err
			}

			if upTo > 0 {
				truncated := make([]model.Move, 0, len(rep.Moves))
				for _, mv := range rep.Moves {
					if mv.MoveNumber <= upTo {
						truncated = append(truncated, mv)
					}
				}
				rep.Moves = truncated
			}

			out := NewOutput(cfg.Output)
			out.Print(*rep)
			return nil
		},
	}

	cmd.Flags().IntVar(&upTo, "move", 0, "Show the position after this move number")

	return cmd
}

func newLeaderboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top rated players",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := app.Match.Leaderboard(cmd.Context())
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(entries)
			return nil
		},
	}
}
