package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yexiu0529666/gobang/internal/model"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game commands",
	}

	cmd.AddCommand(newGameListCmd())
	cmd.AddCommand(newGameGetCmd())
	cmd.AddCommand(newGameCreateCmd())
	cmd.AddCommand(newGameExitCmd())

	return cmd
}

func newGameListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your games",
		RunE: func(cmd *cobra.Command, args []string) error {
			games, err := app.Match.ListMatches(cmd.Context())
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(games)
			return nil
		},
	}
}

func newGameGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one game, including its board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}

			m, err := app.Match.FetchMatch(cmd.Context(), model.MatchID(id))
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(*m)
			return nil
		},
	}
}

func newGameCreateCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new game",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.Match.CreateMatch(cmd.Context(), mode)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(*m)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "normal", "Game mode")

	return cmd
}

func newGameExitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exit <id>",
		Short: "Leave a waiting or in-progress game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}

			if err := app.Match.ExitMatch(cmd.Context(), model.MatchID(id)); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Left the game")
			return nil
		},
	}
}
