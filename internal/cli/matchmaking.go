package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Matchmaking commands",
	}

	cmd.AddCommand(newMatchStartCmd())
	cmd.AddCommand(newMatchStopCmd())
	cmd.AddCommand(newMatchCheckCmd())
	cmd.AddCommand(newMatchJoinCmd())

	return cmd
}

func newMatchStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Open a matchmaking ticket and wait for an opponent",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Match.StartMatchmaking(cmd.Context()); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Matchmaking started, waiting for an opponent")
			return nil
		},
	}
}

func newMatchStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Cancel the open matchmaking ticket",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Match.StopMatchmaking(cmd.Context()); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Matchmaking cancelled")
			return nil
		},
	}
}

func newMatchCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check for an open ticket from another player",
		RunE: func(cmd *cobra.Command, args []string) error {
			ticket, err := app.Match.CheckMatchmaking(cmd.Context())
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			if ticket == nil {
				out.PrintMessage("No open matches")
				return nil
			}
			out.Print(*ticket)
			return nil
		},
	}
}

func newMatchJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <ticket-id>",
		Short: "Join another player's matchmaking ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}

			m, err := app.Match.JoinMatch(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(*m)
			return nil
		},
	}
}
