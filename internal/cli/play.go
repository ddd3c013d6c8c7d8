package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yexiu0529666/gobang/internal/model"
	"github.com/yexiu0529666/gobang/internal/realtime"
)

func newPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play <game-id>",
		Short: "Play a game interactively over the realtime channel",
		Long: `Connect to the realtime channel and play moves in a game.

Moves are entered as "x y" coordinates (0-14). The board re-renders on
every confirmed move, including the opponent's. Press Ctrl+C to leave;
the game stays open on the server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}
			return runPlay(cmd.Context(), model.MatchID(id))
		},
	}
}

func runPlay(parent context.Context, id model.MatchID) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if _, err := app.Match.FetchMatch(ctx, id); err != nil {
		return err
	}

	if err := app.Channel.Connect(ctx); err != nil {
		return err
	}
	defer app.Channel.Disconnect()

	// The match store applies events to its cache before we get them
	// here; this subscription only drives the redraw.
	redraw := make(chan realtime.Event, 16)
	sub := app.Channel.Subscribe(func(ev realtime.Event) {
		select {
		case redraw <- ev:
		default:
		}
	})
	defer sub.Close()

	out := NewOutput(cfg.Output)
	printMatch(out)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nLeaving game")
			return nil

		case ev := <-redraw:
			switch ev.Name {
			case model.EventMoveMade:
				printMatch(out)
			case model.EventGameOver:
				printMatch(out)
				fmt.Println("Game over")
				return nil
			case model.EventPlayerDisconnected:
				fmt.Println("Opponent disconnected")
				return nil
			}

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			x, y, err := parseMove(line)
			if err != nil {
				out.PrintError(err)
				continue
			}
			if err := app.Match.SubmitMove(ctx, id, x, y); err != nil {
				out.PrintError(err)
			}
		}
	}
}

func parseMove(line string) (int, int, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("enter a move as: x y")
	}
	x, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x coordinate %q", fields[0])
	}
	y, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid y coordinate %q", fields[1])
	}
	return x, y, nil
}

func printMatch(out *Output) {
	if m := app.Match.CurrentMatch(); m != nil {
		out.Print(*m)
	}
}
