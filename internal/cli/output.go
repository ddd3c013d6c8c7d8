package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/yexiu0529666/gobang/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case model.User:
		o.printUser(v)
	case model.Match:
		o.printMatch(v)
	case []model.Match:
		o.printMatchList(v)
	case model.MatchmakingTicket:
		o.printTicket(v)
	case model.Replay:
		o.printReplay(v)
	case []model.Replay:
		o.printReplayList(v)
	case []model.User:
		o.printLeaderboard(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printUser(u model.User) {
	fmt.Printf("User: %s (#%d)\n", u.Username, u.ID)
	if u.Email != "" {
		fmt.Printf("Email: %s\n", u.Email)
	}
	if u.TotalGames > 0 {
		fmt.Printf("Games: %d (won %d, lost %d, %.1f%% win rate)\n",
			u.TotalGames, u.GamesWon, u.GamesLost, u.WinRate)
	}
	if u.Rating > 0 {
		fmt.Printf("Rating: %d\n", u.Rating)
	}
}

func (o *Output) printMatchList(matches []model.Match) {
	if len(matches) == 0 {
		fmt.Println("No games")
		return
	}
	for _, m := range matches {
		opponent := m.Player2Username
		if opponent == "" {
			opponent = "(waiting)"
		}
		fmt.Printf("#%d  %s vs %s  [%s]\n", m.ID, m.Player1Username, opponent, m.Status)
	}
}

func (o *Output) printMatch(m model.Match) {
	opponent := m.Player2Username
	if opponent == "" {
		opponent = "(waiting)"
	}
	fmt.Printf("Game #%d: %s vs %s\n", m.ID, m.Player1Username, opponent)
	fmt.Printf("Status: %s\n", m.Status)
	if m.WinnerUsername != "" {
		fmt.Printf("Winner: %s\n", m.WinnerUsername)
	}
	if m.Status == model.MatchStatusInProgress && m.CurrentPlayerID != 0 {
		fmt.Printf("To move: player #%d\n", m.CurrentPlayerID)
	}
	if len(m.Moves) > 0 {
		fmt.Printf("Moves: %d\n", len(m.Moves))
	}
	o.printBoard(m.Board())
}

func (o *Output) printTicket(t model.MatchmakingTicket) {
	fmt.Printf("Ticket #%d from %s (#%d)\n", t.ID, t.Player1Username, t.Player1ID)
}

func (o *Output) printReplayList(replays []model.Replay) {
	if len(replays) == 0 {
		fmt.Println("No replays")
		return
	}
	for _, r := range replays {
		result := "in progress"
		if r.Winner != nil {
			result = r.Winner.Username + " won"
		} else if r.EndTime != nil {
			result = "draw"
		}
		fmt.Printf("#%d  %s vs %s  %d moves  %s\n",
			r.ID, r.BlackPlayer.Username, r.WhitePlayer.Username, len(r.Moves), result)
	}
}

func (o *Output) printReplay(r model.Replay) {
	fmt.Printf("Replay #%d: %s (X) vs %s (O)\n", r.ID, r.BlackPlayer.Username, r.WhitePlayer.Username)
	if r.Winner != nil {
		fmt.Printf("Winner: %s\n", r.Winner.Username)
	} else if r.EndTime != nil {
		fmt.Println("Result: draw")
	}
	fmt.Printf("Moves: %d\n", len(r.Moves))
	o.printBoard(r.Board())
}

func (o *Output) printLeaderboard(entries []model.User) {
	if len(entries) == 0 {
		fmt.Println("No rated players")
		return
	}
	for i, u := range entries {
		fmt.Printf("%2d. %-20s rating %4d  (%d games, %.1f%% wins)\n",
			i+1, u.Username, u.Rating, u.TotalGames, u.WinRate)
	}
}

func (o *Output) printBoard(b model.Board) {
	fmt.Print("    ")
	for col := 0; col < model.BoardSize; col++ {
		fmt.Printf("%2d ", col)
	}
	fmt.Println()

	for row := 0; row < model.BoardSize; row++ {
		fmt.Printf("%2d |", row)
		for col := 0; col < model.BoardSize; col++ {
			switch b[row][col] {
			case model.StoneBlack:
				fmt.Print(" X ")
			case model.StoneWhite:
				fmt.Print(" O ")
			default:
				fmt.Print(" . ")
			}
		}
		fmt.Println("|")
	}
}
