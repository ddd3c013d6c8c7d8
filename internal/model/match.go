package model

import "time"

// MatchID uniquely identifies a match
type MatchID int

// MatchStatus represents the current phase of a match.
// The string values are the server's wire values.
type MatchStatus string

const (
	MatchStatusPending    MatchStatus = "waiting"   // Awaiting a second player
	MatchStatusInProgress MatchStatus = "playing"   // Both players seated, moves allowed
	MatchStatusFinished   MatchStatus = "finished"  // Won or drawn
	MatchStatusAborted    MatchStatus = "abandoned" // A player left before completion
)

// BoardSize is the side length of the gobang board
const BoardSize = 15

// Stone is the occupant of a single board cell
type Stone uint8

const (
	StoneNone  Stone = iota
	StoneBlack       // player 1
	StoneWhite       // player 2
)

// Board is the derived 15x15 grid. The move history is authoritative;
// the board is always recomputed or extended from it.
type Board [BoardSize][BoardSize]Stone

// Match is the client-side cache of one game between two players.
// The authoritative copy lives server-side; this view must be
// reconciled on every inbound event, never assumed current after
// a connection gap.
type Match struct {
	ID              MatchID     `json:"id"`
	Player1ID       UserID      `json:"player1_id"`
	Player1Username string      `json:"player1_username,omitempty"`
	Player2ID       UserID      `json:"player2_id,omitempty"`
	Player2Username string      `json:"player2_username,omitempty"`
	Status          MatchStatus `json:"status"`
	Moves           []Move      `json:"moves,omitempty"`
	WinnerID        UserID      `json:"winner_id,omitempty"`
	WinnerUsername  string      `json:"winner_username,omitempty"`
	CurrentPlayerID UserID      `json:"current_player_id,omitempty"`
	TimeLimit       int         `json:"time_limit,omitempty"`
	StartTime       time.Time   `json:"start_time,omitempty"`
	EndTime         *time.Time  `json:"end_time,omitempty"`
}

// Move is a single stone placement. MoveNumber is 1-based and strictly
// sequential per match; player 1 owns the odd move numbers.
type Move struct {
	ID         int       `json:"id,omitempty"`
	MatchID    MatchID   `json:"game_id,omitempty"`
	PlayerID   UserID    `json:"player_id"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	MoveNumber int       `json:"move_number"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
}

// NextMoveNumber returns the move number the next confirmed move must carry
func (m *Match) NextMoveNumber() int {
	return len(m.Moves) + 1
}

// AppendMove extends the history with a confirmed move. A move whose
// number does not extend the history by exactly one is rejected with
// ErrReconciliationRequired; the caller must refetch the match rather
// than apply partially.
func (m *Match) AppendMove(mv Move) error {
	if mv.MoveNumber != m.NextMoveNumber() {
		return ErrReconciliationRequired
	}
	m.Moves = append(m.Moves, mv)
	return nil
}

// StoneFor returns the stone colour a given move number places
func StoneFor(moveNumber int) Stone {
	if moveNumber%2 == 1 {
		return StoneBlack
	}
	return StoneWhite
}

// Board derives the grid from the move history. Out-of-range moves are
// skipped; the server never produces them.
func (m *Match) Board() Board {
	var b Board
	for _, mv := range m.Moves {
		if mv.X < 0 || mv.X >= BoardSize || mv.Y < 0 || mv.Y >= BoardSize {
			continue
		}
		b[mv.X][mv.Y] = StoneFor(mv.MoveNumber)
	}
	return b
}

// MatchmakingTicket is an open matchmaking record. A pending ticket can
// be joined by any other player or cancelled by its creator.
type MatchmakingTicket struct {
	ID              int     `json:"id,omitempty"`
	MatchID         MatchID `json:"game_id,omitempty"`
	Player1ID       UserID  `json:"player1_id,omitempty"`
	Player1Username string  `json:"player1_username,omitempty"`
	Status          string  `json:"status,omitempty"`
}
