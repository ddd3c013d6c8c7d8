package model

import "time"

// ReplayPlayer identifies one seat in a recorded game
type ReplayPlayer struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
}

// Replay is the complete move record of a game in which both players
// were seated. A waiting game with an empty second seat has no replay.
type Replay struct {
	ID          MatchID       `json:"id"`
	BlackPlayer ReplayPlayer  `json:"black_player"`
	WhitePlayer ReplayPlayer  `json:"white_player"`
	Winner      *ReplayPlayer `json:"winner"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     *time.Time    `json:"end_time"`
	Moves       []Move        `json:"moves"`
}

// BoardThrough derives the position after the first n moves. Anything
// past the end of the record yields the final position.
func (r *Replay) BoardThrough(n int) Board {
	var b Board
	for _, mv := range r.Moves {
		if mv.MoveNumber > n {
			continue
		}
		if mv.X < 0 || mv.X >= BoardSize || mv.Y < 0 || mv.Y >= BoardSize {
			continue
		}
		b[mv.X][mv.Y] = StoneFor(mv.MoveNumber)
	}
	return b
}

// Board derives the final position
func (r *Replay) Board() Board {
	return r.BoardThrough(len(r.Moves))
}
