package model

// EventType identifies a realtime channel event
type EventType string

const (
	// Outbound (client -> server)
	EventMakeMove EventType = "make_move"

	// Inbound (server -> client)
	EventConnected          EventType = "connected"
	EventMoveMade           EventType = "move_made"
	EventMatchFound         EventType = "match_found"
	EventGameOver           EventType = "game_over"
	EventPlayerDisconnected EventType = "player_disconnected"
)

// MakeMovePayload is the outbound move request. The server confirms
// accepted moves with a move_made event; the client never applies a
// move locally on emission alone.
type MakeMovePayload struct {
	MatchID MatchID `json:"game_id"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
}

// MoveMadePayload is a server-confirmed stone placement
type MoveMadePayload struct {
	MatchID    MatchID `json:"game_id"`
	PlayerID   UserID  `json:"player_id"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	MoveNumber int     `json:"move_number"`
}

// MatchFoundPayload delivers the match created when matchmaking pairs
// the local player with an opponent
type MatchFoundPayload struct {
	Match Match `json:"game"`
}

// GameOverPayload reports match completion
type GameOverPayload struct {
	MatchID      MatchID `json:"game_id"`
	WinnerID     UserID  `json:"winner_id,omitempty"`
	Draw         bool    `json:"draw,omitempty"`
	PointsChange int     `json:"points_change,omitempty"`
}

// PlayerDisconnectedPayload reports the opponent dropping mid-match
type PlayerDisconnectedPayload struct {
	MatchID  MatchID `json:"game_id"`
	PlayerID UserID  `json:"player_id"`
}
