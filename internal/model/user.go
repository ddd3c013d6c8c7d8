package model

// UserID uniquely identifies a user account
type UserID int

// User is the client-side view of an account profile.
// The stats fields are only populated by the profile endpoint;
// login and register responses carry the identity fields alone.
type User struct {
	ID         UserID  `json:"id"`
	Username   string  `json:"username"`
	Email      string  `json:"email,omitempty"`
	TotalGames int     `json:"total_games,omitempty"`
	GamesWon   int     `json:"games_won,omitempty"`
	GamesLost  int     `json:"games_lost,omitempty"`
	WinRate    float64 `json:"win_rate,omitempty"`
	Rating     int     `json:"rating,omitempty"`
}
