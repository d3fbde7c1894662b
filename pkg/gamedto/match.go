package gamedto

import "time"

// MatchPlayerView is a participant of a recorded match with their symbol.
type MatchPlayerView struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Symbol      string `json:"symbol"`
}

// MatchView is one immutable match record.
type MatchView struct {
	MatchID     string            `json:"matchId"`
	RoomCode    string            `json:"roomCode"`
	Players     []MatchPlayerView `json:"players"`
	WinnerID    string            `json:"winnerId"`
	MoveHistory []MoveView        `json:"moveHistory"`
	DurationMS  int64             `json:"durationMs"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// StatsView is a user's running aggregate.
type StatsView struct {
	UserID      string  `json:"userId"`
	DisplayName string  `json:"displayName"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Draws       int     `json:"draws"`
	TotalGames  int     `json:"totalGames"`
	WinRate     float64 `json:"winRate"`
}
