package match

import (
	"time"

	"github.com/gridhall/tictac-arena/internal/board"
	"github.com/gridhall/tictac-arena/internal/room"
)

// PlayerRecord is one participant of a completed match, tagged with the
// symbol their seat played.
type PlayerRecord struct {
	UserID      string     `json:"user_id"`
	DisplayName string     `json:"display_name"`
	Symbol      board.Cell `json:"symbol"`
}

// Match is the immutable historical record of one finished room. Written
// exactly once, never mutated.
type Match struct {
	MatchID     string         `json:"match_id"`
	RoomCode    string         `json:"room_code"`
	Players     []PlayerRecord `json:"players"`
	WinnerID    string         `json:"winner_id"` // user id, or room.WinnerDraw
	MoveHistory []room.Move    `json:"move_history"`
	DurationMS  int64          `json:"duration_ms"`
	CreatedAt   time.Time      `json:"created_at"`
}

// UserStats is the per-user running aggregate, owned by the finalizer.
type UserStats struct {
	UserID      string  `json:"user_id"`
	DisplayName string  `json:"display_name"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Draws       int     `json:"draws"`
	TotalGames  int     `json:"total_games"`
	WinRate     float64 `json:"win_rate"`
}

// StatDelta is the per-match increment for one participant. Exactly one
// field is 1.
type StatDelta struct {
	Wins   int
	Losses int
	Draws  int
}
