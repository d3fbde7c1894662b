package room

import (
	"time"

	"github.com/gridhall/tictac-arena/internal/board"
)

// Status represents a room's lifecycle state. Transitions only move forward:
// waiting → playing → finished.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// WinnerDraw is the winner value of a finished room nobody won.
const WinnerDraw = "draw"

// Player is one seat in a room. Seat order fixes the symbol: seat 0 plays X,
// seat 1 plays O, for the lifetime of the room.
type Player struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	IsReady     bool   `json:"is_ready"`
}

// Move is one entry of the append-only move history.
type Move struct {
	UserID    string     `json:"user_id"`
	CellIndex int        `json:"cell_index"`
	Symbol    board.Cell `json:"symbol"`
	Timestamp time.Time  `json:"timestamp"`
}

// Room is the persisted state of one pairing, stored as a JSON document
// keyed by its code.
type Room struct {
	Code          string      `json:"code"`
	HostID        string      `json:"host_id"`
	Players       []Player    `json:"players"`
	Status        Status      `json:"status"`
	CurrentTurnID string      `json:"current_turn_id,omitempty"`
	Board         board.Board `json:"board"`
	WinnerID      string      `json:"winner_id,omitempty"`
	MatchID       string      `json:"match_id,omitempty"`
	MoveHistory   []Move      `json:"move_history"`
	CreatedAt     time.Time   `json:"created_at"`
}

// PlayerIndex returns the seat of userID, or -1.
func (r *Room) PlayerIndex(userID string) int {
	for i, p := range r.Players {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

// SymbolFor returns the symbol assigned to userID's seat, or Empty for
// non-players.
func (r *Room) SymbolFor(userID string) board.Cell {
	switch r.PlayerIndex(userID) {
	case 0:
		return board.X
	case 1:
		return board.O
	}
	return board.Empty
}

// Opponent returns the other seated player, or nil.
func (r *Room) Opponent(userID string) *Player {
	for i, p := range r.Players {
		if p.UserID != userID {
			return &r.Players[i]
		}
	}
	return nil
}

// Errors: every rejected precondition maps to exactly one of these.
var (
	ErrNotFound      = errf("room not found")
	ErrInvalidState  = errf("room is not in a state that allows this action")
	ErrRoomFull      = errf("room already has two players")
	ErrAlreadyJoined = errf("user already joined this room")
	ErrNotAPlayer    = errf("user is not a player in this room")
	ErrNotYourTurn   = errf("it is not this user's turn")
	ErrCellOccupied  = errf("cell is already occupied")
	ErrInvalidIndex  = errf("cell index is out of range")
	// ErrCodeExhausted means code allocation lost the SetNX race repeatedly.
	ErrCodeExhausted = errf("failed to allocate a room code")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
